package patchbay

import (
	"fmt"
	"strings"
)

// Markup contract shared with the hosting document.
const (
	AttrUI     = "data-patchbay-ui"
	AttrMaster = "data-patchbay-master"
	AttrTrack  = "data-patchbay-track"
	// AttrID is set on every bound player to its entity id.
	AttrID = "data-patchbay-id"

	ClassActive      = "is-active"
	ClassPlaying     = "is-playing"
	ClassInitialized = "is-initialized"
	// ClassBound marks a marker a sweep has already claimed.
	ClassBound   = "is-patchbay-bound"
	ClassInvalid = "is-patchbay-invalid"
)

// Role names a UI element inside a player container.
type Role string

const (
	RolePlayPause   Role = "playpause"
	RolePlay        Role = "play"
	RolePause       Role = "pause"
	RoleCurrentTime Role = "currenttime"
	RoleDuration    Role = "duration"
	RoleTitle       Role = "title"
	RoleArtist      Role = "artist"
	RoleAlbum       Role = "album"
	RoleCover       Role = "cover"
)

var knownRoles = map[Role]bool{
	RolePlayPause:   true,
	RolePlay:        true,
	RolePause:       true,
	RoleCurrentTime: true,
	RoleDuration:    true,
	RoleTitle:       true,
	RoleArtist:      true,
	RoleAlbum:       true,
	RoleCover:       true,
}

// ParseRole validates a role name against the fixed role set.
func ParseRole(name string) (Role, error) {
	r := Role(strings.TrimSpace(name))
	if !knownRoles[r] {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	return r, nil
}

// Node is one element of the hosting document.
type Node interface {
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	Text() string
	SetText(text string)
	HasClass(name string) bool
	AddClass(name string)
	RemoveClass(name string)
	// Find returns the descendants carrying attr, in document order.
	Find(attr string) []Node
	OnClick(fn func())
	Click()
}

// UI maps roles to the elements that play them.
type UI map[Role]Node

// findUI collects the role elements of a container. The first element
// of a role in document order wins; an unknown role fails the whole container.
func findUI(container Node) (UI, error) {
	ui := make(UI)
	for _, n := range container.Find(AttrUI) {
		name, _ := n.Attr(AttrUI)
		if strings.TrimSpace(name) == "" {
			continue
		}
		role, err := ParseRole(name)
		if err != nil {
			return nil, err
		}
		if _, exists := ui[role]; !exists {
			ui[role] = n
		}
	}
	return ui, nil
}

func setClass(n Node, class string, on bool) {
	if on {
		n.AddClass(class)
	} else {
		n.RemoveClass(class)
	}
}
