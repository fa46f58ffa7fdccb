package patchbay

import (
	"fmt"
	"strings"
)

// Kind is where a track's audio comes from.
type Kind int

const (
	// KindLocal locations are paths on the configured server.
	KindLocal Kind = iota
	// KindExternal locations are absolute URLs used as they are.
	KindExternal
	// KindRemote tracks are known only by an id resolved through a Lookup.
	KindRemote
)

var kindTokens = map[string]Kind{
	"url": KindLocal,
	"ext": KindExternal,
	"id":  KindRemote,
}

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "url"
	case KindExternal:
		return "ext"
	case KindRemote:
		return "id"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Descriptor is the parsed value of a track attribute.
type Descriptor struct {
	Kind      Kind
	Locations []string
	ID        string
}

// ParseDescriptor parses a kind:payload track attribute. Only the first
// colon separates the kind, so external URLs keep their scheme.
func ParseDescriptor(raw string) (Descriptor, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return Descriptor{}, fmt.Errorf("%w: missing kind in %q", ErrInvalidDescriptor, raw)
	}
	kind, ok := kindTokens[parts[0]]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidDescriptor, parts[0])
	}
	payload := strings.TrimSpace(parts[1])
	if payload == "" {
		return Descriptor{}, fmt.Errorf("%w: empty payload in %q", ErrInvalidDescriptor, raw)
	}

	if kind == KindRemote {
		if strings.ContainsAny(payload, ", ") {
			return Descriptor{}, fmt.Errorf("%w: bad id %q", ErrInvalidDescriptor, payload)
		}
		return Descriptor{Kind: kind, ID: payload}, nil
	}

	var locations []string
	for _, loc := range strings.Split(payload, ",") {
		if loc = strings.TrimSpace(loc); loc != "" {
			locations = append(locations, loc)
		}
	}
	if len(locations) == 0 {
		return Descriptor{}, fmt.Errorf("%w: no locations in %q", ErrInvalidDescriptor, raw)
	}
	return Descriptor{Kind: kind, Locations: locations}, nil
}

func (d Descriptor) String() string {
	if d.Kind == KindRemote {
		return d.Kind.String() + ":" + d.ID
	}
	return d.Kind.String() + ":" + strings.Join(d.Locations, ",")
}
