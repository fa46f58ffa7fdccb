package patchbay

import (
	"github.com/rs/zerolog"
)

// Player is the capability set shared by the master and inline players.
type Player interface {
	ID() string
	Active() bool
	Playing() bool
	Initialized() bool
	UI() UI
}

// playerBase holds what both player variants compose: the container, its
// role elements and the coordinator they talk through.
type playerBase struct {
	id        string
	container Node
	ui        UI
	bus       *Coordinator
	settings  *Settings
	log       zerolog.Logger

	initialized bool
}

func newPlayerBase(id string, container Node, bus *Coordinator, settings *Settings, log zerolog.Logger) (playerBase, error) {
	ui, err := findUI(container)
	if err != nil {
		return playerBase{}, err
	}
	return playerBase{
		id:        id,
		container: container,
		ui:        ui,
		bus:       bus,
		settings:  settings,
		log:       log.With().Str("player", id).Logger(),
	}, nil
}

func (p *playerBase) ID() string {
	return p.id
}

func (p *playerBase) Initialized() bool {
	return p.initialized
}

func (p *playerBase) UI() UI {
	return p.ui
}

// Container returns the element hosting the player.
func (p *playerBase) Container() Node {
	return p.container
}

// bindControls makes the play, pause and playpause elements publish a
// request tagged with self when clicked.
func (p *playerBase) bindControls(self Player) {
	triggers := map[Role]EventType{
		RolePlayPause: EventPlayPause,
		RolePlay:      EventPlay,
		RolePause:     EventPause,
	}
	for role, event := range triggers {
		n, ok := p.ui[role]
		if !ok {
			continue
		}
		event := event
		n.OnClick(func() {
			p.bus.Publish(Event{Type: event, Source: self})
		})
	}
}

// mirrorPlayPauseText swaps the playpause label to the action a click
// would perform next.
func (p *playerBase) mirrorPlayPauseText(playing bool) {
	n, ok := p.ui[RolePlayPause]
	if !ok {
		return
	}
	if playing {
		n.SetText(p.settings.PauseText)
	} else {
		n.SetText(p.settings.PlayText)
	}
}

func (p *playerBase) mirrorTimeText(current, total float64) {
	if n, ok := p.ui[RoleCurrentTime]; ok {
		n.SetText(SecToStamp(current))
	}
	if n, ok := p.ui[RoleDuration]; ok {
		n.SetText(SecToStamp(total))
	}
}

func (p *playerBase) markInitialized() {
	if p.initialized {
		return
	}
	p.initialized = true
	p.container.AddClass(ClassInitialized)
}
