package patchbay

import (
	"github.com/rs/zerolog"
)

// MasterPlayer owns the playback element. It is the only player that
// changes what is playing and the only one that broadcasts transport state.
type MasterPlayer struct {
	playerBase

	element *PlaybackElement
	// next returns the player after the given one in sweep order.
	next        func(*InlinePlayer) *InlinePlayer
	autoAdvance bool

	current *InlinePlayer
	pending *InlinePlayer
}

func newMasterPlayer(id string, container Node, bus *Coordinator, element *PlaybackElement, settings *Settings, log zerolog.Logger, next func(*InlinePlayer) *InlinePlayer) (*MasterPlayer, error) {
	base, err := newPlayerBase(id, container, bus, settings, log)
	if err != nil {
		return nil, err
	}

	m := &MasterPlayer{
		playerBase:  base,
		element:     element,
		next:        next,
		autoAdvance: settings.autoAdvance(),
	}
	m.bindControls(m)
	m.listen()
	m.events()
	return m, nil
}

// Active reports whether a track was ever loaded.
func (m *MasterPlayer) Active() bool {
	return m.initialized
}

// Playing reads the playback element; the master keeps no flag of its own.
func (m *MasterPlayer) Playing() bool {
	return m.initialized && !m.element.Paused()
}

// Current returns the inline player whose track is loaded, if any.
func (m *MasterPlayer) Current() *InlinePlayer {
	return m.current
}

// Pending returns the inline player waiting for its lookup, if any.
func (m *MasterPlayer) Pending() *InlinePlayer {
	return m.pending
}

// Element returns the playback element the master owns.
func (m *MasterPlayer) Element() *PlaybackElement {
	return m.element
}

// listen handles requests published by any player's controls.
func (m *MasterPlayer) listen() {
	m.bus.Subscribe(EventPlayPause, func(e Event) {
		switch src := e.Source.(type) {
		case *MasterPlayer:
			if m.initialized {
				m.TogglePlayPause()
			}
		case *InlinePlayer:
			if !src.Active() {
				m.LoadTrack(src)
			} else {
				m.TogglePlayPause()
			}
		}
	})
	m.bus.Subscribe(EventPlay, func(e Event) {
		switch src := e.Source.(type) {
		case *MasterPlayer:
			if m.initialized {
				m.Play()
			}
		case *InlinePlayer:
			if !src.Active() {
				m.LoadTrack(src)
			} else {
				m.Play()
			}
		}
	})
	m.bus.Subscribe(EventPause, func(e Event) {
		switch src := e.Source.(type) {
		case *MasterPlayer:
			if m.initialized {
				m.Pause()
			}
		case *InlinePlayer:
			if src.Active() {
				m.Pause()
			}
		}
	})

	m.bus.Subscribe(EventPlaying, func(Event) {
		if m.initialized {
			m.container.AddClass(ClassPlaying)
			m.mirrorPlayPauseText(true)
		}
	})
	m.bus.Subscribe(EventPaused, func(Event) {
		if m.initialized {
			m.container.RemoveClass(ClassPlaying)
			m.mirrorPlayPauseText(false)
		}
	})
	m.bus.Subscribe(EventTime, func(e Event) {
		if m.initialized {
			m.mirrorTimeText(e.Current, e.Total)
		}
	})
}

// events turns element signals into broadcasts. The master never publishes
// playing or paused on its own.
func (m *MasterPlayer) events() {
	m.element.Observe(func(sig Signal, current, total float64) {
		switch sig {
		case SignalPlaying:
			m.bus.Publish(Event{Type: EventPlaying, Source: m})
		case SignalPaused:
			m.bus.Publish(Event{Type: EventPaused, Source: m})
		case SignalTime:
			m.bus.Publish(Event{Type: EventTime, Source: m, Current: current, Total: total})
		case SignalEnded:
			m.bus.Publish(Event{Type: EventEnded, Source: m, Current: current, Total: total})
			m.advance()
		}
	})
}

func (m *MasterPlayer) Play() {
	if err := m.element.Play(); err != nil {
		m.log.Error().Err(err).Msg("play failed")
	}
}

func (m *MasterPlayer) Pause() {
	if err := m.element.Pause(); err != nil {
		m.log.Error().Err(err).Msg("pause failed")
	}
}

func (m *MasterPlayer) TogglePlayPause() {
	if err := m.element.TogglePlayPause(); err != nil {
		m.log.Error().Err(err).Msg("toggle failed")
	}
}

// LoadTrack makes src the playing track. A remote track is looked up first;
// if another track is requested before the lookup returns, the later
// request wins and the lookup result is only cached.
func (m *MasterPlayer) LoadTrack(src *InlinePlayer) {
	if src.lookupFailed {
		m.log.Debug().Str("track", src.ID()).Msg("ignoring track with failed lookup")
		return
	}
	info, err := src.TrackInfo()
	if err != nil {
		m.log.Warn().Err(err).Str("track", src.ID()).Msg("cannot load track")
		return
	}
	if !info.Resolved() {
		m.pending = src
		src.resolve(func(err error) {
			if m.pending != src {
				return
			}
			m.pending = nil
			if err == nil {
				m.LoadTrack(src)
			}
		})
		return
	}

	m.pending = nil
	m.Pause()
	if err := m.element.Clear(); err != nil {
		m.log.Error().Err(err).Msg("clearing sources failed")
	}
	if err := m.element.SetSources(info.Sources); err != nil {
		m.log.Error().Err(err).Strs("sources", info.Sources).Msg("installing sources failed")
		return
	}

	m.bus.Publish(Event{Type: EventDeactivate, Source: m})
	src.Activate()
	m.current = src
	m.initialize()
	m.log.Info().Str("track", src.ID()).Strs("sources", info.Sources).Msg("track loaded")
	m.Play()
}

func (m *MasterPlayer) initialize() {
	m.markInitialized()
	m.container.AddClass(ClassActive)
}

// advance loads the next track in sweep order after the current one ended.
func (m *MasterPlayer) advance() {
	if !m.autoAdvance || m.current == nil || m.next == nil {
		return
	}
	for next := m.next(m.current); next != nil; next = m.next(next) {
		if next.lookupFailed {
			continue
		}
		if _, err := next.TrackInfo(); err != nil {
			continue
		}
		m.LoadTrack(next)
		return
	}
}

// State reports where the master is in its lifecycle.
func (m *MasterPlayer) State() MasterState {
	switch {
	case !m.initialized:
		return MasterUninitialized
	case len(m.element.Sources()) == 0:
		return MasterIdle
	case m.element.Paused():
		return MasterActivePaused
	}
	return MasterActivePlaying
}
