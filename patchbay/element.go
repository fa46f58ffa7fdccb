package patchbay

import (
	"github.com/rs/zerolog"
)

// NativeEvent is what a Backend reports about the real media primitive.
type NativeEvent int

const (
	NativePlay NativeEvent = iota
	NativePause
	NativeTimeUpdate
	NativeEnded
)

// Backend is the real media primitive behind the PlaybackElement, such as
// a browser <audio> element or a local speaker.
type Backend interface {
	// Load replaces all sources. An empty list unloads the element.
	Load(urls []string) error
	Play() error
	Pause() error
	Paused() bool
	// Position returns the current time and total duration in seconds.
	Position() (current, total float64)
	// SetNotifier installs the callback for native events. The backend may
	// call it from any goroutine.
	SetNotifier(fn func(NativeEvent))
}

// Signal is one of the four observations the rest of the system reacts to.
type Signal int

const (
	SignalPlaying Signal = iota
	SignalPaused
	SignalTime
	SignalEnded
)

// SignalHandler observes the element. current and total are in seconds.
type SignalHandler func(sig Signal, current, total float64)

// PlaybackElement wraps the single Backend. Each source change starts a new
// generation; time and ended notifications of older generations are dropped.
type PlaybackElement struct {
	backend Backend
	loop    *Loop
	log     zerolog.Logger

	sources     []string
	gen         uint64
	lastPlaying bool
	observers   []SignalHandler
}

// NewPlaybackElement wraps backend. Notifications are delivered on loop.
func NewPlaybackElement(backend Backend, loop *Loop, log zerolog.Logger) *PlaybackElement {
	e := &PlaybackElement{
		backend: backend,
		loop:    loop,
		log:     log,
	}
	e.backend.SetNotifier(e.notifier(e.gen))
	return e
}

// Observe registers h for element signals.
func (e *PlaybackElement) Observe(h SignalHandler) {
	e.observers = append(e.observers, h)
}

// Sources returns a copy of the installed source list.
func (e *PlaybackElement) Sources() []string {
	return append([]string(nil), e.sources...)
}

// Paused reports the real state of the backend.
func (e *PlaybackElement) Paused() bool {
	return e.backend.Paused()
}

// Position returns the current time and total duration in seconds.
func (e *PlaybackElement) Position() (current, total float64) {
	return e.backend.Position()
}

// Clear pauses and removes every source.
func (e *PlaybackElement) Clear() error {
	return e.SetSources(nil)
}

// SetSources stops playback and replaces all sources. Notifications still
// in flight for the previous sources are discarded.
func (e *PlaybackElement) SetSources(urls []string) error {
	if err := e.Pause(); err != nil {
		return err
	}
	e.gen++
	e.backend.SetNotifier(e.notifier(e.gen))
	e.sources = append([]string(nil), urls...)
	return e.backend.Load(e.sources)
}

// Play starts playback. It is a no-op while already playing.
func (e *PlaybackElement) Play() error {
	if len(e.sources) == 0 {
		return ErrNotResolved
	}
	if !e.backend.Paused() {
		return nil
	}
	return e.backend.Play()
}

// Pause stops playback. It is a no-op while already paused.
func (e *PlaybackElement) Pause() error {
	if e.backend.Paused() {
		return nil
	}
	return e.backend.Pause()
}

// TogglePlayPause plays when paused and pauses otherwise.
func (e *PlaybackElement) TogglePlayPause() error {
	if e.backend.Paused() {
		return e.Play()
	}
	return e.Pause()
}

func (e *PlaybackElement) notifier(gen uint64) func(NativeEvent) {
	return func(ev NativeEvent) {
		e.loop.Post(func() {
			e.dispatch(gen, ev)
		})
	}
}

func (e *PlaybackElement) dispatch(gen uint64, ev NativeEvent) {
	switch ev {
	case NativePlay:
		// Each notification stands for the transition that produced it, so
		// toggles queued before the loop runs still signal once each.
		if e.lastPlaying {
			return
		}
		e.lastPlaying = true
		e.emit(SignalPlaying)
	case NativePause:
		if !e.lastPlaying {
			return
		}
		e.lastPlaying = false
		e.emit(SignalPaused)
	case NativeTimeUpdate:
		if gen != e.gen {
			return
		}
		e.emit(SignalTime)
	case NativeEnded:
		if gen != e.gen {
			e.log.Debug().Uint64("generation", gen).Msg("dropping ended of replaced sources")
			return
		}
		e.emit(SignalEnded)
	}
}

func (e *PlaybackElement) emit(sig Signal) {
	current, total := e.backend.Position()
	for _, h := range e.observers {
		h(sig, current, total)
	}
}
