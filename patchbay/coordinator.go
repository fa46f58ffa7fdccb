package patchbay

import (
	"fmt"

	"github.com/rs/zerolog"
)

// EventType names a coordinator broadcast.
type EventType string

const (
	// Requests, published by a player's own controls.
	EventPlayPause EventType = "patchbay-playpause"
	EventPlay      EventType = "patchbay-play"
	EventPause     EventType = "patchbay-pause"

	// Transport state, published only by the master.
	EventPlaying    EventType = "patchbay-playing"
	EventPaused     EventType = "patchbay-paused"
	EventTime       EventType = "patchbay-time"
	EventEnded      EventType = "patchbay-ended"
	EventDeactivate EventType = "patchbay-deactivate"
)

// Event is one broadcast on the coordinator.
type Event struct {
	Type   EventType
	Source Player
	// Current and Total are set on EventTime, in seconds.
	Current float64
	Total   float64
}

// Handler receives events it subscribed to.
type Handler func(Event)

// Coordinator is the publish/subscribe channel every player emits and
// listens on. Publish delivers synchronously, in subscription order.
type Coordinator struct {
	handlers map[EventType][]Handler
	log      zerolog.Logger
}

// NewCoordinator creates a coordinator with no subscribers.
func NewCoordinator(log zerolog.Logger) *Coordinator {
	return &Coordinator{
		handlers: make(map[EventType][]Handler),
		log:      log,
	}
}

// Subscribe registers h for events of type t.
func (c *Coordinator) Subscribe(t EventType, h Handler) {
	c.handlers[t] = append(c.handlers[t], h)
}

// Publish delivers e to every subscriber of its type. A panicking
// subscriber is logged and skipped; the rest still receive the event.
func (c *Coordinator) Publish(e Event) {
	handlers := c.handlers[e.Type]
	for _, h := range handlers {
		c.deliver(h, e)
	}
}

func (c *Coordinator) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Str("event", string(e.Type)).
				Str("error", fmt.Sprint(r)).
				Msg("subscriber failed")
		}
	}()
	h(e)
}
