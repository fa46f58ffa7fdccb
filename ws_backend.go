package main

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/himanshub16/patchbay/patchbay"
)

var upgrader websocket.Upgrader

// wsMessage travels both ways on a player socket. The server sends ops
// (load, play, pause, status); the browser sends events (play, pause,
// timeupdate, ended, click). Seq numbers loads; the browser echoes the seq
// of the load its element is playing.
type wsMessage struct {
	Op      string           `json:"op,omitempty"`
	Seq     uint64           `json:"seq,omitempty"`
	Sources []string         `json:"sources,omitempty"`
	Status  *patchbay.Status `json:"status,omitempty"`

	Event       string  `json:"event,omitempty"`
	CurrentTime float64 `json:"currentTime,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	Entity      string  `json:"entity,omitempty"`
	Role        string  `json:"role,omitempty"`
}

type wsConn struct {
	id       string
	outgoing chan wsMessage
}

// WSBackend is the playback backend for <audio> elements in connected
// browsers. The server holds the authoritative element state; every browser
// mirrors it, and only the oldest connection (the owner) reports native
// events back.
type WSBackend struct {
	mu      sync.Mutex
	conns   map[string]*wsConn
	order   []string
	sources []string
	seq     uint64
	paused  bool
	current float64
	total   float64
	notify  func(patchbay.NativeEvent)
	onClick func(entity string, role patchbay.Role)
	log     zerolog.Logger
}

func NewWSBackend(log zerolog.Logger) *WSBackend {
	return &WSBackend{
		conns:  make(map[string]*wsConn),
		paused: true,
		notify: func(patchbay.NativeEvent) {},
		log:    log,
	}
}

// OnClick sets the callback for UI clicks reported by browsers.
func (b *WSBackend) OnClick(fn func(entity string, role patchbay.Role)) {
	b.mu.Lock()
	b.onClick = fn
	b.mu.Unlock()
}

func (b *WSBackend) Load(urls []string) error {
	b.mu.Lock()
	b.sources = append([]string(nil), urls...)
	b.seq++
	b.paused = true
	b.current, b.total = 0, 0
	b.broadcastLocked(wsMessage{Op: "load", Seq: b.seq, Sources: b.sources})
	b.mu.Unlock()
	return nil
}

func (b *WSBackend) Play() error {
	b.mu.Lock()
	if len(b.sources) == 0 {
		b.mu.Unlock()
		return errors.New("nothing loaded")
	}
	b.paused = false
	b.broadcastLocked(wsMessage{Op: "play"})
	notify := b.notify
	b.mu.Unlock()

	notify(patchbay.NativePlay)
	return nil
}

func (b *WSBackend) Pause() error {
	b.mu.Lock()
	b.paused = true
	b.broadcastLocked(wsMessage{Op: "pause"})
	notify := b.notify
	b.mu.Unlock()

	notify(patchbay.NativePause)
	return nil
}

func (b *WSBackend) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

func (b *WSBackend) Position() (float64, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, b.total
}

func (b *WSBackend) SetNotifier(fn func(patchbay.NativeEvent)) {
	b.mu.Lock()
	b.notify = fn
	b.mu.Unlock()
}

// Broadcast sends a status snapshot to every browser.
func (b *WSBackend) Broadcast(st patchbay.Status) {
	b.mu.Lock()
	b.broadcastLocked(wsMessage{Op: "status", Status: &st})
	b.mu.Unlock()
}

func (b *WSBackend) broadcastLocked(msg wsMessage) {
	for _, c := range b.conns {
		select {
		case c.outgoing <- msg:
		default:
			b.log.Warn().Str("conn", c.id).Str("op", msg.Op).Msg("dropping message for slow client")
		}
	}
}

// Connections returns the number of connected browsers.
func (b *WSBackend) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func (b *WSBackend) openConn() *wsConn {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := &wsConn{
		id:       uuid.New().String(),
		outgoing: make(chan wsMessage, 32),
	}
	b.conns[c.id] = c
	b.order = append(b.order, c.id)

	// catch the new browser up with the element
	if len(b.sources) > 0 {
		c.outgoing <- wsMessage{Op: "load", Seq: b.seq, Sources: b.sources}
		if !b.paused {
			c.outgoing <- wsMessage{Op: "play"}
		}
	}
	return c
}

func (b *WSBackend) closeConn(c *wsConn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.conns, c.id)
	for i, id := range b.order {
		if id == c.id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	close(c.outgoing)
}

func (b *WSBackend) isOwner(c *wsConn) bool {
	return len(b.order) > 0 && b.order[0] == c.id
}

// handleMessage applies an event reported by a browser.
func (b *WSBackend) handleMessage(c *wsConn, msg wsMessage) {
	if msg.Event == "click" {
		b.mu.Lock()
		onClick := b.onClick
		b.mu.Unlock()
		if onClick != nil {
			onClick(msg.Entity, patchbay.Role(msg.Role))
		}
		return
	}

	b.mu.Lock()
	if !b.isOwner(c) {
		b.mu.Unlock()
		return
	}
	if msg.Seq != b.seq {
		// reported for sources that were replaced since
		b.mu.Unlock()
		b.log.Debug().Str("event", msg.Event).Uint64("seq", msg.Seq).Msg("dropping stale event")
		return
	}
	var events []patchbay.NativeEvent
	switch msg.Event {
	case "play":
		if b.paused {
			b.paused = false
			b.broadcastOthersLocked(c, wsMessage{Op: "play"})
		}
		events = append(events, patchbay.NativePlay)
	case "pause":
		if !b.paused {
			b.paused = true
			b.broadcastOthersLocked(c, wsMessage{Op: "pause"})
		}
		events = append(events, patchbay.NativePause)
	case "timeupdate":
		b.current, b.total = msg.CurrentTime, msg.Duration
		events = append(events, patchbay.NativeTimeUpdate)
	case "ended":
		b.paused = true
		b.current = b.total
		events = append(events, patchbay.NativePause, patchbay.NativeEnded)
	default:
		b.log.Debug().Str("event", msg.Event).Msg("ignoring unknown event")
	}
	notify := b.notify
	b.mu.Unlock()

	for _, ev := range events {
		notify(ev)
	}
}

func (b *WSBackend) broadcastOthersLocked(from *wsConn, msg wsMessage) {
	for _, c := range b.conns {
		if c.id == from.id {
			continue
		}
		select {
		case c.outgoing <- msg:
		default:
		}
	}
}

// serve pumps messages for one websocket until either side closes it.
func (b *WSBackend) serve(ws *websocket.Conn) {
	c := b.openConn()
	log := b.log.With().Str("conn", c.id).Logger()
	log.Info().Msg("player connected")

	// receive messages
	go func() {
		defer ws.Close()
		for {
			var msg wsMessage
			if err := ws.ReadJSON(&msg); err != nil {
				log.Debug().Err(err).Msg("read failed")
				b.closeConn(c)
				return
			}
			b.handleMessage(c, msg)
		}
	}()

	// send messages
	for msg := range c.outgoing {
		if err := ws.WriteJSON(msg); err != nil {
			log.Debug().Err(err).Msg("write failed")
			ws.Close()
			break
		}
	}
	// drain until the reader notices the close
	for range c.outgoing {
	}
	ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	log.Info().Msg("player disconnected")
}
