package patchbay_test

import (
	"sync"

	"github.com/himanshub16/patchbay/patchbay"
)

// fakeBackend stands in for the real media primitive. It reports play and
// pause synchronously, the way an <audio> element fires its events.
type fakeBackend struct {
	mu      sync.Mutex
	sources []string
	paused  bool
	current float64
	total   float64
	notify  func(patchbay.NativeEvent)

	loads  [][]string
	plays  int
	pauses int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{paused: true}
}

func (b *fakeBackend) Load(urls []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append([]string(nil), urls...)
	b.loads = append(b.loads, b.sources)
	b.paused = true
	b.current = 0
	return nil
}

func (b *fakeBackend) Play() error {
	b.mu.Lock()
	b.plays++
	b.paused = false
	notify := b.notify
	b.mu.Unlock()
	notify(patchbay.NativePlay)
	return nil
}

func (b *fakeBackend) Pause() error {
	b.mu.Lock()
	b.pauses++
	b.paused = true
	notify := b.notify
	b.mu.Unlock()
	notify(patchbay.NativePause)
	return nil
}

func (b *fakeBackend) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

func (b *fakeBackend) Position() (float64, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, b.total
}

func (b *fakeBackend) SetNotifier(fn func(patchbay.NativeEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notify = fn
}

func (b *fakeBackend) notifier() func(patchbay.NativeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notify
}

// progress moves the playhead and fires a time update.
func (b *fakeBackend) progress(current, total float64) {
	b.mu.Lock()
	b.current, b.total = current, total
	notify := b.notify
	b.mu.Unlock()
	notify(patchbay.NativeTimeUpdate)
}

// end plays the track out: the element pauses, then reports ended.
func (b *fakeBackend) end() {
	b.mu.Lock()
	b.paused = true
	b.current = b.total
	notify := b.notify
	b.mu.Unlock()
	notify(patchbay.NativePause)
	notify(patchbay.NativeEnded)
}

func (b *fakeBackend) snapshot() (sources []string, loads, plays, pauses int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sources...), len(b.loads), b.plays, b.pauses
}
