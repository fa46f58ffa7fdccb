// Package speakerout plays the patchbay element through the local sound
// card with faiface/beep.
package speakerout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/rs/zerolog"

	"github.com/himanshub16/patchbay/patchbay"
)

// SampleRate is what the speaker runs at; sources are resampled to it.
const SampleRate = beep.SampleRate(48000)

const tickInterval = 250 * time.Millisecond

var errUnsupported = errors.New("unsupported audio format")

// Backend is a patchbay.Backend driving the speaker.
type Backend struct {
	mu     sync.Mutex
	client *http.Client
	log    zerolog.Logger

	// urls is what the last Load asked for; source is the one that decoded.
	urls    []string
	source  string
	loadErr error
	stream  beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	volume *effects.Volume
	gain   float64
	paused bool
	// gen tells end-of-stream callbacks of earlier loads apart.
	gen    uint64
	notify func(patchbay.NativeEvent)

	stop chan struct{}
}

var _ patchbay.Backend = (*Backend)(nil)

// New initializes the speaker and starts reporting time updates.
func New(log zerolog.Logger) (*Backend, error) {
	if err := speaker.Init(SampleRate, SampleRate.N(time.Millisecond*100)); err != nil {
		return nil, fmt.Errorf("initializing speaker: %w", err)
	}
	b := newBackend(http.DefaultClient, log)
	go b.tick()
	return b, nil
}

func newBackend(client *http.Client, log zerolog.Logger) *Backend {
	return &Backend{
		client: client,
		log:    log,
		paused: true,
		notify: func(patchbay.NativeEvent) {},
		stop:   make(chan struct{}),
	}
}

// Source returns the URL that decoded on the last Load.
func (b *Backend) Source() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.source
}

// Load stops playback and starts fetching urls in the background. The first
// one that decodes becomes the source; Play before that only records the
// intent and playback starts once it is ready.
func (b *Backend) Load(urls []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unloadLocked()
	if len(urls) == 0 {
		return nil
	}
	b.urls = append([]string(nil), urls...)
	go b.fetchFirst(b.gen, b.urls)
	return nil
}

func (b *Backend) fetchFirst(gen uint64, urls []string) {
	var errs []string
	for _, u := range urls {
		stream, format, err := b.open(u)
		if err != nil {
			b.log.Debug().Err(err).Str("url", u).Msg("source rejected")
			errs = append(errs, err.Error())
			continue
		}

		b.mu.Lock()
		if gen != b.gen {
			b.mu.Unlock()
			stream.Close()
			return
		}
		b.source = u
		b.stream = stream
		b.format = format
		if !b.paused {
			b.startLocked()
		}
		b.mu.Unlock()
		b.log.Info().Str("url", u).Dur("length", format.SampleRate.D(stream.Len())).Msg("source loaded")
		return
	}

	err := fmt.Errorf("no playable source: %s", strings.Join(errs, "; "))
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.loadErr = err
	wasPlaying := !b.paused
	b.paused = true
	notify := b.notify
	b.mu.Unlock()

	b.log.Error().Err(err).Msg("loading failed")
	if wasPlaying {
		notify(patchbay.NativePause)
	}
}

// loadError returns why the last Load found nothing to play, if it did.
func (b *Backend) loadError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadErr
}

func (b *Backend) Play() error {
	b.mu.Lock()
	if len(b.urls) == 0 {
		b.mu.Unlock()
		return errors.New("nothing loaded")
	}
	if b.loadErr != nil {
		err := b.loadErr
		b.mu.Unlock()
		return err
	}
	switch {
	case b.stream == nil:
		// still fetching; fetchFirst starts playback
	case b.ctrl == nil:
		if b.stream.Position() >= b.stream.Len() {
			if err := b.stream.Seek(0); err != nil {
				b.log.Warn().Err(err).Msg("rewinding failed")
			}
		}
		b.startLocked()
	default:
		speaker.Lock()
		b.ctrl.Paused = false
		speaker.Unlock()
	}
	b.paused = false
	notify := b.notify
	b.mu.Unlock()

	notify(patchbay.NativePlay)
	return nil
}

func (b *Backend) startLocked() {
	var s beep.Streamer = b.stream
	if b.format.SampleRate != SampleRate {
		s = beep.Resample(4, b.format.SampleRate, SampleRate, s)
	}
	b.volume = &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   b.gain,
	}
	b.ctrl = &beep.Ctrl{Streamer: b.volume}

	gen := b.gen
	speaker.Play(beep.Seq(b.ctrl, beep.Callback(func() {
		// runs under the speaker lock
		go b.ended(gen)
	})))
}

func (b *Backend) ended(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.paused = true
	b.ctrl = nil
	b.volume = nil
	notify := b.notify
	b.mu.Unlock()

	notify(patchbay.NativePause)
	notify(patchbay.NativeEnded)
}

func (b *Backend) Pause() error {
	b.mu.Lock()
	if b.ctrl != nil {
		speaker.Lock()
		b.ctrl.Paused = true
		speaker.Unlock()
	}
	b.paused = true
	notify := b.notify
	b.mu.Unlock()

	notify(patchbay.NativePause)
	return nil
}

func (b *Backend) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

func (b *Backend) Position() (float64, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream == nil {
		return 0, 0
	}
	speaker.Lock()
	pos, n := b.stream.Position(), b.stream.Len()
	speaker.Unlock()
	return seconds(b.format.SampleRate, pos), seconds(b.format.SampleRate, n)
}

func (b *Backend) SetNotifier(fn func(patchbay.NativeEvent)) {
	b.mu.Lock()
	b.notify = fn
	b.mu.Unlock()
}

// SetVolume sets the gain in halvings/doublings, 0 being unchanged.
func (b *Backend) SetVolume(gain float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gain = gain
	if b.volume != nil {
		speaker.Lock()
		b.volume.Volume = gain
		speaker.Unlock()
	}
}

// Close stops playback and the time updates.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.stop:
	default:
		close(b.stop)
	}
	b.unloadLocked()
	return nil
}

func (b *Backend) tick() {
	t := time.NewTicker(tickInterval)
	defer t.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-t.C:
			b.mu.Lock()
			playing := !b.paused
			notify := b.notify
			b.mu.Unlock()
			if playing {
				notify(patchbay.NativeTimeUpdate)
			}
		}
	}
}

// open fetches u whole and decodes it by its extension.
func (b *Backend) open(u string) (beep.StreamSeekCloser, beep.Format, error) {
	decode, err := decoderFor(u)
	if err != nil {
		return nil, beep.Format{}, err
	}
	data, err := b.fetch(u)
	if err != nil {
		return nil, beep.Format{}, err
	}
	return decode(readSeekCloser{bytes.NewReader(data)})
}

func (b *Backend) fetch(u string) ([]byte, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, err
	}
	switch parsed.Scheme {
	case "", "file":
		return os.ReadFile(parsed.Path)
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

type decoder func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

func decoderFor(u string) (decoder, error) {
	p := u
	if parsed, err := url.Parse(u); err == nil {
		p = parsed.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".mp3":
		return mp3.Decode, nil
	case ".wav":
		return func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
			return wav.Decode(rc)
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", errUnsupported, u)
}

func seconds(rate beep.SampleRate, n int) float64 {
	if rate == 0 {
		return 0
	}
	return rate.D(n).Seconds()
}

// readSeekCloser keeps Seek visible to the decoders.
type readSeekCloser struct {
	*bytes.Reader
}

func (readSeekCloser) Close() error { return nil }
