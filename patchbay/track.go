package patchbay

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// TrackMetadata is what a player shows about its track.
type TrackMetadata struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	CoverURL string `json:"cover_url,omitempty"`
}

// TrackInfo is exchanged between an inline player and the master.
type TrackInfo struct {
	TrackMetadata
	Descriptor Descriptor `json:"-"`
	// Sources is empty for a remote track until its lookup succeeded.
	Sources []string `json:"sources"`
}

// Resolved reports whether the track has playable sources.
func (t TrackInfo) Resolved() bool {
	return len(t.Sources) > 0
}

// TrackRecord is one entry of a remote lookup response.
type TrackRecord struct {
	Title     string   `json:"title"`
	Artist    string   `json:"artist"`
	Album     string   `json:"album"`
	CoverURL  string   `json:"cover_url"`
	AudioURLs []string `json:"audio_urls"`
}

// Lookup fetches track records for an ordered list of ids.
type Lookup interface {
	Lookup(ctx context.Context, ids []string) (map[string]TrackRecord, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, ids []string) (map[string]TrackRecord, error)

func (f LookupFunc) Lookup(ctx context.Context, ids []string) (map[string]TrackRecord, error) {
	return f(ctx, ids)
}

// Resolver turns descriptors into playable URLs.
type Resolver struct {
	server  string
	lookup  Lookup
	loop    *Loop
	timeout time.Duration
	log     zerolog.Logger
}

// NewResolver creates a resolver. lookup may be nil, in which case every
// remote track fails to resolve.
func NewResolver(server string, lookup Lookup, loop *Loop, timeout time.Duration, log zerolog.Logger) *Resolver {
	return &Resolver{
		server:  server,
		lookup:  lookup,
		loop:    loop,
		timeout: timeout,
		log:     log,
	}
}

// Resolve returns the sources of a local or external descriptor. Remote
// descriptors return ErrNotResolved; use Fetch for them.
func (r *Resolver) Resolve(d Descriptor) ([]string, error) {
	switch d.Kind {
	case KindLocal:
		urls := make([]string, len(d.Locations))
		for i, loc := range d.Locations {
			urls[i] = r.server + loc
		}
		return urls, nil
	case KindExternal:
		return append([]string(nil), d.Locations...), nil
	case KindRemote:
		return nil, fmt.Errorf("%w: %s", ErrNotResolved, d)
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidDescriptor, d)
}

// Fetch looks ids up off the loop and posts done back onto it.
func (r *Resolver) Fetch(ids []string, done func(map[string]TrackRecord, error)) {
	if r.lookup == nil {
		r.loop.Post(func() {
			done(nil, fmt.Errorf("%w: no lookup configured", ErrLookupFailure))
		})
		return
	}

	ids = append([]string(nil), ids...)
	r.log.Debug().Strs("ids", ids).Msg("looking up tracks")
	go func() {
		ctx := context.Background()
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		records, err := r.lookup.Lookup(ctx, ids)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrLookupFailure, err)
		}
		r.loop.Post(func() {
			done(records, err)
		})
	}()
}
