package patchbay

import (
	"fmt"

	"github.com/rs/zerolog"
)

// InlinePlayer is a track marker. It never touches the playback element;
// it only requests activation and mirrors what the master broadcasts.
type InlinePlayer struct {
	playerBase

	descriptor Descriptor
	resolver   *Resolver

	active  bool
	playing bool

	info *TrackInfo

	resolving    bool
	lookupFailed bool
	lookupErr    error
	waiters      []func(error)
}

func newInlinePlayer(id string, container Node, bus *Coordinator, resolver *Resolver, settings *Settings, log zerolog.Logger) (*InlinePlayer, error) {
	raw, _ := container.Attr(AttrTrack)
	descriptor, err := ParseDescriptor(raw)
	if err != nil {
		return nil, err
	}
	base, err := newPlayerBase(id, container, bus, settings, log)
	if err != nil {
		return nil, err
	}

	p := &InlinePlayer{
		playerBase: base,
		descriptor: descriptor,
		resolver:   resolver,
	}
	p.bindControls(p)
	p.listen()
	return p, nil
}

func (p *InlinePlayer) Active() bool {
	return p.active
}

func (p *InlinePlayer) Playing() bool {
	return p.playing
}

// Descriptor returns the parsed track attribute.
func (p *InlinePlayer) Descriptor() Descriptor {
	return p.descriptor
}

// LookupFailed reports whether the last remote lookup for this track failed.
func (p *InlinePlayer) LookupFailed() bool {
	return p.lookupFailed
}

func (p *InlinePlayer) listen() {
	p.bus.Subscribe(EventDeactivate, func(Event) {
		if p.active {
			p.deactivate()
		}
	})
	p.bus.Subscribe(EventPlaying, func(Event) {
		if p.active {
			p.setPlaying(true)
		}
	})
	p.bus.Subscribe(EventPaused, func(Event) {
		if p.active {
			p.setPlaying(false)
		}
	})
	p.bus.Subscribe(EventTime, func(e Event) {
		if p.active {
			p.mirrorTimeText(e.Current, e.Total)
		}
	})
}

// TrackInfo returns the track's metadata and sources. The first call reads
// the metadata from the role elements; later calls return the cached value.
func (p *InlinePlayer) TrackInfo() (TrackInfo, error) {
	if p.info != nil {
		return *p.info, nil
	}

	info := TrackInfo{Descriptor: p.descriptor}
	if n, ok := p.ui[RoleTitle]; ok {
		info.Title = n.Text()
	}
	if n, ok := p.ui[RoleArtist]; ok {
		info.Artist = n.Text()
	}
	if n, ok := p.ui[RoleAlbum]; ok {
		info.Album = n.Text()
	}
	if n, ok := p.ui[RoleCover]; ok {
		info.CoverURL, _ = n.Attr("src")
	}
	if p.descriptor.Kind != KindRemote {
		sources, err := p.resolver.Resolve(p.descriptor)
		if err != nil {
			return TrackInfo{}, err
		}
		info.Sources = sources
	}
	p.info = &info
	return info, nil
}

// Activate is addressed by the master to the player whose track it just
// loaded. The first activation also initializes the player.
func (p *InlinePlayer) Activate() {
	if p.active {
		return
	}
	p.markInitialized()
	p.active = true
	p.container.AddClass(ClassActive)
	p.setPlaying(true)
}

func (p *InlinePlayer) deactivate() {
	p.active = false
	p.container.RemoveClass(ClassActive)
	p.setPlaying(false)
}

func (p *InlinePlayer) setPlaying(playing bool) {
	p.playing = playing
	setClass(p.container, ClassPlaying, playing)
	p.mirrorPlayPauseText(playing)
}

// resolve fetches the remote record of the track and calls done on the loop
// once it is known. Concurrent requests share one lookup.
func (p *InlinePlayer) resolve(done func(error)) {
	if done != nil {
		p.waiters = append(p.waiters, done)
	}
	if p.resolving {
		return
	}
	p.resolving = true
	p.resolver.Fetch([]string{p.descriptor.ID}, p.applyLookup)
}

func (p *InlinePlayer) applyLookup(records map[string]TrackRecord, err error) {
	p.resolving = false
	if err == nil {
		rec, ok := records[p.descriptor.ID]
		switch {
		case !ok:
			err = fmt.Errorf("%w: id %q missing from response", ErrLookupFailure, p.descriptor.ID)
		case len(rec.AudioURLs) == 0:
			err = fmt.Errorf("%w: id %q has no audio", ErrLookupFailure, p.descriptor.ID)
		default:
			err = p.applyRecord(rec)
		}
	}

	if err != nil {
		p.lookupFailed = true
		p.lookupErr = err
		p.log.Warn().Err(err).Str("track", p.descriptor.String()).Msg("lookup failed")
	} else {
		p.lookupFailed = false
		p.lookupErr = nil
	}

	waiters := p.waiters
	p.waiters = nil
	for _, w := range waiters {
		w(err)
	}
}

// applyRecord completes the cached TrackInfo with a lookup result. Markup
// metadata wins over the record; empty role elements are filled in.
func (p *InlinePlayer) applyRecord(rec TrackRecord) error {
	info, err := p.TrackInfo()
	if err != nil {
		return err
	}
	if info.Resolved() {
		return nil
	}

	fill := func(dst *string, value string, role Role) {
		if *dst != "" || value == "" {
			return
		}
		*dst = value
		if n, ok := p.ui[role]; ok {
			n.SetText(value)
		}
	}
	fill(&info.Title, rec.Title, RoleTitle)
	fill(&info.Artist, rec.Artist, RoleArtist)
	fill(&info.Album, rec.Album, RoleAlbum)
	if info.CoverURL == "" && rec.CoverURL != "" {
		info.CoverURL = rec.CoverURL
		if n, ok := p.ui[RoleCover]; ok {
			n.SetAttr("src", rec.CoverURL)
		}
	}
	info.Sources = append([]string(nil), rec.AudioURLs...)
	p.info = &info
	return nil
}

// State reports where the player is in its lifecycle.
func (p *InlinePlayer) State() InlineState {
	switch {
	case !p.initialized:
		return InlineDormant
	case !p.active:
		return InlineInactive
	case !p.playing:
		return InlineActivePaused
	}
	return InlineActivePlaying
}
