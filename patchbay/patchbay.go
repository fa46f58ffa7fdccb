// Package patchbay coordinates one master audio player and any number of
// inline track players found in a document.
package patchbay

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
)

// MasterID is the entity id of the master player.
const MasterID = "master"

// Document finds player markers in the hosting document.
type Document interface {
	// Sweep returns the master markers of the whole document and the track
	// markers under scope, leaving out markers a previous sweep claimed.
	Sweep(scope string) (masters []Node, tracks []Node)
}

// Option configures a Patchbay.
type Option func(*Patchbay)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(pb *Patchbay) {
		pb.log = log
	}
}

// WithLookup sets the collaborator resolving id: tracks.
func WithLookup(lookup Lookup) Option {
	return func(pb *Patchbay) {
		pb.lookup = lookup
	}
}

// WithLoop runs the Patchbay on an existing loop.
func WithLoop(loop *Loop) Option {
	return func(pb *Patchbay) {
		pb.loop = loop
	}
}

// Patchbay ties one master player and any number of inline players to a
// document. All methods except Loop must run on the loop.
type Patchbay struct {
	settings Settings
	doc      Document
	backend  Backend
	lookup   Lookup
	log      zerolog.Logger

	loop     *Loop
	bus      *Coordinator
	element  *PlaybackElement
	resolver *Resolver

	master  *MasterPlayer
	players []*InlinePlayer
	byID    map[string]*InlinePlayer
	// claimed holds every id handed out, invalid markers included.
	claimed map[string]bool
	autoID  int
}

// SweepReport describes what one sweep found.
type SweepReport struct {
	MasterFound bool     `json:"master_found"`
	Added       []string `json:"added"`
	Invalid     []string `json:"invalid"`
}

// New creates a Patchbay over doc, playing through backend. Settings left
// unset take their defaults.
func New(settings Settings, doc Document, backend Backend, opts ...Option) *Patchbay {
	pb := &Patchbay{
		settings: settings.Merge(DefaultSettings()),
		doc:      doc,
		backend:  backend,
		log:      zerolog.Nop(),
		byID:     make(map[string]*InlinePlayer),
		claimed:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(pb)
	}
	if pb.loop == nil {
		pb.loop = NewLoop()
	}
	pb.bus = NewCoordinator(pb.log)
	pb.element = NewPlaybackElement(backend, pb.loop, pb.log)
	pb.resolver = NewResolver(pb.settings.Server, pb.lookup, pb.loop, pb.settings.LookupTimeout, pb.log)
	return pb
}

// Init runs the first sweep unless autosweep is disabled.
func (pb *Patchbay) Init() SweepReport {
	if !pb.settings.autosweep() {
		return SweepReport{MasterFound: pb.master != nil}
	}
	return pb.Sweep()
}

func (pb *Patchbay) Loop() *Loop {
	return pb.loop
}

func (pb *Patchbay) Coordinator() *Coordinator {
	return pb.bus
}

func (pb *Patchbay) Settings() Settings {
	return pb.settings
}

func (pb *Patchbay) Master() *MasterPlayer {
	return pb.master
}

// Players returns the inline players in sweep order.
func (pb *Patchbay) Players() []*InlinePlayer {
	return append([]*InlinePlayer(nil), pb.players...)
}

// Player returns the inline player with the given id.
func (pb *Patchbay) Player(id string) (*InlinePlayer, error) {
	p, ok := pb.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoEntity, id)
	}
	return p, nil
}

// Sweep binds the unclaimed markers of the configured scope.
func (pb *Patchbay) Sweep() SweepReport {
	return pb.SweepScope(pb.settings.Scope)
}

// SweepScope binds the unclaimed markers under scope. Markers bound by an
// earlier sweep are left alone, so it can run again after new content is
// inserted.
func (pb *Patchbay) SweepScope(scope string) SweepReport {
	masters, tracks := pb.doc.Sweep(scope)

	if pb.master == nil {
		pb.sweepMaster(masters)
	}

	report := SweepReport{MasterFound: pb.master != nil}
	var added []*InlinePlayer
	for _, n := range tracks {
		id := pb.nextID(n)
		p, err := newInlinePlayer(id, n, pb.bus, pb.resolver, &pb.settings, pb.log)
		n.AddClass(ClassBound)
		n.SetAttr(AttrID, id)
		if err != nil {
			n.AddClass(ClassInvalid)
			raw, _ := n.Attr(AttrTrack)
			pb.log.Warn().Err(err).Str("track", raw).Msg("skipping invalid player")
			report.Invalid = append(report.Invalid, id)
			continue
		}
		pb.players = append(pb.players, p)
		pb.byID[id] = p
		added = append(added, p)
		report.Added = append(report.Added, id)
	}

	if pb.settings.Prefetch {
		pb.fetch(added)
	}
	pb.log.Debug().
		Bool("master", report.MasterFound).
		Int("added", len(report.Added)).
		Int("invalid", len(report.Invalid)).
		Msg("sweep done")
	return report
}

func (pb *Patchbay) sweepMaster(masters []Node) {
	if len(masters) == 0 {
		pb.log.Warn().Msg("no master player found, no audio can be played")
		return
	}
	if len(masters) > 1 {
		pb.log.Warn().Int("found", len(masters)).Msg("more than one master player found, using the first")
	}

	n := masters[0]
	m, err := newMasterPlayer(MasterID, n, pb.bus, pb.element, &pb.settings, pb.log, pb.after)
	n.AddClass(ClassBound)
	n.SetAttr(AttrID, MasterID)
	if err != nil {
		n.AddClass(ClassInvalid)
		pb.log.Warn().Err(err).Msg("master player is invalid")
		return
	}
	pb.master = m
}

func (pb *Patchbay) nextID(n Node) string {
	if id, ok := n.Attr("id"); ok && id != "" && id != MasterID && !pb.claimed[id] {
		pb.claimed[id] = true
		return id
	}
	for {
		pb.autoID++
		id := "track-" + strconv.Itoa(pb.autoID)
		if !pb.claimed[id] {
			pb.claimed[id] = true
			return id
		}
	}
}

// after returns the player swept right after p, or nil.
func (pb *Patchbay) after(p *InlinePlayer) *InlinePlayer {
	for i, candidate := range pb.players {
		if candidate == p && i+1 < len(pb.players) {
			return pb.players[i+1]
		}
	}
	return nil
}

// Click clicks the element playing role in the entity with the given id.
// MasterID addresses the master.
func (pb *Patchbay) Click(id string, role Role) error {
	var ui UI
	if id == MasterID {
		if pb.master == nil {
			return ErrNoMaster
		}
		ui = pb.master.UI()
	} else {
		p, err := pb.Player(id)
		if err != nil {
			return err
		}
		ui = p.UI()
	}
	n, ok := ui[role]
	if !ok {
		return fmt.Errorf("%w: %q has no %s element", ErrUnknownRole, id, role)
	}
	n.Click()
	return nil
}

// RetryLookups looks up again every remote track whose lookup failed and
// returns how many were retried.
func (pb *Patchbay) RetryLookups() int {
	var failed []*InlinePlayer
	for _, p := range pb.players {
		if p.lookupFailed {
			p.lookupFailed = false
			failed = append(failed, p)
		}
	}
	pb.fetch(failed)
	return len(failed)
}

// fetch resolves the unresolved remote tracks among players with a single
// lookup.
func (pb *Patchbay) fetch(players []*InlinePlayer) {
	byRemoteID := make(map[string][]*InlinePlayer)
	var ids []string
	for _, p := range players {
		if p.descriptor.Kind != KindRemote || p.resolving {
			continue
		}
		if info, err := p.TrackInfo(); err != nil || info.Resolved() {
			continue
		}
		id := p.descriptor.ID
		if _, seen := byRemoteID[id]; !seen {
			ids = append(ids, id)
		}
		byRemoteID[id] = append(byRemoteID[id], p)
		p.resolving = true
	}
	if len(ids) == 0 {
		return
	}

	pb.resolver.Fetch(ids, func(records map[string]TrackRecord, err error) {
		for _, id := range ids {
			for _, p := range byRemoteID[id] {
				p.applyLookup(records, err)
			}
		}
	})
}
