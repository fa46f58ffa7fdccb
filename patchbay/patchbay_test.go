package patchbay_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanshub16/patchbay/htmldoc"
	"github.com/himanshub16/patchbay/patchbay"
)

const testServer = "http://example.test/"

const scenarioPage = `<html><body>
<div id="player" data-patchbay-master>
  <button data-patchbay-ui="playpause">Play</button>
  <span data-patchbay-ui="currenttime">0:00</span> / <span data-patchbay-ui="duration">0:00</span>
</div>
<div id="content">
  <div id="a" data-patchbay-track="url:trackA.mp3">
    <button data-patchbay-ui="playpause">Play</button>
    <span data-patchbay-ui="title">Track A</span>
    <span data-patchbay-ui="artist">Artist A</span>
    <span data-patchbay-ui="currenttime"></span>
  </div>
  <div id="b" data-patchbay-track="id:42">
    <button data-patchbay-ui="playpause">Play</button>
    <span data-patchbay-ui="title"></span>
    <img data-patchbay-ui="cover">
  </div>
</div>
</body></html>`

const playlistPage = `<html><body>
<div data-patchbay-master><button data-patchbay-ui="playpause">Play</button></div>
<div data-patchbay-track="url:one.mp3"><button data-patchbay-ui="playpause">Play</button></div>
<div data-patchbay-track="ext:https://cdn.example/two.mp3"><button data-patchbay-ui="play">Play</button><button data-patchbay-ui="pause">Pause</button></div>
<div data-patchbay-track="url:three.mp3,three.ogg"><button data-patchbay-ui="playpause">Play</button></div>
</body></html>`

// gatedLookup answers lookups only once released.
type gatedLookup struct {
	mu      sync.Mutex
	calls   [][]string
	release chan struct{}
	records map[string]patchbay.TrackRecord
	err     error
}

func newGatedLookup() *gatedLookup {
	return &gatedLookup{
		release: make(chan struct{}),
		records: map[string]patchbay.TrackRecord{
			"42": {Title: "Remote 42", Artist: "Someone", CoverURL: "https://cdn.example/42.jpg", AudioURLs: []string{"https://cdn.example/42.mp3"}},
		},
	}
}

func (g *gatedLookup) Lookup(ctx context.Context, ids []string) (map[string]patchbay.TrackRecord, error) {
	g.mu.Lock()
	g.calls = append(g.calls, ids)
	g.mu.Unlock()
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.records, g.err
}

func (g *gatedLookup) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fixture struct {
	doc     *htmldoc.Document
	backend *fakeBackend
	pb      *patchbay.Patchbay
}

func newFixture(t *testing.T, page string, settings patchbay.Settings, opts ...patchbay.Option) *fixture {
	t.Helper()
	doc, err := htmldoc.ParseString(page)
	require.NoError(t, err)
	if settings.Server == "" {
		settings.Server = testServer
	}
	backend := newFakeBackend()
	pb := patchbay.New(settings, doc, backend, opts...)
	pb.Init()
	return &fixture{doc: doc, backend: backend, pb: pb}
}

func (f *fixture) click(t *testing.T, id string, role patchbay.Role) {
	t.Helper()
	require.NoError(t, f.pb.Click(id, role))
	f.pb.Loop().Drain()
}

func (f *fixture) player(t *testing.T, id string) *patchbay.InlinePlayer {
	t.Helper()
	p, err := f.pb.Player(id)
	require.NoError(t, err)
	return p
}

func text(t *testing.T, doc *htmldoc.Document, id string) string {
	t.Helper()
	n, ok := doc.ByID(id)
	require.True(t, ok)
	return n.Text()
}

func TestScenarioLocalThenRemote(t *testing.T) {
	lookup := newGatedLookup()
	f := newFixture(t, scenarioPage, patchbay.Settings{}, patchbay.WithLookup(lookup))
	a, b := f.player(t, "a"), f.player(t, "b")

	f.click(t, "a", patchbay.RolePlayPause)

	sources, _, _, _ := f.backend.snapshot()
	assert.Equal(t, []string{testServer + "trackA.mp3"}, sources)
	assert.True(t, a.Active())
	assert.True(t, a.Playing())
	assert.Equal(t, patchbay.InlineDormant, b.State())
	assert.Equal(t, patchbay.MasterActivePlaying, f.pb.Master().State())
	assert.Equal(t, "Pause", a.UI()[patchbay.RolePlayPause].Text())
	assert.True(t, a.Container().HasClass(patchbay.ClassPlaying))

	f.click(t, "b", patchbay.RolePlayPause)

	// Nothing changes while the lookup is outstanding.
	sources, _, _, _ = f.backend.snapshot()
	assert.Equal(t, []string{testServer + "trackA.mp3"}, sources)
	assert.True(t, a.Playing())
	assert.Same(t, b, f.pb.Master().Pending())

	close(lookup.release)
	require.Eventually(t, func() bool {
		f.pb.Loop().Drain()
		return b.Active()
	}, time.Second, 5*time.Millisecond)

	sources, _, _, _ = f.backend.snapshot()
	assert.Equal(t, []string{"https://cdn.example/42.mp3"}, sources)
	assert.Equal(t, patchbay.InlineInactive, a.State())
	assert.False(t, a.Playing())
	assert.Equal(t, "Play", a.UI()[patchbay.RolePlayPause].Text())
	assert.True(t, b.Playing())
	assert.Equal(t, 1, lookup.callCount())

	info, err := b.TrackInfo()
	require.NoError(t, err)
	assert.Equal(t, "Remote 42", info.Title)
	assert.Equal(t, "Remote 42", b.UI()[patchbay.RoleTitle].Text())
	cover, _ := b.UI()[patchbay.RoleCover].Attr("src")
	assert.Equal(t, "https://cdn.example/42.jpg", cover)
}

func TestReactivatingActiveTrackToggles(t *testing.T) {
	f := newFixture(t, scenarioPage, patchbay.Settings{})
	a := f.player(t, "a")

	f.click(t, "a", patchbay.RolePlayPause)
	f.click(t, "a", patchbay.RolePlayPause)

	sources, loads, _, _ := f.backend.snapshot()
	assert.Equal(t, []string{testServer + "trackA.mp3"}, sources)
	// One Clear and one SetSources for the single activation.
	assert.Equal(t, 2, loads)
	assert.True(t, a.Active())
	assert.False(t, a.Playing())
	assert.Equal(t, patchbay.MasterActivePaused, f.pb.Master().State())

	f.click(t, "a", patchbay.RolePlayPause)
	_, loads, _, _ = f.backend.snapshot()
	assert.Equal(t, 2, loads)
	assert.True(t, a.Playing())
}

func TestMasterPauseThenDeactivatePausesOnce(t *testing.T) {
	f := newFixture(t, scenarioPage, patchbay.Settings{})

	f.click(t, "a", patchbay.RolePlayPause)
	_, _, _, before := f.backend.snapshot()

	f.click(t, patchbay.MasterID, patchbay.RolePlayPause)
	f.pb.Coordinator().Publish(patchbay.Event{Type: patchbay.EventDeactivate})
	f.pb.Loop().Drain()

	_, _, _, after := f.backend.snapshot()
	assert.Equal(t, 1, after-before)
	assert.False(t, f.player(t, "a").Active())
	assert.False(t, f.pb.Master().Playing())
}

func TestQueuedTogglesKeepPlayersInSync(t *testing.T) {
	f := newFixture(t, scenarioPage, patchbay.Settings{})

	// both clicks run before any backend notification is delivered
	require.NoError(t, f.pb.Click("a", patchbay.RolePlayPause))
	require.NoError(t, f.pb.Click(patchbay.MasterID, patchbay.RolePlayPause))
	f.pb.Loop().Drain()

	a := f.player(t, "a")
	assert.False(t, f.pb.Master().Playing())
	assert.True(t, a.Active())
	assert.False(t, a.Playing())
	assert.False(t, a.Container().HasClass(patchbay.ClassPlaying))
	assert.Equal(t, "Play", a.UI()[patchbay.RolePlayPause].Text())
}

func TestQueuedTogglesBroadcastEachChange(t *testing.T) {
	f := newFixture(t, scenarioPage, patchbay.Settings{})
	f.click(t, "a", patchbay.RolePlayPause)

	var got []patchbay.EventType
	record := func(e patchbay.Event) { got = append(got, e.Type) }
	f.pb.Coordinator().Subscribe(patchbay.EventPlaying, record)
	f.pb.Coordinator().Subscribe(patchbay.EventPaused, record)

	require.NoError(t, f.pb.Click(patchbay.MasterID, patchbay.RolePlayPause))
	require.NoError(t, f.pb.Click(patchbay.MasterID, patchbay.RolePlayPause))
	f.pb.Loop().Drain()

	assert.Equal(t, []patchbay.EventType{patchbay.EventPaused, patchbay.EventPlaying}, got)
	assert.True(t, f.player(t, "a").Playing())
}

func TestMasterControlsBeforeFirstTrackDoNothing(t *testing.T) {
	f := newFixture(t, scenarioPage, patchbay.Settings{})

	f.click(t, patchbay.MasterID, patchbay.RolePlayPause)

	_, loads, plays, pauses := f.backend.snapshot()
	assert.Zero(t, loads+plays+pauses)
	assert.Equal(t, patchbay.MasterUninitialized, f.pb.Master().State())
}

func TestMutualExclusion(t *testing.T) {
	f := newFixture(t, playlistPage, patchbay.Settings{})
	players := f.pb.Players()
	require.Len(t, players, 3)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		p := players[rng.Intn(len(players))]
		role := patchbay.RolePlayPause
		if _, ok := p.UI()[role]; !ok {
			role = []patchbay.Role{patchbay.RolePlay, patchbay.RolePause}[rng.Intn(2)]
		}
		f.click(t, p.ID(), role)

		active := 0
		for _, q := range players {
			if q.Active() {
				active++
			}
			if q.Playing() {
				require.True(t, q.Active(), "%s playing while inactive", q.ID())
			}
		}
		require.LessOrEqual(t, active, 1)
		if master := f.pb.Master(); master.Current() != nil {
			require.Equal(t, master.Playing(), master.Current().Playing())
		}
	}
}

func TestPlayAndPauseRoles(t *testing.T) {
	f := newFixture(t, playlistPage, patchbay.Settings{})
	two := f.pb.Players()[1]

	f.click(t, two.ID(), patchbay.RolePause)
	assert.False(t, two.Active(), "pause on an inactive track is a no-op")

	f.click(t, two.ID(), patchbay.RolePlay)
	assert.True(t, two.Playing())
	sources, _, _, _ := f.backend.snapshot()
	assert.Equal(t, []string{"https://cdn.example/two.mp3"}, sources)

	f.click(t, two.ID(), patchbay.RolePlay)
	assert.True(t, two.Playing())

	f.click(t, two.ID(), patchbay.RolePause)
	assert.True(t, two.Active())
	assert.False(t, two.Playing())
}

func TestTimeUpdatesMirrorText(t *testing.T) {
	f := newFixture(t, scenarioPage, patchbay.Settings{})
	f.click(t, "a", patchbay.RolePlayPause)

	f.backend.progress(65, 600)
	f.pb.Loop().Drain()

	master := f.pb.Master().UI()
	assert.Equal(t, "1:05", master[patchbay.RoleCurrentTime].Text())
	assert.Equal(t, "10:00", master[patchbay.RoleDuration].Text())
	assert.Equal(t, "1:05", f.player(t, "a").UI()[patchbay.RoleCurrentTime].Text())
	assert.Equal(t, "Pause", master[patchbay.RolePlayPause].Text())
}

func TestEndedAdvancesInSweepOrder(t *testing.T) {
	f := newFixture(t, playlistPage, patchbay.Settings{})
	players := f.pb.Players()

	f.click(t, players[0].ID(), patchbay.RolePlayPause)
	f.backend.end()
	f.pb.Loop().Drain()

	assert.False(t, players[0].Active())
	assert.True(t, players[1].Playing())

	f.click(t, players[2].ID(), patchbay.RolePlayPause)
	f.backend.end()
	f.pb.Loop().Drain()

	// Last track: nothing to advance to.
	assert.True(t, players[2].Active())
	assert.False(t, players[2].Playing())
	assert.Equal(t, patchbay.MasterActivePaused, f.pb.Master().State())
	sources, _, _, _ := f.backend.snapshot()
	assert.Equal(t, []string{testServer + "three.mp3", testServer + "three.ogg"}, sources)
}

func TestEndedWithoutAutoAdvance(t *testing.T) {
	f := newFixture(t, playlistPage, patchbay.Settings{AutoAdvance: patchbay.Bool(false)})
	players := f.pb.Players()

	var ended int
	f.pb.Coordinator().Subscribe(patchbay.EventEnded, func(patchbay.Event) { ended++ })

	f.click(t, players[0].ID(), patchbay.RolePlayPause)
	f.backend.end()
	f.pb.Loop().Drain()

	assert.Equal(t, 1, ended)
	assert.True(t, players[0].Active())
	assert.False(t, players[1].Active())
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newFixture(t, scenarioPage, patchbay.Settings{})
	f.click(t, "a", patchbay.RolePlayPause)

	report := f.pb.Sweep()
	assert.Empty(t, report.Added)

	require.NoError(t, f.doc.Append("content",
		`<div id="c" data-patchbay-track="ext:https://cdn.example/c.mp3"><button data-patchbay-ui="playpause">Play</button></div>`))
	report = f.pb.Sweep()
	assert.Equal(t, []string{"c"}, report.Added)
	assert.True(t, report.MasterFound)
	assert.Len(t, f.pb.Players(), 3)

	a := f.player(t, "a")
	assert.True(t, a.Playing())
	_, loads, _, _ := f.backend.snapshot()
	assert.Equal(t, 2, loads)

	f.click(t, "c", patchbay.RolePlayPause)
	assert.False(t, a.Active())
	assert.True(t, f.player(t, "c").Playing())
}

func TestSweepScope(t *testing.T) {
	page := `<html><body>
<div data-patchbay-master></div>
<div data-patchbay-track="url:outside.mp3"></div>
<section id="feed"><div data-patchbay-track="url:inside.mp3"></div></section>
</body></html>`
	f := newFixture(t, page, patchbay.Settings{Scope: "feed"})
	require.Len(t, f.pb.Players(), 1)
	assert.Equal(t, "url:inside.mp3", f.pb.Players()[0].Descriptor().String())

	report := f.pb.SweepScope("")
	assert.Len(t, report.Added, 1)
}

func TestAutosweepDisabled(t *testing.T) {
	f := newFixture(t, scenarioPage, patchbay.Settings{Autosweep: patchbay.Bool(false)})
	assert.Nil(t, f.pb.Master())
	assert.Empty(t, f.pb.Players())

	report := f.pb.Sweep()
	assert.True(t, report.MasterFound)
	assert.Len(t, report.Added, 2)
}

func TestInvalidMarkersAreIsolated(t *testing.T) {
	page := `<html><body>
<div data-patchbay-master><button data-patchbay-ui="playpause">Play</button></div>
<div id="bad" data-patchbay-track="file:nope.mp3"><button data-patchbay-ui="playpause">Play</button></div>
<div id="odd" data-patchbay-track="url:odd.mp3"><button data-patchbay-ui="shuffle">?</button></div>
<div id="good" data-patchbay-track="url:good.mp3"><button data-patchbay-ui="playpause">Play</button></div>
</body></html>`
	f := newFixture(t, page, patchbay.Settings{})

	report := f.pb.Sweep()
	assert.Empty(t, report.Added, "invalid markers are claimed and not retried")

	bad, ok := f.doc.ByID("bad")
	require.True(t, ok)
	assert.True(t, bad.HasClass(patchbay.ClassInvalid))
	entity, _ := bad.Attr(patchbay.AttrID)
	assert.Equal(t, "bad", entity)
	odd, _ := f.doc.ByID("odd")
	assert.True(t, odd.HasClass(patchbay.ClassInvalid))

	_, err := f.pb.Player("bad")
	assert.ErrorIs(t, err, patchbay.ErrNoEntity)

	f.click(t, "good", patchbay.RolePlayPause)
	assert.True(t, f.player(t, "good").Playing())
}

func TestGeneratedIDsNeverRepeat(t *testing.T) {
	page := `<html><body>
<div data-patchbay-master></div>
<div id="feed">
  <div data-patchbay-track="file:broken.mp3"></div>
  <div data-patchbay-track="url:one.mp3"></div>
</div>
</body></html>`
	f := newFixture(t, page, patchbay.Settings{Autosweep: patchbay.Bool(false)})

	first := f.pb.Sweep()
	require.Len(t, first.Invalid, 1)
	require.Len(t, first.Added, 1)

	require.NoError(t, f.doc.Append("feed", `<div data-patchbay-track="url:two.mp3"></div>`))
	second := f.pb.Sweep()
	require.Len(t, second.Added, 1)

	ids := append(append(first.Invalid, first.Added...), second.Added...)
	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "id %q handed out twice", id)
		seen[id] = true
	}
}

func TestNoMasterIsNotFatal(t *testing.T) {
	page := `<html><body><div id="a" data-patchbay-track="url:a.mp3"><button data-patchbay-ui="playpause">Play</button></div></body></html>`
	f := newFixture(t, page, patchbay.Settings{})

	assert.Nil(t, f.pb.Master())
	f.click(t, "a", patchbay.RolePlayPause)
	assert.Equal(t, patchbay.InlineDormant, f.player(t, "a").State())
	assert.ErrorIs(t, f.pb.Click(patchbay.MasterID, patchbay.RolePlayPause), patchbay.ErrNoMaster)
}

func TestFirstMasterWins(t *testing.T) {
	page := `<html><body>
<div id="m1" data-patchbay-master></div>
<div id="m2" data-patchbay-master></div>
</body></html>`
	f := newFixture(t, page, patchbay.Settings{})

	id, _ := f.pb.Master().Container().Attr("id")
	assert.Equal(t, "m1", id)
	entity, _ := f.pb.Master().Container().Attr(patchbay.AttrID)
	assert.Equal(t, patchbay.MasterID, entity)
	m2, ok := f.doc.ByID("m2")
	require.True(t, ok)
	assert.False(t, m2.HasClass(patchbay.ClassBound))
}

func TestLookupFailureKeepsTrackDormant(t *testing.T) {
	lookup := newGatedLookup()
	lookup.err = errors.New("catalog down")
	close(lookup.release)
	f := newFixture(t, scenarioPage, patchbay.Settings{}, patchbay.WithLookup(lookup))
	b := f.player(t, "b")

	f.click(t, "b", patchbay.RolePlayPause)
	require.Eventually(t, func() bool {
		f.pb.Loop().Drain()
		return b.LookupFailed()
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, patchbay.InlineDormant, b.State())
	assert.Nil(t, f.pb.Master().Pending())
	_, loads, _, _ := f.backend.snapshot()
	assert.Zero(t, loads)

	// Further requests are no-ops until a retry.
	f.click(t, "b", patchbay.RolePlayPause)
	assert.Equal(t, 1, lookup.callCount())

	lookup.mu.Lock()
	lookup.err = nil
	lookup.mu.Unlock()
	assert.Equal(t, 1, f.pb.RetryLookups())
	require.Eventually(t, func() bool {
		f.pb.Loop().Drain()
		info, err := b.TrackInfo()
		return err == nil && info.Resolved()
	}, time.Second, 5*time.Millisecond)
	assert.False(t, b.LookupFailed())

	f.click(t, "b", patchbay.RolePlayPause)
	assert.True(t, b.Playing())
	assert.Equal(t, 2, lookup.callCount())
}

func TestMissingRecordIsLookupFailure(t *testing.T) {
	lookup := newGatedLookup()
	lookup.records = map[string]patchbay.TrackRecord{}
	close(lookup.release)
	f := newFixture(t, scenarioPage, patchbay.Settings{}, patchbay.WithLookup(lookup))
	b := f.player(t, "b")

	f.click(t, "b", patchbay.RolePlayPause)
	require.Eventually(t, func() bool {
		f.pb.Loop().Drain()
		return b.LookupFailed()
	}, time.Second, 5*time.Millisecond)
	assert.False(t, b.Active())
}

func TestLaterRequestWinsOverPendingLookup(t *testing.T) {
	lookup := newGatedLookup()
	f := newFixture(t, scenarioPage, patchbay.Settings{}, patchbay.WithLookup(lookup))
	a, b := f.player(t, "a"), f.player(t, "b")

	f.click(t, "b", patchbay.RolePlayPause)
	f.click(t, "a", patchbay.RolePlayPause)
	assert.True(t, a.Playing())
	assert.Nil(t, f.pb.Master().Pending())

	close(lookup.release)
	require.Eventually(t, func() bool {
		f.pb.Loop().Drain()
		info, err := b.TrackInfo()
		return err == nil && info.Resolved()
	}, time.Second, 5*time.Millisecond)

	assert.True(t, a.Playing())
	assert.False(t, b.Active())
	sources, _, _, _ := f.backend.snapshot()
	assert.Equal(t, []string{testServer + "trackA.mp3"}, sources)

	// The cached result makes the next activation immediate.
	f.click(t, "b", patchbay.RolePlayPause)
	assert.True(t, b.Playing())
	assert.Equal(t, 1, lookup.callCount())
}

func TestPrefetchBatchesRemoteTracks(t *testing.T) {
	page := `<html><body>
<div data-patchbay-master></div>
<div id="x" data-patchbay-track="id:1"><button data-patchbay-ui="playpause">Play</button></div>
<div id="y" data-patchbay-track="id:2"></div>
<div id="z" data-patchbay-track="id:1"></div>
</body></html>`
	lookup := newGatedLookup()
	lookup.records = map[string]patchbay.TrackRecord{
		"1": {Title: "One", AudioURLs: []string{"https://cdn.example/1.mp3"}},
		"2": {Title: "Two", AudioURLs: []string{"https://cdn.example/2.mp3"}},
	}
	f := newFixture(t, page, patchbay.Settings{Prefetch: true}, patchbay.WithLookup(lookup))

	// A click while the batch is in flight joins it.
	f.click(t, "x", patchbay.RolePlayPause)
	close(lookup.release)
	require.Eventually(t, func() bool {
		f.pb.Loop().Drain()
		return f.player(t, "x").Playing()
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, 1, lookup.callCount())
	assert.Equal(t, []string{"1", "2"}, lookup.calls[0])
	for _, id := range []string{"y", "z"} {
		info, err := f.player(t, id).TrackInfo()
		require.NoError(t, err)
		assert.True(t, info.Resolved(), id)
	}
}

func TestTrackInfoIsMemoized(t *testing.T) {
	f := newFixture(t, scenarioPage, patchbay.Settings{})
	a := f.player(t, "a")

	first, err := a.TrackInfo()
	require.NoError(t, err)
	assert.Equal(t, "Track A", first.Title)
	assert.Equal(t, "Artist A", first.Artist)

	a.UI()[patchbay.RoleTitle].SetText("Renamed")
	second, err := a.TrackInfo()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, scenarioPage, patchbay.Settings{})
	f.click(t, "a", patchbay.RolePlayPause)

	st := f.pb.Status()
	assert.True(t, st.Master.Present)
	assert.Equal(t, "playing", st.Master.State)
	assert.Equal(t, "a", st.Master.Current)
	require.Len(t, st.Players, 2)
	assert.Equal(t, "playing", st.Players[0].State)
	assert.Equal(t, "Track A", st.Players[0].Metadata.Title)
	assert.Equal(t, "dormant", st.Players[1].State)
	assert.Equal(t, "id:42", st.Players[1].Track)
}

func TestClickErrors(t *testing.T) {
	f := newFixture(t, scenarioPage, patchbay.Settings{})
	assert.ErrorIs(t, f.pb.Click("nope", patchbay.RolePlayPause), patchbay.ErrNoEntity)
	assert.ErrorIs(t, f.pb.Click("a", patchbay.RoleCover), patchbay.ErrUnknownRole)
}
