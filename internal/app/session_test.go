package app

import (
	"context"
	"testing"
	"time"

	"fyne.io/fyne/v2/theme"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starmap/internal/cluster"
	"starmap/internal/config"
	"starmap/internal/metrics"
	"starmap/internal/overlay"
	"starmap/internal/render/raster"
	"starmap/internal/search"
	"starmap/internal/universe"
	"starmap/pkg/colorutil"
	"starmap/pkg/geometry"
)

var screen = geometry.Size{Width: 800, Height: 600}

func testDataset(t *testing.T) *universe.Dataset {
	t.Helper()
	entities := []universe.Entity{
		{ID: 1, Name: "Amarr", RegionID: 10, Security: 1, Position: geometry.Pt(0, 0)},
		{ID: 2, Name: "Sarum Prime", RegionID: 10, Security: 0.9, Position: geometry.Pt(1, 0)},
		{ID: 3, Name: "Jita", RegionID: 20, Security: 0.9, Position: geometry.Pt(1, 1)},
	}
	regions := []universe.Region{{ID: 10, Name: "Domain"}, {ID: 20, Name: "The Forge"}}
	systems := []*universe.LocalSystem{{
		SystemID: 3,
		Name:     "Jita",
		Star:     universe.Body{ID: 40000001, Kind: universe.BodyStar, Name: "Jita - Star"},
		Bodies: []universe.Body{
			{ID: 40000002, Kind: universe.BodyPlanet, Name: "Jita I", Position: geometry.Pt(100, 0)},
			{ID: 50000001, Kind: universe.BodyGate, Name: "Stargate (Amarr)", Position: geometry.Pt(0, 100), DestinationID: 1},
		},
	}}
	d, err := universe.NewDataset(entities, []universe.Edge{{A: 1, B: 2}, {A: 2, B: 3}}, regions, nil, systems)
	require.NoError(t, err)
	return d
}

type recordingNav struct {
	opened []int64
	closed int
}

func (n *recordingNav) OpenSystem(id int64) { n.opened = append(n.opened, id) }
func (n *recordingNav) CloseSystem()        { n.closed++ }

func newSession(t *testing.T, deps Deps) *Session {
	t.Helper()
	opts := DefaultOptions()
	opts.SearchDelay = 5 * time.Millisecond
	deps.Log = zerolog.Nop()
	s := NewSession(testDataset(t), opts, deps)
	s.Resize(screen)
	return s
}

func click(s *Session, p geometry.Point2D) {
	s.PointerDown(p)
	s.PointerUp(p)
}

func TestInitialCameraCentersMap(t *testing.T) {
	s := newSession(t, Deps{})
	assert.Equal(t, StateMap, s.State())
	assert.Equal(t, 1.0, s.Camera().Zoom)
	assert.Equal(t, geometry.Pt(650, 50), s.Camera().ToScreen(s.MapView().Position(2), screen))
	assert.True(t, s.Tick(), "first tick draws")
	assert.False(t, s.Tick())
}

func TestClickNavigatesToHitOnly(t *testing.T) {
	nav := &recordingNav{}
	s := newSession(t, Deps{Navigator: nav})

	var selected []Selection
	s.On(EventSelected, func(data interface{}) { selected = append(selected, data.(Selection)) })

	click(s, geometry.Pt(655, 53))
	assert.Equal(t, []int64{3}, nav.opened)
	require.Len(t, selected, 1)
	assert.Equal(t, int64(3), selected[0].ID)

	click(s, geometry.Pt(400, 300))
	assert.Equal(t, []int64{3}, nav.opened, "empty space does not navigate")
}

func TestHoverDoesNotNavigate(t *testing.T) {
	nav := &recordingNav{}
	s := newSession(t, Deps{Navigator: nav})
	s.Tick()

	var hovered []int64
	s.On(EventHoverChanged, func(data interface{}) { hovered = append(hovered, data.(int64)) })

	s.PointerMove(geometry.Pt(652, 50))
	assert.Equal(t, 2, s.MapView().Hovered())
	assert.Empty(t, nav.opened)
	assert.True(t, s.Tick())

	s.PointerMove(geometry.Pt(653, 51))
	assert.False(t, s.Tick(), "same hover target does not redraw")

	s.PointerLeave()
	assert.Equal(t, -1, s.MapView().Hovered())
	assert.Equal(t, []int64{3, 0}, hovered)
}

func TestDragPansOncePerTick(t *testing.T) {
	m := metrics.New()
	nav := &recordingNav{}
	s := newSession(t, Deps{Navigator: nav, Metrics: m})
	s.Tick()

	s.PointerDown(geometry.Pt(100, 100))
	s.PointerMove(geometry.Pt(150, 100))
	s.PointerMove(geometry.Pt(180, 110))
	s.PointerMove(geometry.Pt(200, 120))
	assert.Equal(t, 100.0, s.Camera().OffsetX, "input is not applied before the tick")

	assert.True(t, s.Tick())
	assert.Equal(t, 200.0, s.Camera().OffsetX)
	assert.Equal(t, 20.0, s.Camera().OffsetY)

	s.PointerUp(geometry.Pt(200, 120))
	assert.Empty(t, nav.opened, "a drag is not a click")
	assert.False(t, s.Tick())
}

func TestScrollZoomKeepsCursorAnchored(t *testing.T) {
	s := newSession(t, Deps{})
	cursor := geometry.Pt(650, 50)
	before := s.Camera().ToWorld(cursor, screen)

	s.Scroll(cursor, 0.5)
	s.Scroll(cursor, 0.5)
	require.True(t, s.Tick())
	assert.InDelta(t, 2.0, s.Camera().Zoom, 1e-9)

	after := s.Camera().ToWorld(cursor, screen)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)

	for i := 0; i < 20; i++ {
		s.Scroll(cursor, 5)
		s.Tick()
	}
	assert.Equal(t, 10.0, s.Camera().Zoom)
}

func TestZoomButtonsAndReset(t *testing.T) {
	s := newSession(t, Deps{})
	s.ZoomIn()
	s.Tick()
	assert.InDelta(t, 1.25, s.Camera().Zoom, 1e-9)
	s.ZoomOut()
	s.Tick()
	assert.InDelta(t, 1.0, s.Camera().Zoom, 1e-9)

	s.Scroll(geometry.Pt(10, 10), 2)
	s.Tick()
	s.ResetView()
	assert.Equal(t, geometry.Pt(650, 50), s.Camera().ToScreen(s.MapView().Position(2), screen))
}

func TestSystemViewAndGateNavigation(t *testing.T) {
	s := newSession(t, Deps{})
	var views []State
	s.On(EventViewChanged, func(data interface{}) { views = append(views, data.(State)) })

	click(s, geometry.Pt(650, 50))
	require.Equal(t, StateSystem, s.State())
	sv := s.SystemView()
	require.NotNil(t, sv)
	assert.Equal(t, int64(3), sv.System().SystemID)

	gate, ok := sv.Positions().Get(50000001)
	require.True(t, ok)
	at := s.Camera().ToScreen(gate.Pos, screen)
	click(s, at)

	assert.Equal(t, StateNotFound, s.State(), "destination 1 has no local system")
	s.CloseSystem()
	assert.Equal(t, StateMap, s.State())
	assert.Nil(t, s.SystemView())
	assert.Equal(t, []State{StateSystem, StateNotFound, StateMap}, views)
}

func TestSystemViewHasOwnCamera(t *testing.T) {
	s := newSession(t, Deps{})
	s.Scroll(geometry.Pt(100, 100), 1)
	s.Tick()
	mapZoom := s.Camera().Zoom

	s.OpenSystem(3)
	assert.Equal(t, 1.0, s.Camera().Zoom)
	s.CloseSystem()
	assert.Equal(t, mapZoom, s.Camera().Zoom)
}

func TestOpenUnknownSystem(t *testing.T) {
	s := newSession(t, Deps{})
	s.OpenSystem(999)
	assert.Equal(t, StateNotFound, s.State())
	assert.False(t, s.SystemView().Found())

	// Input in the not-found state is inert.
	s.PointerMove(geometry.Pt(400, 300))
	click(s, geometry.Pt(400, 300))
	assert.Equal(t, StateNotFound, s.State())
}

func tickUntil(t *testing.T, s *Session, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		s.Tick()
		return cond()
	}, 2*time.Second, 5*time.Millisecond)
}

func TestOverlayModeAppliesLatestResponse(t *testing.T) {
	faction := overlay.NewCache(overlay.KindFaction, overlay.SourceFunc(func(context.Context) (map[int64]int64, error) {
		return map[int64]int64{1: 500001, 2: 500001}, nil
	}), time.Minute, 0, zerolog.Nop(), nil)

	release := make(chan struct{})
	alliance := overlay.NewCache(overlay.KindAlliance, overlay.SourceFunc(func(context.Context) (map[int64]int64, error) {
		<-release
		return map[int64]int64{3: 99000001}, nil
	}), time.Minute, 0, zerolog.Nop(), nil)

	s := newSession(t, Deps{Overlays: []*overlay.Cache{faction, alliance}})
	var applied []overlay.Kind
	s.On(EventOverlayApplied, func(data interface{}) { applied = append(applied, data.(overlay.Snapshot).Kind) })

	s.SetMode(cluster.ModeAlliance)
	s.SetMode(cluster.ModeFaction)
	assert.Equal(t, cluster.ModeFaction, s.Mode())

	tickUntil(t, s, func() bool { return len(applied) == 1 })
	close(release)
	time.Sleep(20 * time.Millisecond)
	s.Tick()
	s.Tick()
	assert.Equal(t, []overlay.Kind{overlay.KindFaction}, applied, "the superseded alliance response is dropped")

	surf := raster.New(800, 600)
	s.Draw(surf)
	require.Len(t, s.MapView().Anchors(), 1)
	assert.Equal(t, int64(500001), s.MapView().Anchors()[0].GroupID)
}

func TestOverlayFailureRendersNeutral(t *testing.T) {
	failing := overlay.NewCache(overlay.KindFaction, overlay.SourceFunc(func(context.Context) (map[int64]int64, error) {
		return nil, overlay.ErrUnavailable
	}), time.Minute, 0, zerolog.Nop(), nil)

	s := newSession(t, Deps{Overlays: []*overlay.Cache{failing}})
	done := false
	s.On(EventOverlayApplied, func(interface{}) { done = true })
	s.SetMode(cluster.ModeFaction)
	tickUntil(t, s, func() bool { return done })

	s.Draw(raster.New(800, 600))
	assert.Empty(t, s.MapView().Anchors())
}

func TestSearchAndSelect(t *testing.T) {
	s := newSession(t, Deps{})
	var results []search.Result
	s.On(EventSearchResults, func(data interface{}) { results = data.([]search.Result) })

	s.Search("j")
	s.Search("ji")
	tickUntil(t, s, func() bool { return len(results) > 0 })
	require.Len(t, results, 1)
	assert.Equal(t, "Jita", results[0].Name)

	s.OpenSystem(3)
	require.True(t, s.SelectResult(results[0]))
	assert.Equal(t, StateMap, s.State())
	assert.Equal(t, 4.0, s.Camera().Zoom)
	got := s.Camera().ToScreen(s.MapView().Position(2), screen)
	assert.InDelta(t, 400, got.X, 1e-9)
	assert.InDelta(t, 300, got.Y, 1e-9)

	require.True(t, s.SelectResult(search.Result{Kind: search.KindRegion, ID: 10, Name: "Domain"}))
	assert.Equal(t, 2.0, s.Camera().Zoom)
	centroid := s.MapView().Position(0).Add(s.MapView().Position(1)).Scale(0.5)
	got = s.Camera().ToScreen(centroid, screen)
	assert.InDelta(t, 400, got.X, 1e-9)
	assert.InDelta(t, 300, got.Y, 1e-9)

	assert.False(t, s.SelectResult(search.Result{Kind: search.KindSystem, ID: 404}))
}

func TestDrawBothViews(t *testing.T) {
	s := newSession(t, Deps{Metrics: metrics.New()})
	surf := raster.New(800, 600)
	s.Draw(surf)
	s.OpenSystem(3)
	s.Draw(surf)
	assert.Greater(t, s.SystemView().Positions().Len(), 0)
}

func TestFrameClock(t *testing.T) {
	ticks := make(chan struct{}, 8)
	c := NewFrameClock(time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	c.Start()
	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("clock never ticked")
	}
	c.Stop()
	c.Stop()
}

func TestOptionsFromDefaultConfig(t *testing.T) {
	assert.Equal(t, DefaultOptions(), OptionsFromConfig(config.Default()))
}

func TestDepsFromConfig(t *testing.T) {
	cfg := config.Default()
	deps := DepsFromConfig(cfg, zerolog.Nop(), nil)
	require.Len(t, deps.Overlays, 2)
	assert.Equal(t, overlay.KindFaction, deps.Overlays[0].Kind())
	assert.Equal(t, overlay.KindAlliance, deps.Overlays[1].Kind())
	assert.NotNil(t, deps.Images)

	cfg.Overlay.AllianceURL = ""
	cfg.Images.URLTemplate = ""
	deps = DepsFromConfig(cfg, zerolog.Nop(), nil)
	assert.Len(t, deps.Overlays, 1)
	assert.Nil(t, deps.Images)
}

func TestThemeBackground(t *testing.T) {
	th := &StarmapTheme{}
	assert.Equal(t, colorutil.Background, th.Color(theme.ColorNameBackground, theme.VariantDark))
}
