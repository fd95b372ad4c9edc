package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starmap/internal/app"
	"starmap/internal/cluster"
	"starmap/internal/headless"
	"starmap/internal/metrics"
	"starmap/internal/overlay"
	"starmap/internal/universe"
	"starmap/pkg/geometry"
)

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
		},
	}}
	d, err := universe.NewDataset(entities, []universe.Edge{{A: 1, B: 2}, {A: 2, B: 3}}, regions, nil, systems)
	require.NoError(t, err)
	return d
}

func newTestServer(t *testing.T, m *metrics.Metrics, overlays ...*overlay.Cache) *httptest.Server {
	t.Helper()
	r := headless.New(testDataset(t), app.DefaultOptions(), app.Deps{Log: zerolog.Nop(), Metrics: m, Overlays: overlays})
	h := NewHandler(zerolog.Nop(), m, r, cluster.ModeSecurity)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	res, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, body
}

func decodeError(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var resp map[string]map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp["error"]
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	res, body := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"ok":true,"systems":3}`, string(body))
}

func TestSetRendererSwapsDataset(t *testing.T) {
	r := headless.New(testDataset(t), app.DefaultOptions(), app.Deps{Log: zerolog.Nop()})
	h := NewHandler(zerolog.Nop(), nil, r, cluster.ModeSecurity)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)

	smaller, err := universe.NewDataset([]universe.Entity{{ID: 7, Name: "Dodixie"}}, nil, nil, nil, nil)
	require.NoError(t, err)
	h.SetRenderer(headless.New(smaller, app.DefaultOptions(), app.Deps{Log: zerolog.Nop()}))

	_, body := get(t, srv, "/healthz")
	assert.JSONEq(t, `{"ok":true,"systems":1}`, string(body))
	_, body = get(t, srv, "/search?q=dodi")
	assert.JSONEq(t, `{"results":[{"kind":"system","id":7,"name":"Dodixie"}]}`, string(body))
}

func TestMapPNG(t *testing.T) {
	srv := newTestServer(t, nil)
	res, body := get(t, srv, "/map.png?w=320&h=200&mode=region")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestMapPNGValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	res, body := get(t, srv, "/map.png?w=abc&mode=nope")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "validation_failed", e["code"])
	details := e["details"].(map[string]any)
	assert.Contains(t, details, "w")
	assert.Contains(t, details, "mode")

	res, body = get(t, srv, "/map.png?w=0&h=10")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "validation_failed", decodeError(t, body)["code"])

	res, body = get(t, srv, "/map.png?focus=42")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not_found", decodeError(t, body)["code"])
}

func TestSystemPNG(t *testing.T) {
	srv := newTestServer(t, nil)

	res, body := get(t, srv, "/systems/3.png?w=300&h=300")
	require.Equal(t, http.StatusOK, res.StatusCode)
	_, err := png.Decode(bytes.NewReader(body))
	require.NoError(t, err)

	res, body = get(t, srv, "/systems/99.png?w=300&h=300")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	_, err = png.Decode(bytes.NewReader(body))
	require.NoError(t, err)

	res, _ = get(t, srv, "/systems/abc.png")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestPick(t *testing.T) {
	srv := newTestServer(t, nil)

	res, body := get(t, srv, "/pick?w=800&h=600&x=655&y=53")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var resp struct {
		Hit    bool           `json:"hit"`
		System *headless.Pick `json:"system"`
		World  geometry.Point2D
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.True(t, resp.Hit)
	assert.Equal(t, int64(3), resp.System.ID)
	assert.Equal(t, "Jita", resp.System.Name)
	assert.InDelta(t, 555, resp.World.X, 1e-9)

	_, body = get(t, srv, "/pick?w=800&h=600&x=400&y=300")
	resp.Hit, resp.System = false, nil
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.False(t, resp.Hit)
	assert.Nil(t, resp.System)

	res, body = get(t, srv, "/pick?w=800&h=600")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	details := decodeError(t, body)["details"].(map[string]any)
	assert.Contains(t, details, "x")
	assert.Contains(t, details, "y")
}

func TestNonFiniteNumbersRejected(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{
		"/pick?w=800&h=600&x=5000&y=5000&zoom=NaN",
		"/pick?w=800&h=600&x=Inf&y=0",
		"/map.png?zoom=-Inf",
	} {
		res, body := get(t, srv, path)
		require.Equal(t, http.StatusBadRequest, res.StatusCode, path)
		e := decodeError(t, body)
		assert.Equal(t, "validation_failed", e["code"], path)
		assert.NotEmpty(t, e["details"], path)
	}

	res, body := get(t, srv, "/pick?w=800&h=600&x=5000&y=5000&zoom=NaN")
	details := decodeError(t, body)["details"].(map[string]any)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, details, "zoom")
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t, nil)
	res, body := get(t, srv, "/search?q=ar")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"results":[
		{"kind":"system","id":1,"name":"Amarr"},
		{"kind":"system","id":2,"name":"Sarum Prime"}
	]}`, string(body))

	_, body = get(t, srv, "/search?q=%20")
	assert.JSONEq(t, `{"results":[]}`, string(body))
}

func TestOverlayFailureStillRenders(t *testing.T) {
	failing := overlay.NewCache(overlay.KindFaction, overlay.SourceFunc(func(context.Context) (map[int64]int64, error) {
		return nil, overlay.ErrUnavailable
	}), time.Minute, 0, zerolog.Nop(), nil)
	srv := newTestServer(t, nil, failing)

	res, _ := get(t, srv, "/map.png?w=200&h=200&mode=faction")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestMetricsRecordRoutes(t *testing.T) {
	m := metrics.New()
	srv := newTestServer(t, m)

	get(t, srv, "/systems/3.png?w=100&h=100")
	get(t, srv, "/systems/99.png?w=100&h=100")

	res, body := get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, res.StatusCode)
	text := string(body)
	assert.True(t, strings.Contains(text, `starmap_http_requests_total{method="GET",path="/systems/{id}.png",status="200"} 1`), text)
	assert.True(t, strings.Contains(text, `starmap_http_requests_total{method="GET",path="/systems/{id}.png",status="404"} 1`), text)
	assert.Contains(t, text, `starmap_frames_rendered_total{view="not_found"} 1`)
}
