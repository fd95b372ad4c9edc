// Package httpapi serves rendered maps, hit tests and search over HTTP.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"starmap/internal/cluster"
	"starmap/internal/headless"
	"starmap/internal/metrics"
	"starmap/internal/universe"
	"starmap/pkg/geometry"
)

const (
	defaultWidth  = 1024
	defaultHeight = 768
)

type Handler struct {
	log      zerolog.Logger
	metrics  *metrics.Metrics
	renderer atomic.Pointer[headless.Renderer]
	mode     cluster.Mode
}

// NewHandler serves scenes built by renderer. mode is used when a request
// names none.
func NewHandler(log zerolog.Logger, m *metrics.Metrics, renderer *headless.Renderer, mode cluster.Mode) *Handler {
	h := &Handler{log: log, metrics: m, mode: mode}
	h.renderer.Store(renderer)
	return h
}

// SetRenderer swaps the renderer used by subsequent requests. Requests in
// flight finish on the previous one.
func (h *Handler) SetRenderer(r *headless.Renderer) { h.renderer.Store(r) }

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	r.Get("/healthz", h.handleHealthz)
	r.Handle("/metrics", h.metrics.Handler())

	r.Get("/map.png", h.handleMap)
	r.Get("/systems/{id}.png", h.handleSystem)
	r.Get("/pick", h.handlePick)
	r.Get("/search", h.handleSearch)

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writePNG(w http.ResponseWriter, status int, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// queryParams reads numeric query parameters, collecting every parse error.
type queryParams struct {
	r      *http.Request
	errors map[string]any
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{r: r}
}

func (q *queryParams) fail(name, msg string) {
	if q.errors == nil {
		q.errors = make(map[string]any)
	}
	q.errors[name] = msg
}

func (q *queryParams) intParam(name string, def int) int {
	raw := strings.TrimSpace(q.r.URL.Query().Get(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, "must be an integer")
		return def
	}
	return v
}

func (q *queryParams) idParam(name string) int64 {
	raw := strings.TrimSpace(q.r.URL.Query().Get(name))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		q.fail(name, "must be an integer")
		return 0
	}
	return v
}

func (q *queryParams) floatParam(name string, def float64) float64 {
	raw := strings.TrimSpace(q.r.URL.Query().Get(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		q.fail(name, "must be a finite number")
		return def
	}
	return v
}

func (q *queryParams) required(name string) {
	if strings.TrimSpace(q.r.URL.Query().Get(name)) == "" {
		q.fail(name, "is required")
	}
}

func (h *Handler) mapRequest(q *queryParams) headless.MapRequest {
	req := headless.MapRequest{
		Width:  q.intParam("w", defaultWidth),
		Height: q.intParam("h", defaultHeight),
		Zoom:   q.floatParam("zoom", 0),
		Mode:   h.mode,
		Focus:  q.idParam("focus"),
	}
	if raw := q.r.URL.Query().Get("mode"); raw != "" {
		mode, err := cluster.ParseMode(raw)
		if err != nil {
			q.fail("mode", err.Error())
		} else {
			req.Mode = mode
		}
	}
	return req
}

// sceneError maps a scene construction error to a response.
func (h *Handler) sceneError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, headless.ErrBadSize):
		h.writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
	case errors.Is(err, universe.ErrSystemNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	default:
		h.log.Error().Err(err).Msg("build scene")
		h.writeError(w, http.StatusInternalServerError, "internal", "failed to build scene", nil)
	}
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"systems": len(h.renderer.Load().Dataset().Entities),
	})
}

func (h *Handler) handleMap(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	req := h.mapRequest(q)
	if q.errors != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid query parameters", q.errors)
		return
	}

	scene, err := h.renderer.Load().MapScene(r.Context(), req)
	if err != nil {
		h.sceneError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := scene.Render(&buf); err != nil {
		h.log.Error().Err(err).Msg("render map")
		h.writeError(w, http.StatusInternalServerError, "internal", "failed to render map", nil)
		return
	}
	h.writePNG(w, http.StatusOK, &buf)
}

// handleSystem renders a local view. An unknown system renders the
// not-found image with status 404.
func (h *Handler) handleSystem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid system id", nil)
		return
	}
	q := newQueryParams(r)
	req := headless.SystemRequest{
		Width:  q.intParam("w", defaultWidth),
		Height: q.intParam("h", defaultHeight),
		Zoom:   q.floatParam("zoom", 0),
		ID:     id,
	}
	if q.errors != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid query parameters", q.errors)
		return
	}

	status := http.StatusOK
	scene, err := h.renderer.Load().SystemScene(req)
	switch {
	case err == nil:
	case errors.Is(err, universe.ErrSystemNotFound) && scene != nil:
		status = http.StatusNotFound
	default:
		h.sceneError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := scene.Render(&buf); err != nil {
		h.log.Error().Err(err).Int64("system", id).Msg("render system")
		h.writeError(w, http.StatusInternalServerError, "internal", "failed to render system", nil)
		return
	}
	h.writePNG(w, status, &buf)
}

type pickResponse struct {
	Hit    bool             `json:"hit"`
	System *headless.Pick   `json:"system,omitempty"`
	World  geometry.Point2D `json:"world"`
}

// handlePick runs a click query at screen position x,y of the map image the
// same parameters would render.
func (h *Handler) handlePick(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	q.required("x")
	q.required("y")
	at := geometry.Pt(q.floatParam("x", 0), q.floatParam("y", 0))
	req := h.mapRequest(q)
	if q.errors != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid query parameters", q.errors)
		return
	}

	scene, err := h.renderer.Load().MapScene(r.Context(), req)
	if err != nil {
		h.sceneError(w, err)
		return
	}
	resp := pickResponse{World: scene.Camera.ToWorld(at, scene.Size)}
	if p, ok := scene.Pick(at); ok {
		resp.Hit = true
		resp.System = &p
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type searchResult struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	results := h.renderer.Load().Search(r.URL.Query().Get("q"))
	out := make([]searchResult, 0, len(results))
	for _, res := range results {
		out = append(out, searchResult{Kind: res.Kind.String(), ID: res.ID, Name: res.Name})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

// Server wraps the router in an http.Server.
func (h *Handler) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
