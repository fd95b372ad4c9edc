// Package metrics exposes renderer metrics over a private Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	frames          *prometheus.CounterVec
	frameDuration   *prometheus.HistogramVec
	coalescedInput  prometheus.Counter
	overlayFetches  *prometheus.CounterVec
	imageLoads      *prometheus.CounterVec
	relaxIterations prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates a fresh registry with every collector registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	frames := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starmap",
		Name:      "frames_rendered_total",
		Help:      "Full redraws performed, by view",
	}, []string{"view"})

	frameDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "starmap",
		Name:      "frame_duration_seconds",
		Help:      "Time spent composing a frame, by view",
		Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1, 0.25},
	}, []string{"view"})

	coalescedInput := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "starmap",
		Name:      "input_events_coalesced_total",
		Help:      "Drag and scroll events merged into a single camera update",
	})

	overlayFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starmap",
		Name:      "overlay_fetches_total",
		Help:      "Remote overlay fetches, by overlay kind and result",
	}, []string{"kind", "result"})

	imageLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starmap",
		Name:      "image_loads_total",
		Help:      "Marker icon loads, by result",
	}, []string{"result"})

	relaxIterations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "starmap",
		Name:      "layout_relax_iterations",
		Help:      "Relaxation iterations run per local view frame",
		Buckets:   []float64{1, 2, 3, 4, 5, 10},
	})

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starmap",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests served",
	}, []string{"method", "path", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "starmap",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	registry.MustRegister(
		frames,
		frameDuration,
		coalescedInput,
		overlayFetches,
		imageLoads,
		relaxIterations,
		httpRequests,
		httpDuration,
	)

	return &Metrics{
		registry:        registry,
		frames:          frames,
		frameDuration:   frameDuration,
		coalescedInput:  coalescedInput,
		overlayFetches:  overlayFetches,
		imageLoads:      imageLoads,
		relaxIterations: relaxIterations,
		httpRequests:    httpRequests,
		httpDuration:    httpDuration,
	}
}

// ObserveFrame records one redraw of view.
func (m *Metrics) ObserveFrame(view string, duration time.Duration) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(view).Inc()
	m.frameDuration.WithLabelValues(view).Observe(duration.Seconds())
}

// AddCoalesced counts input events merged into a camera update.
func (m *Metrics) AddCoalesced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.coalescedInput.Add(float64(n))
}

// ObserveOverlayFetch records an overlay fetch outcome.
func (m *Metrics) ObserveOverlayFetch(kind string, err error) {
	if m == nil {
		return
	}
	m.overlayFetches.WithLabelValues(kind, result(err)).Inc()
}

// ObserveImageLoad records an icon load outcome.
func (m *Metrics) ObserveImageLoad(err error) {
	if m == nil {
		return
	}
	m.imageLoads.WithLabelValues(result(err)).Inc()
}

// ObserveRelax records the iteration count of a relaxation pass.
func (m *Metrics) ObserveRelax(iterations int) {
	if m == nil {
		return
	}
	m.relaxIterations.Observe(float64(iterations))
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpDuration.With(labels).Observe(duration.Seconds())
}

// Handler exposes the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
