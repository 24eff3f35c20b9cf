// Package metrics provides the bridge middleware collecting request metrics, to be scraped by Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric of the bridge.
const Namespace = "gforms_gtm"

type label string

// LabelRoute is the label used for the matched route in metrics.
const LabelRoute label = "route"

// Middleware is a middleware for collecting HTTP request metrics.
type Middleware struct {
	buckets  []float64
	registry prometheus.Registerer

	inFlight prometheus.Gauge
}

// New creates a new Middleware registering its collectors in registry.
func New(registry prometheus.Registerer) *Middleware {
	return &Middleware{
		// Hooks are called synchronously by the host, so anything above a second is a problem. Max of 5.12.
		buckets:  prometheus.ExponentialBuckets(0.005, 2, 11),
		registry: registry,
		inFlight: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "http_requests_in_flight",
			Help:      "Tracks the number of HTTP requests being served.",
		}),
	}
}

// Monitor wraps handler to collect metrics under handlerName.
func (m *Middleware) Monitor(handlerName string, handler http.Handler) http.HandlerFunc {
	reg := prometheus.WrapRegistererWith(prometheus.Labels{"handler": handlerName}, m.registry)
	labels := []string{"method", "code", string(LabelRoute)}

	requestsTotal := promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Tracks the number of HTTP requests.",
		}, labels,
	)
	requestDuration := promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Tracks the latencies for HTTP requests.",
			Buckets:   m.buckets,
		},
		labels,
	)

	route := promhttp.WithLabelFromCtx(string(LabelRoute), routeLabelFromCtx)
	base := promhttp.InstrumentHandlerInFlight(
		m.inFlight,
		promhttp.InstrumentHandlerCounter(
			requestsTotal,
			promhttp.InstrumentHandlerDuration(
				requestDuration,
				handler,
				route,
			),
			route,
		),
	)

	return func(w http.ResponseWriter, r *http.Request) {
		ApplyLabels(r)
		base.ServeHTTP(w, r)
	}
}

func routeLabelFromCtx(ctx context.Context) string {
	if route, ok := ctx.Value(LabelRoute).(string); ok && route != "" {
		return route
	}
	return "unknown"
}

// ApplyLabels applies the route label to the request context.
// The route is the mux pattern that matched the request, so path parameters don't multiply series.
func ApplyLabels(r *http.Request) {
	ctx := context.WithValue(r.Context(), LabelRoute, r.Pattern)
	*r = *r.WithContext(ctx)
}

// Handler returns the endpoint exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
