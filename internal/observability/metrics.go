package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
)

// Metrics collects Prometheus metrics for the HTTP surface and the posting engine.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	jobs            *jobmetrics.Metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	postings        *prometheus.CounterVec
	postingDuration *prometheus.HistogramVec
	rollbacks       *prometheus.CounterVec
	balances        *prometheus.GaugeVec
}

// NewMetrics initialises the registry and every collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_postings_total",
		Help: "Journal posting attempts by source module and outcome.",
	}, []string{"source", "outcome"})
	postingDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_posting_duration_seconds",
		Help:    "Time spent validating, applying and storing an entry.",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"source"})
	rollbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_rollbacks_total",
		Help: "Posting rollbacks by source and whether every compensation succeeded.",
	}, []string{"source", "result"})
	balances := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_account_balance",
		Help: "Current account balance on its normal side.",
	}, []string{"code", "type"})
	registry.MustRegister(requests, duration, postings, postingDuration, rollbacks, balances)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		jobs:            jobmetrics.NewMetrics(registry),
		requestsTotal:   requests,
		requestDuration: duration,
		postings:        postings,
		postingDuration: postingDuration,
		rollbacks:       rollbacks,
		balances:        balances,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Jobs returns the background job collectors registered with this registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// ObservePosting records one posting attempt.
func (m *Metrics) ObservePosting(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.postings.WithLabelValues(source, outcome).Inc()
	m.postingDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveRollback records a rollback and whether it restored every balance.
func (m *Metrics) ObserveRollback(source string, compensated bool) {
	if m == nil {
		return
	}
	result := "compensated"
	if !compensated {
		result = "incomplete"
	}
	m.rollbacks.WithLabelValues(source, result).Inc()
}

// BalanceObserver keeps the balance gauge in step with the registry.
func (m *Metrics) BalanceObserver() accounts.Observer {
	return func(_ context.Context, change accounts.BalanceChange) {
		if m == nil {
			return
		}
		f, _ := change.Balance.Float64()
		m.balances.WithLabelValues(change.Code, string(change.Type)).Set(f)
	}
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
