package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "earnledger_operations_total",
			Help: "Total number of ledger operations by outcome",
		},
		[]string{"op", "status"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "earnledger_operation_duration_seconds",
			Help:    "Duration of ledger operations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100us to ~1.6s
		},
		[]string{"op"},
	)

	FeesCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "earnledger_fees_collected_total",
			Help: "Fee units routed to each bucket",
		},
		[]string{"bucket"},
	)

	RewardsPaid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "earnledger_rewards_paid_total",
			Help: "Reward units paid to stakers",
		},
	)

	RewardsForfeited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "earnledger_rewards_forfeited_total",
			Help: "Reward units dropped because the pool could not cover them",
		},
	)

	TokensBurned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "earnledger_tokens_burned_total",
			Help: "Asset units burned by buybacks",
		},
	)

	ReentrancyRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "earnledger_reentrancy_rejected_total",
			Help: "Reentrant calls rejected by the stake account lock",
		},
	)

	TotalStaked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "earnledger_pool_total_staked",
			Help: "Total staked per pool",
		},
		[]string{"mint"},
	)

	ExportRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "earnledger_export_runs_total",
			Help: "Snapshot export runs by outcome",
		},
		[]string{"status"},
	)

	ExportRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "earnledger_export_retries_total",
			Help: "Retried snapshot export writes by operation",
		},
		[]string{"op"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "earnledger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "earnledger_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RecordOperation records the outcome and latency of a ledger operation.
func RecordOperation(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	OperationsTotal.WithLabelValues(op, status).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
