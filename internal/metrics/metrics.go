package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pipeline counters, partitioned by event name or skip reason.

var (
	BlocksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "pipeline",
		Name:      "blocks_processed_total",
		Help:      "Total finalized blocks run through the pipeline",
	})

	BlockErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "pipeline",
		Name:      "block_errors_total",
		Help:      "Total blocks that could not be fetched",
	})

	BlockLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tracker",
		Subsystem: "pipeline",
		Name:      "block_duration_seconds",
		Help:      "Time to fetch, decode and dispatch one block",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "pipeline",
		Name:      "events_emitted_total",
		Help:      "Total decoded events forwarded to the dispatcher",
	}, []string{"event"})

	EventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "pipeline",
		Name:      "events_skipped_total",
		Help:      "Total events dropped by the pipeline",
	}, []string{"reason"})

	DecodeFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "decoder",
		Name:      "fallbacks_total",
		Help:      "Total events emitted with a degraded decoding",
	}, []string{"event"})

	SinkCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "sink",
		Name:      "dispatched_total",
		Help:      "Total events fully dispatched to the analytics sink",
	}, []string{"event"})

	SinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "sink",
		Name:      "failures_total",
		Help:      "Total events whose dispatch stopped on a sink error",
	}, []string{"event"})

	EnrichmentFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "sink",
		Name:      "enrichment_failures_total",
		Help:      "Total issuer name lookups that fell back to the raw hash",
	})
)

// Skip reasons.
const (
	SkipFiltered    = "filtered"
	SkipPhase       = "phase"
	SkipUnsigned    = "unsigned"
	SkipUndecodable = "undecodable"
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server start", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
