package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trueAnalytics/internal/format"
	"trueAnalytics/internal/metrics"
	"trueAnalytics/internal/model"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// insertNamespace scopes the deterministic $insert_id of every tracked event.
var insertNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://truenetwork.io/analytics"))

// Dispatcher maps blockchain events onto analytics calls.
type Dispatcher struct {
	sink    Sink
	issuers IssuerLookup
	logger  *zap.Logger
}

// NewDispatcher builds a Dispatcher. A nil IssuerLookup leaves issuer names as their hash.
func NewDispatcher(sink Sink, issuers IssuerLookup, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sink: sink, issuers: issuers, logger: logger}
}

// Dispatch sends one event to the sink. It stops at the first failing call,
// logs the failure and returns; it never panics into the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.BlockchainEvent) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("dispatch event panicked", zap.String("event", event.EventName), zap.Any("panic", p))
			metrics.SinkFailures.WithLabelValues(event.EventName).Inc()
		}
	}()

	if d.sink == nil {
		d.logger.Warn("dispatch skipped: no sink configured", zap.String("event", event.EventName))
		return
	}

	handler, ok := routes[event.EventName]
	if !ok {
		handler = trackGeneric
	}

	c := &call{d: d, ctx: ctx, event: event, common: commonProps(event)}
	if err := handler(c); err != nil {
		metrics.SinkFailures.WithLabelValues(event.EventName).Inc()
		d.logger.Error("dispatch event failed",
			zap.String("event", event.EventName),
			zap.String("block_hash", event.BlockHash),
			zap.Int("event_index", event.EventIndex),
			zap.Error(err),
		)
		return
	}
	metrics.SinkCalls.WithLabelValues(event.EventName).Inc()
}

// InsertID is the deterministic de-duplication id of an event.
func InsertID(event model.BlockchainEvent) string {
	key := fmt.Sprintf("%s:%d", event.BlockHash, event.EventIndex)
	return uuid.NewSHA1(insertNamespace, []byte(key)).String()
}

func commonProps(event model.BlockchainEvent) map[string]any {
	return map[string]any{
		"blockHash":   event.BlockHash,
		"blockNumber": event.BlockNumber,
		"timestamp":   event.Timestamp,
		"signer":      event.Signer,
		"$insert_id":  InsertID(event),
	}
}

func isoDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(isoMillis)
}

// issuerName falls back to the hash when the lookup fails or returns nothing.
func (d *Dispatcher) issuerName(ctx context.Context, hash string) string {
	if hash == "" || d.issuers == nil {
		return hash
	}
	name, err := d.issuers.IssuerName(ctx, hash)
	if err != nil {
		metrics.EnrichmentFailures.Inc()
		d.logger.Warn("issuer name lookup failed", zap.String("issuer_hash", hash), zap.Error(err))
		return hash
	}
	if name == "" {
		return hash
	}
	return name
}

// accountAddress returns the textual address of a parameter, or "" when the
// account is absent or unresolved.
func accountAddress(v any, ok bool) string {
	if !ok || v == nil {
		return ""
	}
	s := fmt.Sprint(v)
	if s == "Unknown" {
		return ""
	}
	return s
}

func chainTypeOf(address string) string {
	if address == "" {
		return string(format.ChainUnknown)
	}
	return string(format.ClassifyAddress(address))
}

func with(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
