package analytics

import "context"

// Sink is the analytics backend: one event stream plus per-entity profiles.
// Every call is independent; the dispatcher issues them sequentially.
type Sink interface {
	Track(ctx context.Context, distinctID, label string, props map[string]any) error
	SetOnce(ctx context.Context, entityID string, props map[string]any) error
	Set(ctx context.Context, entityID string, props map[string]any) error
	Increment(ctx context.Context, entityID string, counters map[string]float64) error
	Union(ctx context.Context, entityID string, sets map[string][]string) error
}

// IssuerLookup resolves an issuer hash to its registered display name.
type IssuerLookup interface {
	IssuerName(ctx context.Context, hash string) (string, error)
}
