package sink

import (
	"context"
	"errors"

	"trueAnalytics/internal/analytics"
)

// Fanout forwards every call to all of its sinks. One sink failing does not
// stop the others; the errors are joined.
type Fanout []analytics.Sink

func (f Fanout) Track(ctx context.Context, distinctID, label string, props map[string]any) error {
	return f.each(func(s analytics.Sink) error { return s.Track(ctx, distinctID, label, props) })
}

func (f Fanout) SetOnce(ctx context.Context, entityID string, props map[string]any) error {
	return f.each(func(s analytics.Sink) error { return s.SetOnce(ctx, entityID, props) })
}

func (f Fanout) Set(ctx context.Context, entityID string, props map[string]any) error {
	return f.each(func(s analytics.Sink) error { return s.Set(ctx, entityID, props) })
}

func (f Fanout) Increment(ctx context.Context, entityID string, counters map[string]float64) error {
	return f.each(func(s analytics.Sink) error { return s.Increment(ctx, entityID, counters) })
}

func (f Fanout) Union(ctx context.Context, entityID string, sets map[string][]string) error {
	return f.each(func(s analytics.Sink) error { return s.Union(ctx, entityID, sets) })
}

func (f Fanout) each(fn func(analytics.Sink) error) error {
	var errs []error
	for _, s := range f {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
