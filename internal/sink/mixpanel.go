package sink

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dukex/mixpanel"
)

// DefaultMixpanelURL is the public Mixpanel ingestion endpoint.
const DefaultMixpanelURL = "https://api.mixpanel.com"

// Mixpanel profile operations.
const (
	mixpanelSet     = "$set"
	mixpanelSetOnce = "$set_once"
	mixpanelAdd     = "$add"
	mixpanelUnion   = "$union"
)

type mixpanelClient interface {
	Track(distinctID, eventName string, e *mixpanel.Event) error
	Update(distinctID string, u *mixpanel.Update) error
}

// Mixpanel sends events and profile updates to a Mixpanel project.
type Mixpanel struct {
	client mixpanelClient
}

// NewMixpanel builds a Mixpanel sink for the project token.
func NewMixpanel(token, apiURL string, timeout time.Duration) (*Mixpanel, error) {
	if token == "" {
		return nil, fmt.Errorf("mixpanel token is required")
	}
	if apiURL == "" {
		apiURL = DefaultMixpanelURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := mixpanel.NewFromClient(&http.Client{Timeout: timeout}, token, apiURL)
	return &Mixpanel{client: client}, nil
}

func (m *Mixpanel) Track(ctx context.Context, distinctID, label string, props map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	event := &mixpanel.Event{Properties: props}
	if ts, ok := eventTime(props); ok {
		event.Timestamp = &ts
	}
	if err := m.client.Track(distinctID, label, event); err != nil {
		return fmt.Errorf("mixpanel track: %w", err)
	}
	return nil
}

func (m *Mixpanel) SetOnce(ctx context.Context, entityID string, props map[string]any) error {
	return m.update(ctx, entityID, mixpanelSetOnce, props)
}

func (m *Mixpanel) Set(ctx context.Context, entityID string, props map[string]any) error {
	return m.update(ctx, entityID, mixpanelSet, props)
}

func (m *Mixpanel) Increment(ctx context.Context, entityID string, counters map[string]float64) error {
	props := make(map[string]any, len(counters))
	for k, v := range counters {
		props[k] = v
	}
	return m.update(ctx, entityID, mixpanelAdd, props)
}

func (m *Mixpanel) Union(ctx context.Context, entityID string, sets map[string][]string) error {
	props := make(map[string]any, len(sets))
	for k, v := range sets {
		props[k] = v
	}
	return m.update(ctx, entityID, mixpanelUnion, props)
}

func (m *Mixpanel) update(ctx context.Context, entityID, operation string, props map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := m.client.Update(entityID, &mixpanel.Update{
		Operation:  operation,
		Properties: props,
	})
	if err != nil {
		return fmt.Errorf("mixpanel %s: %w", operation, err)
	}
	return nil
}
