package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultNATSSubject prefixes every published record; the operation is appended.
const DefaultNATSSubject = "tracker.analytics"

// NATS publishes every sink call to a JetStream stream.
type NATS struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	subject string
	now     func() time.Time
}

// NewNATS connects to url and makes sure a stream captures subject.>.
func NewNATS(url, stream, subject string, logger *zap.Logger) (*NATS, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if url == "" {
		url = nats.DefaultURL
	}
	if subject == "" {
		subject = DefaultNATSSubject
	}

	conn, err := nats.Connect(url, nats.RetryOnFailedConnect(true), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(stream); err != nil {
		logger.Info("create nats stream", zap.String("stream", stream), zap.String("subject", subject))
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       stream,
			Subjects:   []string{subject + ".>"},
			Retention:  nats.LimitsPolicy,
			Storage:    nats.FileStorage,
			MaxAge:     7 * 24 * time.Hour,
			Duplicates: 10 * time.Minute,
			Replicas:   1,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("create stream %s: %w", stream, err)
		}
	}

	return &NATS{conn: conn, js: js, subject: subject, now: time.Now}, nil
}

func (s *NATS) Track(ctx context.Context, distinctID, label string, props map[string]any) error {
	return s.publish(ctx, Record{Op: OpTrack, ID: distinctID, Label: label, Properties: props}, insertID(props))
}

func (s *NATS) SetOnce(ctx context.Context, entityID string, props map[string]any) error {
	return s.publish(ctx, Record{Op: OpSetOnce, ID: entityID, Properties: props}, "")
}

func (s *NATS) Set(ctx context.Context, entityID string, props map[string]any) error {
	return s.publish(ctx, Record{Op: OpSet, ID: entityID, Properties: props}, "")
}

func (s *NATS) Increment(ctx context.Context, entityID string, counters map[string]float64) error {
	return s.publish(ctx, Record{Op: OpIncrement, ID: entityID, Counters: counters}, "")
}

func (s *NATS) Union(ctx context.Context, entityID string, sets map[string][]string) error {
	return s.publish(ctx, Record{Op: OpUnion, ID: entityID, Sets: sets}, "")
}

// publish sends the record; a non-empty msgID lets JetStream drop redeliveries.
func (s *NATS) publish(ctx context.Context, record Record, msgID string) error {
	record.RecordedAt = s.now().UTC()
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", record.Op, err)
	}

	opts := []nats.PubOpt{nats.Context(ctx)}
	if msgID != "" {
		opts = append(opts, nats.MsgId(msgID))
	}
	if _, err := s.js.Publish(s.subject+"."+record.Op, data, opts...); err != nil {
		return fmt.Errorf("publish %s: %w", record.Op, err)
	}
	return nil
}

func (s *NATS) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
