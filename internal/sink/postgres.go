package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the event and profile tables used by Postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS analytics_events (
	insert_id   TEXT PRIMARY KEY,
	label       TEXT NOT NULL,
	distinct_id TEXT NOT NULL,
	block_hash  TEXT NOT NULL DEFAULT '',
	properties  JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS analytics_events_label_idx ON analytics_events (label);

CREATE TABLE IF NOT EXISTS analytics_profiles (
	entity_id  TEXT PRIMARY KEY,
	properties JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres stores tracked events and merges profile updates into JSONB documents.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables when missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Track inserts the event once per $insert_id.
func (s *Postgres) Track(ctx context.Context, distinctID, label string, props map[string]any) error {
	doc, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("marshal track properties: %w", err)
	}
	id := insertID(props)
	if id == "" {
		return fmt.Errorf("track %q: missing $insert_id", label)
	}
	blockHash, _ := props["blockHash"].(string)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO analytics_events (insert_id, label, distinct_id, block_hash, properties)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (insert_id) DO NOTHING
	`, id, label, distinctID, blockHash, string(doc))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// SetOnce adds properties the profile does not have yet.
func (s *Postgres) SetOnce(ctx context.Context, entityID string, props map[string]any) error {
	return s.mergeProfile(ctx, entityID, props, `EXCLUDED.properties || analytics_profiles.properties`)
}

// Set overwrites the given properties.
func (s *Postgres) Set(ctx context.Context, entityID string, props map[string]any) error {
	return s.mergeProfile(ctx, entityID, props, `analytics_profiles.properties || EXCLUDED.properties`)
}

func (s *Postgres) mergeProfile(ctx context.Context, entityID string, props map[string]any, merge string) error {
	doc, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("marshal profile properties: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO analytics_profiles (entity_id, properties)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (entity_id)
		DO UPDATE SET
			properties = `+merge+`,
			updated_at = now()
	`, entityID, string(doc))
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", entityID, err)
	}
	return nil
}

// Increment adds each amount to the numeric property, starting from zero.
func (s *Postgres) Increment(ctx context.Context, entityID string, counters map[string]float64) error {
	if len(counters) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	queueEnsureProfile(batch, entityID)
	for key, amount := range counters {
		batch.Queue(`
			UPDATE analytics_profiles
			SET properties = jsonb_set(
					properties,
					ARRAY[$2::text],
					to_jsonb(COALESCE((properties->>$2::text)::numeric, 0) + $3::numeric)
				),
				updated_at = now()
			WHERE entity_id = $1
		`, entityID, key, amount)
	}
	return s.sendBatch(ctx, batch, len(counters)+1, "increment", entityID)
}

// Union appends values to list properties, keeping each value once.
func (s *Postgres) Union(ctx context.Context, entityID string, sets map[string][]string) error {
	if len(sets) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	queueEnsureProfile(batch, entityID)
	for key, values := range sets {
		doc, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("marshal union values: %w", err)
		}
		batch.Queue(`
			UPDATE analytics_profiles
			SET properties = jsonb_set(
					properties,
					ARRAY[$2::text],
					(
						SELECT COALESCE(jsonb_agg(DISTINCT v), '[]'::jsonb)
						FROM jsonb_array_elements(
							COALESCE(properties->$2::text, '[]'::jsonb) || $3::jsonb
						) AS v
					)
				),
				updated_at = now()
			WHERE entity_id = $1
		`, entityID, key, string(doc))
	}
	return s.sendBatch(ctx, batch, len(sets)+1, "union", entityID)
}

func queueEnsureProfile(batch *pgx.Batch, entityID string) {
	batch.Queue(`
		INSERT INTO analytics_profiles (entity_id) VALUES ($1)
		ON CONFLICT (entity_id) DO NOTHING
	`, entityID)
}

func (s *Postgres) sendBatch(ctx context.Context, batch *pgx.Batch, n int, op, entityID string) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%s profile %s: %w", op, entityID, err)
		}
	}
	return nil
}
