package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"news-impact-alerts/internal/schema"
)

const (
	createArchiveSchemaSQL = `CREATE TABLE IF NOT EXISTS events (
        event_id   TEXT PRIMARY KEY,
        headline   TEXT NOT NULL,
        source     TEXT NOT NULL,
        ts         TIMESTAMPTZ NOT NULL,
        payload    JSONB NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS validations (
        event_id     TEXT NOT NULL,
        horizon      TEXT NOT NULL,
        payload      JSONB NOT NULL,
        validated_at TIMESTAMPTZ NOT NULL,
        created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (event_id, horizon)
    );`

	insertArchiveEventSQL = `INSERT INTO events (
        event_id, headline, source, ts, payload
    ) VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (event_id) DO NOTHING;`

	insertArchiveValidationSQL = `INSERT INTO validations (
        event_id, horizon, payload, validated_at
    ) VALUES ($1,$2,$3,$4)
    ON CONFLICT (event_id, horizon) DO NOTHING;`

	countArchiveEventsSQL = `SELECT COUNT(*) FROM events;`
)

// PoolConfig mirrors the database section of the runtime configuration.
type PoolConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewPool configures a PostgreSQL connection pool for the archive.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// Archive is the optional durable mirror of both collections. Writes are
// ON CONFLICT DO NOTHING: stored records are immutable.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive wires a pgx pool into an Archive.
func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

// Close releases the underlying pool resources.
func (a *Archive) Close() {
	if a == nil || a.pool == nil {
		return
	}
	a.pool.Close()
}

// EnsureSchema creates the archive tables when absent.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, createArchiveSchemaSQL); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

// InsertEvent mirrors one event row.
func (a *Archive) InsertEvent(event schema.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := a.pool.Exec(ctx, insertArchiveEventSQL,
		event.EventID,
		event.Headline,
		event.Source,
		event.Timestamp,
		payload,
	); err != nil {
		return fmt.Errorf("insert archive event: %w", err)
	}
	return nil
}

// InsertValidation mirrors one validation row.
func (a *Archive) InsertValidation(v schema.Validation) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal validation payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := a.pool.Exec(ctx, insertArchiveValidationSQL,
		v.EventID,
		v.Horizon,
		payload,
		v.ValidatedAt,
	); err != nil {
		return fmt.Errorf("insert archive validation: %w", err)
	}
	return nil
}

// CountEvents counts archived events.
func (a *Archive) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	if err := a.pool.QueryRow(ctx, countArchiveEventsSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count archive events: %w", err)
	}
	return count, nil
}
