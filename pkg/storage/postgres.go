package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS sent_alerts (
	alert_id   TEXT PRIMARY KEY,
	sent_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	payload    JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_sent_alerts_sent_at ON sent_alerts(sent_at);`

// Postgres implements SentStore on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn, pings it and ensures the schema exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Lookup(ctx context.Context, id model.AlertID) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}

	var one int
	err := p.pool.QueryRow(ctx,
		`SELECT 1 FROM sent_alerts WHERE alert_id = $1`, string(id),
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup sent marker: %w", err)
	}
	return true, nil
}

func (p *Postgres) Create(ctx context.Context, rec *model.SentRecord) error {
	if err := checkID(rec.AlertID); err != nil {
		return err
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}

	payload, err := json.Marshal(rec.Alert)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	tag, err := p.pool.Exec(ctx,
		`INSERT INTO sent_alerts (alert_id, sent_at, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (alert_id) DO NOTHING`,
		string(rec.AlertID), rec.SentAt, payload,
	)
	if err != nil {
		return fmt.Errorf("insert sent marker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, limit int) ([]model.SentRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT alert_id, sent_at, payload
		   FROM sent_alerts
		  ORDER BY sent_at DESC, alert_id DESC
		  LIMIT $1`, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("list sent markers: %w", err)
	}
	defer rows.Close()

	var out []model.SentRecord
	for rows.Next() {
		var (
			id      string
			sentAt  time.Time
			payload []byte
		)
		if err := rows.Scan(&id, &sentAt, &payload); err != nil {
			return nil, fmt.Errorf("scan sent marker: %w", err)
		}
		rec := model.SentRecord{AlertID: model.AlertID(id), SentAt: sentAt.UTC()}
		if err := json.Unmarshal(payload, &rec.Alert); err != nil {
			return nil, fmt.Errorf("decode payload of %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

var _ SentStore = (*Postgres)(nil)
