package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements SentStore using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL lets the status server read while a cycle writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Lookup(ctx context.Context, id model.AlertID) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM sent_alerts WHERE alert_id = ?`, string(id),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup sent marker: %w", err)
	}
	return true, nil
}

func (s *SQLite) Create(ctx context.Context, rec *model.SentRecord) error {
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

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO sent_alerts (alert_id, sent_at, payload)
		 VALUES (?, ?, ?)
		 ON CONFLICT(alert_id) DO NOTHING`,
		string(rec.AlertID), rec.SentAt, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert sent marker: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, limit int) ([]model.SentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT alert_id, sent_at, payload FROM sent_alerts
		 ORDER BY sent_at DESC, alert_id DESC LIMIT ?`, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("list sent markers: %w", err)
	}
	defer rows.Close()

	var records []model.SentRecord
	for rows.Next() {
		var (
			r       model.SentRecord
			id      string
			payload string
		)
		if err := rows.Scan(&id, &r.SentAt, &payload); err != nil {
			return nil, fmt.Errorf("scan sent marker row: %w", err)
		}
		r.AlertID = model.AlertID(id)
		if err := json.Unmarshal([]byte(payload), &r.Alert); err != nil {
			return nil, fmt.Errorf("decode payload of %s: %w", id, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ SentStore = (*SQLite)(nil)
