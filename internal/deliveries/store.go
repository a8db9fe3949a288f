// Package deliveries keeps a ledger of processed webhook deliveries.
package deliveries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	event       TEXT NOT NULL,
	ref         TEXT NOT NULL DEFAULT '',
	status_code INTEGER NOT NULL,
	processed   INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	received_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS deliveries_received_at ON deliveries (received_at);
`

// Store persists deliveries in a SQL database
type Store struct {
	db *sql.DB
}

// Open connects to the database and creates the schema when missing
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open deliveries db: %w", err)
	}
	// sqlite serialises writers anyway
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create deliveries schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record stores a delivery, replacing any earlier entry with the same id
// (GitHub redeliveries reuse the delivery id).
func (s *Store) Record(ctx context.Context, d models.Delivery) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, run_id, event, ref, status_code, processed, errors, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id = excluded.run_id,
			event = excluded.event,
			ref = excluded.ref,
			status_code = excluded.status_code,
			processed = excluded.processed,
			errors = excluded.errors,
			received_at = excluded.received_at`,
		d.ID, d.RunID, d.Event, d.Ref, d.StatusCode, d.Processed, d.Errors, d.ReceivedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record delivery %s: %w", d.ID, err)
	}
	return nil
}

// Recent returns up to limit deliveries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]models.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, event, ref, status_code, processed, errors, received_at
		FROM deliveries
		ORDER BY received_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	out := make([]models.Delivery, 0)
	for rows.Next() {
		var (
			d          models.Delivery
			receivedAt time.Time
		)
		if err := rows.Scan(&d.ID, &d.RunID, &d.Event, &d.Ref, &d.StatusCode, &d.Processed, &d.Errors, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.ReceivedAt = receivedAt.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
