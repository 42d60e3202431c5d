// Package alertstore is the durable collaborator for the alertsink
// binary: the binary consumes the egress alert topic and this package
// persists each alert to Postgres via pgxpool, following the pgxpool.New/Ping wiring the
// data-persister repository uses for its cold-storage side.
package alertstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dhruv-ship-it/geopulse/internal/model"
)

// Store persists Alerts to a Postgres table.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres at dsn and verifies the connection.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("alertstore: configure pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("alertstore: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the alerts table if it does not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS zone_alerts (
	id              UUID PRIMARY KEY,
	zone_id         TEXT NOT NULL,
	previous_state  TEXT NOT NULL,
	current_state   TEXT NOT NULL,
	avg_1m          DOUBLE PRECISION NOT NULL,
	avg_5m          DOUBLE PRECISION NOT NULL,
	event_timestamp BIGINT NOT NULL,
	received_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS zone_alerts_zone_id_idx ON zone_alerts (zone_id, event_timestamp DESC);`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// Insert persists one alert, assigning it a fresh id.
func (s *Store) Insert(ctx context.Context, alert model.Alert) error {
	const query = `
INSERT INTO zone_alerts (id, zone_id, previous_state, current_state, avg_1m, avg_5m, event_timestamp)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, query,
		uuid.New(),
		alert.ZoneID,
		string(alert.PreviousState),
		string(alert.CurrentState),
		alert.Avg1m,
		alert.Avg5m,
		alert.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("alertstore: insert: %w", err)
	}
	return nil
}

// AlertRecord is an alert as read back from storage, including the row
// id the alertapi exposes. The server-assigned received_at column is not
// read back.
type AlertRecord struct {
	ID            uuid.UUID         `json:"id"`
	ZoneID        string            `json:"zoneId"`
	PreviousState model.ZoneStateKind `json:"previousState"`
	CurrentState  model.ZoneStateKind `json:"currentState"`
	Avg1m         float64           `json:"avg1m"`
	Avg5m         float64           `json:"avg5m"`
	EventTime     int64             `json:"eventTimestamp"`
}

// RecentForZone returns up to limit of the most recent alerts for zoneID,
// newest first.
func (s *Store) RecentForZone(ctx context.Context, zoneID string, limit int) ([]AlertRecord, error) {
	const query = `
SELECT id, zone_id, previous_state, current_state, avg_1m, avg_5m, event_timestamp
FROM zone_alerts
WHERE zone_id = $1
ORDER BY event_timestamp DESC
LIMIT $2`
	rows, err := s.pool.Query(ctx, query, zoneID, limit)
	if err != nil {
		return nil, fmt.Errorf("alertstore: query: %w", err)
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(&rec.ID, &rec.ZoneID, &rec.PreviousState, &rec.CurrentState, &rec.Avg1m, &rec.Avg5m, &rec.EventTime); err != nil {
			return nil, fmt.Errorf("alertstore: scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
