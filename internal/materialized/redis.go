// Package materialized writes best-effort current-state snapshots to
// Redis, grounded on the Repository pattern used for the hot/cold
// storage split in the data-persister service: Redis holds only the
// latest value per zone (here under a "geopulse:" prefix rather than
// "sensor:last:{id}"), and a GEOADD call keeps a parallel geo-index so a
// consumer can query zones by location.
package materialized

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dhruv-ship-it/geopulse/internal/metrics"
	"github.com/dhruv-ship-it/geopulse/internal/model"
)

const geoIndexKey = "zones:geo"

// Store is the materialized-state adapter. Every write is best-effort:
// a failure is logged and counted but never blocks or fails the caller,
// per spec §5 (materialized-store writes are side effects, not part of
// the at-least-once delivery contract).
type Store struct {
	client *redis.Client
	prefix string
	log    *slog.Logger
	met    *metrics.Registry
}

// Config holds the Redis connection settings from spec_full §6.
type Config struct {
	Addr      string
	KeyPrefix string
}

// New builds a Store from cfg.
func New(cfg Config, met *metrics.Registry, log *slog.Logger) *Store {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "geopulse:"
	}
	return &Store{client: client, prefix: prefix, log: log, met: met}
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(zoneID string) string {
	return fmt.Sprintf("%szone:%s", s.prefix, zoneID)
}

func (s *Store) geoKey() string {
	return s.prefix + geoIndexKey
}

// Upsert writes the zone's current state snapshot and refreshes its
// entry in the geo-index. Errors are logged, counted, and swallowed.
func (s *Store) Upsert(ctx context.Context, st model.MaterializedState) {
	payload, err := json.Marshal(st)
	if err != nil {
		s.log.Error("materialized_marshal_failed", "zoneId", st.ZoneID, "error", err.Error())
		s.countFailure()
		return
	}

	if err := s.client.Set(ctx, s.key(st.ZoneID), payload, 0).Err(); err != nil {
		s.log.Warn("materialized_set_failed", "zoneId", st.ZoneID, "error", err.Error())
		s.countFailure()
		return
	}

	if st.Longitude != 0 || st.Latitude != 0 {
		geo := &redis.GeoLocation{Name: st.ZoneID, Longitude: st.Longitude, Latitude: st.Latitude}
		if err := s.client.GeoAdd(ctx, s.geoKey(), geo).Err(); err != nil {
			s.log.Warn("materialized_geoadd_failed", "zoneId", st.ZoneID, "error", err.Error())
			s.countFailure()
		}
	}
}

func (s *Store) countFailure() {
	if s.met != nil {
		s.met.MaterializedFails.Inc()
	}
}

// Get reads back a zone's last materialized state, used by the status
// HTTP endpoint for debugging/inspection rather than by the core
// pipeline itself.
func (s *Store) Get(ctx context.Context, zoneID string) (model.MaterializedState, bool, error) {
	val, err := s.client.Get(ctx, s.key(zoneID)).Bytes()
	if err == redis.Nil {
		return model.MaterializedState{}, false, nil
	}
	if err != nil {
		return model.MaterializedState{}, false, err
	}
	var st model.MaterializedState
	if err := json.Unmarshal(val, &st); err != nil {
		return model.MaterializedState{}, false, err
	}
	return st, true, nil
}
