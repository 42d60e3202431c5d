// Package dispatcher runs the worker pool that turns ingress SampleEvents
// into zone state transitions and, when one fires, an egress Alert plus
// a best-effort materialized-state write. Per spec §4.2, per-zone
// single-writer ordering comes for free from Kafka consumer-group
// partition assignment: every worker in the pool shares one consumer
// group on the zoneId-keyed ingress topic, so each zone's events land on
// exactly one worker's goroutine and no separate hash-dispatch layer is
// needed, mirroring how the ledger's per-zone zoneConsumer owns a
// disjoint partition set.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/dhruv-ship-it/geopulse/internal/ingress"
	"github.com/dhruv-ship-it/geopulse/internal/metrics"
	"github.com/dhruv-ship-it/geopulse/internal/model"
	"github.com/dhruv-ship-it/geopulse/internal/statemachine"
	"github.com/dhruv-ship-it/geopulse/internal/window"
)

// EventReader is the subset of *ingress.Reader a worker needs; narrowed
// to an interface so tests can exercise runWorker against a fake without
// a live Kafka broker.
type EventReader interface {
	Next(ctx context.Context) (model.SampleEvent, kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
	Close() error
}

// AlertPublisher is the subset of *egress.Writer a worker needs.
type AlertPublisher interface {
	Publish(ctx context.Context, alert model.Alert) error
}

// StateStore is the subset of *materialized.Store a worker needs.
type StateStore interface {
	Upsert(ctx context.Context, st model.MaterializedState)
}

// zoneState is the mutable per-zone state a single worker owns: two
// sliding windows and the confirmation timers, keyed by zoneId. Because
// the owning worker is the only goroutine that ever touches a given
// zoneId (partition assignment guarantees this), no locking is needed
// here, matching the single-writer invariant in spec §4.2.
type zoneState struct {
	win1m  *window.SlidingWindow
	win5m  *window.SlidingWindow
	timers *statemachine.Timers
	state  model.ZoneStateKind
	lat    float64
	lon    float64
}

// Pool owns the worker goroutines. Readers is the set of Kafka readers
// to run, one per worker, all sharing the ingress consumer group so the
// broker handles partition assignment.
type Pool struct {
	readers []EventReader
	writer  AlertPublisher
	store   StateStore
	met     *metrics.Registry
	log     *slog.Logger

	wg sync.WaitGroup
}

// New builds a worker pool of len(readers) goroutines. writer and store
// may be nil interfaces — the worker loop checks both before use.
func New(readers []EventReader, writer AlertPublisher, store StateStore, met *metrics.Registry, log *slog.Logger) *Pool {
	return &Pool{readers: readers, writer: writer, store: store, met: met, log: log}
}

// Run starts every worker and blocks until ctx is cancelled and all
// workers have drained their in-flight event, per the graceful shutdown
// contract in spec §5.
func (p *Pool) Run(ctx context.Context) {
	for i, r := range p.readers {
		p.wg.Add(1)
		go func(id int, reader EventReader) {
			defer p.wg.Done()
			p.runWorker(ctx, id, reader)
		}(i, r)
	}
	p.wg.Wait()
}

func (p *Pool) runWorker(ctx context.Context, id int, reader EventReader) {
	log := p.log.With("worker", id)
	log.Info("worker_start")
	defer log.Info("worker_stop")

	zones := make(map[string]*zoneState)

	for {
		ev, msg, err := reader.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if ingress.IsMalformed(err) {
				if p.met != nil {
					p.met.EventsMalformed.Inc()
				}
				continue
			}
			log.Error("worker_fetch_error", "error", err.Error())
			continue
		}

		zs, ok := zones[ev.ZoneID]
		if !ok {
			zs = &zoneState{
				win1m:  window.New(60),
				win5m:  window.New(300),
				timers: &statemachine.Timers{},
				state:  model.Normal,
			}
			zones[ev.ZoneID] = zs
		}
		zs.lat, zs.lon = ev.Latitude, ev.Longitude

		zs.win1m.Add(ev.EventTimestamp, ev.Load)
		zs.win5m.Add(ev.EventTimestamp, ev.Load)
		avg1m := zs.win1m.Average()
		avg5m := zs.win5m.Average()

		res := statemachine.Step(zs.state, avg1m, avg5m, ev.EventTimestamp, zs.timers)
		previous := zs.state
		zs.state = res.NextState

		if p.met != nil {
			p.met.EventsProcessed.Inc()
		}

		if res.Fired {
			if p.met != nil {
				p.met.StateTransitions.WithLabelValues(string(previous), string(res.NextState)).Inc()
			}
			if res.Emit && p.writer != nil {
				alert := model.Alert{
					ZoneID:        ev.ZoneID,
					PreviousState: previous,
					CurrentState:  res.NextState,
					Avg1m:         avg1m,
					Avg5m:         avg5m,
					Timestamp:     ev.EventTimestamp,
				}
				if err := p.writer.Publish(ctx, alert); err != nil {
					log.Error("alert_publish_error", "zoneId", ev.ZoneID, "error", err.Error())
				}
			}

			if p.store != nil {
				p.store.Upsert(ctx, model.MaterializedState{
					ZoneID:      ev.ZoneID,
					State:       zs.state,
					Avg1m:       avg1m,
					Avg5m:       avg5m,
					Latitude:    zs.lat,
					Longitude:   zs.lon,
					LastUpdated: ev.EventTimestamp,
				})
			}
		}

		if err := reader.Commit(ctx, msg); err != nil {
			log.Error("worker_commit_error", "zoneId", ev.ZoneID, "error", err.Error())
		}
	}
}

// Close releases every reader's underlying Kafka connection.
func (p *Pool) Close() error {
	var firstErr error
	for _, r := range p.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("dispatcher: close reader: %w", err)
		}
	}
	return firstErr
}
