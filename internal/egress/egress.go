// Package egress wraps the Kafka writer for the alert topic: alerts are
// keyed by zoneId so the hash balancer preserves per-zone ordering, and
// publish failures are logged and dropped rather than retried forever
// (spec §5: egress is best-effort once the alert has been computed).
package egress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dhruv-ship-it/geopulse/internal/circuitbreaker"
	"github.com/dhruv-ship-it/geopulse/internal/metrics"
	"github.com/dhruv-ship-it/geopulse/internal/model"
)

// Writer publishes Alerts to the egress topic.
type Writer struct {
	raw *kafka.Writer
	cb  *circuitbreaker.CBWriter
	log *slog.Logger
	met *metrics.Registry
}

// Config mirrors the subset of the spec §6 table relevant to egress.
type Config struct {
	Brokers []string
	Topic   string
}

// New builds a Writer. breaker may be disabled, in which case calls pass
// straight through to the underlying kafka.Writer.
func New(cfg Config, breaker *circuitbreaker.KafkaBreaker, met *metrics.Registry, log *slog.Logger) *Writer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Writer{
		raw: w,
		cb:  circuitbreaker.NewCBWriter(w, breaker),
		log: log,
		met: met,
	}
}

// Close flushes and releases the underlying Kafka writer.
func (w *Writer) Close() error {
	return w.raw.Close()
}

// Publish writes one Alert, keyed by zoneId. Only a JSON marshal failure
// is returned as an error. On a write failure it logs and counts the
// failure but returns nil: the caller must still commit the
// triggering event's ingress offset, per the at-least-once contract in
// spec §5 (ingress commit is gated on the alert having been *attempted*,
// not on egress succeeding).
func (w *Writer) Publish(ctx context.Context, alert model.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("egress: marshal alert: %w", err)
	}

	start := time.Now()
	err = w.cb.WriteMessages(ctx, kafka.Message{
		Key:   []byte(alert.ZoneID),
		Value: payload,
		Time:  time.UnixMilli(alert.Timestamp),
	})
	elapsed := time.Since(start)
	if w.met != nil {
		w.met.PublishLatencyMs.Observe(float64(elapsed.Milliseconds()))
	}

	if err != nil {
		w.log.Error("egress_publish_failed", "zoneId", alert.ZoneID, "error", err.Error())
		if w.met != nil {
			w.met.AlertPublishFails.Inc()
		}
		return nil
	}
	if w.met != nil {
		w.met.AlertsPublished.Inc()
	}
	return nil
}
