// Package ingress wraps the Kafka reader for the raw zone-event topic:
// decode-and-validate, with commit-after-processing semantics per spec
// §5 (at-least-once — the offset only advances once the caller confirms
// the event was fully handled).
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dhruv-ship-it/geopulse/internal/circuitbreaker"
	"github.com/dhruv-ship-it/geopulse/internal/model"
)

// Reader pulls and decodes SampleEvents from one partition assignment of
// the ingress topic's consumer group.
type Reader struct {
	raw     *kafka.Reader
	cb      *circuitbreaker.CBReader
	breaker *circuitbreaker.KafkaBreaker
	log     *slog.Logger

	backoff time.Duration
}

// Config mirrors the subset of the spec §6 table relevant to ingress.
type Config struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	Backoff       time.Duration
}

// New builds a Reader. breaker may be disabled (Enabled()==false), in
// which case calls pass straight through to the underlying kafka.Reader.
func New(cfg Config, breaker *circuitbreaker.KafkaBreaker, log *slog.Logger) *Reader {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Reader{
		raw:     r,
		cb:      circuitbreaker.NewCBReader(r, breaker),
		breaker: breaker,
		log:     log,
		backoff: backoff,
	}
}

// Close releases the underlying Kafka reader.
func (r *Reader) Close() error {
	return r.raw.Close()
}

// Next blocks until it can return a decoded, valid SampleEvent and the
// raw kafka.Message needed to commit it later, or ctx is cancelled.
// A malformed payload has its offset committed and is reported as an
// error for which IsMalformed is true, so the caller can count it and
// call Next again. Transport errors are retried inside Next with a fixed
// backoff sleep; a breaker ErrOpen is returned to the caller.
func (r *Reader) Next(ctx context.Context) (model.SampleEvent, kafka.Message, error) {
	for {
		msg, err := r.cb.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return model.SampleEvent{}, kafka.Message{}, ctx.Err()
			}
			if errors.Is(err, circuitbreaker.ErrOpen) {
				return model.SampleEvent{}, kafka.Message{}, err
			}
			r.log.Warn("ingress_fetch_error", "error", err.Error(), "backoff_ms", r.backoff.Milliseconds())
			if waitErr := sleep(ctx, r.backoff); waitErr != nil {
				return model.SampleEvent{}, kafka.Message{}, waitErr
			}
			continue
		}

		var ev model.SampleEvent
		if decodeErr := json.Unmarshal(msg.Value, &ev); decodeErr != nil {
			r.log.Warn("ingress_decode_error", "error", decodeErr.Error(), "offset", msg.Offset)
			if commitErr := r.Commit(ctx, msg); commitErr != nil {
				r.log.Error("ingress_commit_after_decode_error_failed", "error", commitErr.Error())
			}
			return model.SampleEvent{}, kafka.Message{}, errMalformed{cause: decodeErr}
		}
		if !ev.Valid() {
			r.log.Warn("ingress_validation_error", "zoneId", ev.ZoneID, "offset", msg.Offset)
			if commitErr := r.Commit(ctx, msg); commitErr != nil {
				r.log.Error("ingress_commit_after_validation_error_failed", "error", commitErr.Error())
			}
			return model.SampleEvent{}, kafka.Message{}, errMalformed{cause: fmt.Errorf("event failed validation")}
		}

		return ev, msg, nil
	}
}

// Commit advances the consumer-group offset past msg. Call only after the
// event's full side effects (state transition, alert publish,
// materialized write) have completed, per the at-least-once contract.
func (r *Reader) Commit(ctx context.Context, msg kafka.Message) error {
	return r.cb.CommitMessages(ctx, msg)
}

// errMalformed signals the caller should count a dropped event and move
// on to the next Next() call; it is never a transport failure.
type errMalformed struct{ cause error }

func (e errMalformed) Error() string { return fmt.Sprintf("malformed event: %v", e.cause) }
func (e errMalformed) Unwrap() error { return e.cause }

// IsMalformed reports whether err was produced by a decode/validation
// failure rather than a transport or context error.
func IsMalformed(err error) bool {
	var m errMalformed
	return errors.As(err, &m)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
