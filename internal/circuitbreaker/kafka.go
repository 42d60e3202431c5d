package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// kafkaWriter mirrors the subset of kafka.Writer the breaker wrapper uses.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// kafkaReader mirrors the subset of kafka.Reader the breaker wrapper uses.
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaBreaker holds the enable/disable switch and tunables for the
// ingress/egress Kafka wrappers, loaded from CB_* environment variables
// per spec_full §6.
type KafkaBreaker struct {
	enabled bool
	timeout time.Duration
	backoff time.Duration
	breaker *Breaker
}

// Enabled reports whether breaker protection is active for this wrapper.
func (k *KafkaBreaker) Enabled() bool {
	return k != nil && k.enabled && k.breaker != nil
}

// NewKafkaBreaker builds a KafkaBreaker from already-parsed settings; see
// internal/config for the CB_* environment parsing.
func NewKafkaBreaker(name string, enabled bool, maxFailures int, resetTimeout, opTimeout, backoff time.Duration, log *slog.Logger) *KafkaBreaker {
	kb := &KafkaBreaker{enabled: enabled, timeout: opTimeout, backoff: backoff}
	if enabled {
		kb.breaker = New(name, Config{MaxFailures: maxFailures, ResetTimeout: resetTimeout}, log, nil)
	}
	return kb
}

// CBReader wraps a kafka.Reader with breaker protection around FetchMessage.
// CommitMessages is passed straight through: offset commits should not be
// fast-failed, they are the signal that processing already succeeded.
type CBReader struct {
	breaker *KafkaBreaker
	reader  kafkaReader
}

func NewCBReader(reader kafkaReader, breaker *KafkaBreaker) *CBReader {
	return &CBReader{reader: reader, breaker: breaker}
}

func (r *CBReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r == nil || r.reader == nil {
		return kafka.Message{}, errors.New("nil kafka reader")
	}
	if !r.breaker.Enabled() {
		return r.reader.FetchMessage(ctx)
	}
	var msg kafka.Message
	err := r.breaker.do(ctx, func(execCtx context.Context) error {
		var innerErr error
		msg, innerErr = r.reader.FetchMessage(execCtx)
		return innerErr
	})
	return msg, err
}

func (r *CBReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return r.reader.CommitMessages(ctx, msgs...)
}

// CBWriter wraps a kafka.Writer with breaker protection around WriteMessages.
type CBWriter struct {
	breaker *KafkaBreaker
	writer  kafkaWriter
}

func NewCBWriter(writer kafkaWriter, breaker *KafkaBreaker) *CBWriter {
	return &CBWriter{writer: writer, breaker: breaker}
}

func (w *CBWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w == nil || w.writer == nil {
		return errors.New("nil kafka writer")
	}
	if !w.breaker.Enabled() {
		return w.writer.WriteMessages(ctx, msgs...)
	}
	return w.breaker.do(ctx, func(execCtx context.Context) error {
		return w.writer.WriteMessages(execCtx, msgs...)
	})
}

// do runs op under the breaker, retrying on ErrOpen after a backoff until
// ctx is done.
func (k *KafkaBreaker) do(ctx context.Context, op func(ctx context.Context) error) error {
	if !k.Enabled() {
		return op(ctx)
	}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		attemptCtx, cancel := k.withTimeout(ctx)
		err := k.breaker.Execute(attemptCtx, op)
		cancel()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrOpen) {
			return err
		}
		if waitErr := k.waitBackoff(ctx); waitErr != nil {
			return waitErr
		}
	}
}

func (k *KafkaBreaker) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if k.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, k.timeout)
}

func (k *KafkaBreaker) waitBackoff(ctx context.Context) error {
	if k.backoff <= 0 {
		return nil
	}
	timer := time.NewTimer(k.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
