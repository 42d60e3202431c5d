package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := New("test", Config{MaxFailures: 3, ResetTimeout: time.Minute}, nil, nil)
	failing := func(ctx context.Context) error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		if err := b.Execute(context.Background(), failing); err == nil {
			t.Fatalf("expected failure on attempt %d", i)
		}
	}
	if b.State() != Open {
		t.Fatalf("expected breaker open after 3 consecutive failures, got %s", b.State())
	}
	if err := b.Execute(context.Background(), failing); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen while breaker is open and not yet reset, got %v", err)
	}
}

func TestBreakerClosesAfterSuccessfulProbe(t *testing.T) {
	b := New("test", Config{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond}, nil, nil)
	failing := func(ctx context.Context) error { return errors.New("boom") }
	succeeding := func(ctx context.Context) error { return nil }

	if err := b.Execute(context.Background(), failing); err == nil {
		t.Fatalf("expected initial failure")
	}
	if b.State() != Open {
		t.Fatalf("expected open after single failure with MaxFailures=1")
	}

	time.Sleep(15 * time.Millisecond)
	if err := b.Execute(context.Background(), succeeding); err != nil {
		t.Fatalf("expected half-open probe to succeed, got %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("expected closed after successful probe, got %s", b.State())
	}
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	b := New("test", Config{MaxFailures: 2, ResetTimeout: time.Second}, nil, nil)
	ok := func(ctx context.Context) error { return nil }
	for i := 0; i < 10; i++ {
		if err := b.Execute(context.Background(), ok); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if b.State() != Closed {
		t.Fatalf("expected closed, got %s", b.State())
	}
}
