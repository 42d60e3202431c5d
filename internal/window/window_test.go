package window

import (
	"math"
	"testing"
)

func TestEmptyWindowAverageIsZeroNotNaN(t *testing.T) {
	w := New(60)
	if got := w.Average(); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestAddAccumulatesSumAndCount(t *testing.T) {
	w := New(60)
	base := int64(1_000_000)
	for i := 0; i < 10; i++ {
		w.Add(base+int64(i)*1000, 0.5)
	}
	if got := w.Average(); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := w.Count(); got != 10 {
		t.Fatalf("expected count 10, got %d", got)
	}
}

func TestEvictionKeepsOnlyBucketsInsideWindow(t *testing.T) {
	w := New(60)
	base := int64(1_000_000)
	for i := 0; i < 400; i++ {
		w.Add(base+int64(i)*1000, 0.95)
	}
	lastKey := (base + 399*1000) / 1000
	for key := range w.Buckets() {
		if lastKey-key >= 60 {
			t.Fatalf("bucket %d should have been evicted relative to %d", key, lastKey)
		}
	}
	if w.Count() > 60 {
		t.Fatalf("expected at most 60 one-per-second samples in window, got %d", w.Count())
	}
}

func TestMultipleSamplesInSameSecondShareABucket(t *testing.T) {
	w := New(60)
	lo, hi := 0.2, 0.4
	w.Add(1_000_000, lo)
	w.Add(1_000_500, hi)
	// float64 (0.2+0.4)/2 is 0.30000000000000004, not the literal 0.3.
	if got, want := w.Average(), (lo+hi)/2; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(w.Buckets()) != 1 {
		t.Fatalf("expected a single shared bucket, got %d", len(w.Buckets()))
	}
}

func TestOutOfOrderInsertionIsAccepted(t *testing.T) {
	w := New(60)
	base := int64(2_000_000)
	for i := 0; i < 60; i++ {
		w.Add(base+int64(i)*1000, 0.95)
	}
	before := w.Average()
	// 30s earlier than the highest key seen so far, but still inside the
	// window anchored at its own second.
	w.Add(base-30_000, 0.0)
	after := w.Average()
	if after >= before {
		t.Fatalf("expected average to drop slightly after low out-of-order sample: before=%v after=%v", before, after)
	}
}

func TestVeryLateEventStillInsertedThenEvicted(t *testing.T) {
	w := New(60)
	base := int64(10_000_000)
	for i := 0; i < 120; i++ {
		w.Add(base+int64(i)*1000, 0.9)
	}
	// Arrives far older than anything currently retained; still gets its
	// own fresh bucket per the documented late-arrival policy.
	veryLate := base - 500_000
	w.Add(veryLate, 0.0)
	if _, ok := w.Buckets()[veryLate/1000]; !ok {
		t.Fatalf("expected a fresh bucket for the very late event")
	}
	// The next in-window event evicts it.
	w.Add(base+120_000, 0.9)
	if _, ok := w.Buckets()[veryLate/1000]; ok {
		t.Fatalf("expected the very late bucket to be evicted on the next in-window insertion")
	}
}

func TestRebuildMatchesIncrementalTotals(t *testing.T) {
	w := New(300)
	base := int64(5_000_000)
	for i := 0; i < 50; i++ {
		w.Add(base+int64(i)*1000, float64(i)/100)
	}
	before := w.Average()
	w.Rebuild()
	after := w.Average()
	// Rebuild sums buckets in map iteration order, so the last bits of the
	// total can differ from the insertion-order running sum.
	if math.Abs(before-after) > 1e-12 {
		t.Fatalf("rebuild changed average: before=%v after=%v", before, after)
	}
}
