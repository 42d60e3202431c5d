// Package window implements the per-zone sliding aggregation described in
// spec §4.3: a mapping from event-time second to WindowBucket, plus the
// running totals used to answer average() in O(1).
package window

// Bucket holds the sum/count of load samples for a single event-time
// second.
type Bucket struct {
	SecondKey int64
	Sum       float64
	Count     int64
}

// SlidingWindow is a bucketed mean over the most recent SizeSeconds of
// event time, anchored on the incoming event's own second (not wall
// time) so replay is deterministic.
type SlidingWindow struct {
	sizeSeconds int64
	buckets     map[int64]*Bucket
	totalSum    float64
	totalCount  int64
}

// New builds an empty window for the given size (60 or 300 per spec).
func New(sizeSeconds int64) *SlidingWindow {
	return &SlidingWindow{
		sizeSeconds: sizeSeconds,
		buckets:     make(map[int64]*Bucket),
	}
}

// Add inserts a sample at the given event timestamp (ms since epoch),
// evicting buckets that have fallen outside the window anchored at this
// event's second first, per spec §4.3 step 2.
//
// A late event that is itself already outside the window relative to the
// highest key seen so far is still inserted into its own (possibly new)
// bucket; that bucket is evicted on the next in-window insertion. This is
// the documented, intentional late-arrival policy from spec §9 — it is
// not "corrected" here.
func (w *SlidingWindow) Add(eventTimestampMs int64, load float64) {
	k := eventTimestampMs / 1000

	for key, b := range w.buckets {
		if k-key >= w.sizeSeconds {
			w.totalSum -= b.Sum
			w.totalCount -= b.Count
			delete(w.buckets, key)
		}
	}

	b, ok := w.buckets[k]
	if !ok {
		b = &Bucket{SecondKey: k}
		w.buckets[k] = b
	}
	b.Sum += load
	b.Count++
	w.totalSum += load
	w.totalCount++
}

// Average returns totalSum/totalCount, defined as 0 for an empty window
// rather than NaN (spec §8, invariant 4).
func (w *SlidingWindow) Average() float64 {
	if w.totalCount == 0 {
		return 0
	}
	return w.totalSum / float64(w.totalCount)
}

// Count reports the number of samples currently contained in the window.
func (w *SlidingWindow) Count() int64 {
	return w.totalCount
}

// Rebuild recomputes totalSum/totalCount by summing the live buckets,
// bounding the floating-point drift that naive incremental accumulation
// can develop past ~10^8 events per zone (spec §9). It is not invoked
// automatically; callers with very long-lived, high-volume zones may
// call it periodically (e.g. from a metrics-reporting tick).
func (w *SlidingWindow) Rebuild() {
	var sum float64
	var count int64
	for _, b := range w.buckets {
		sum += b.Sum
		count += b.Count
	}
	w.totalSum = sum
	w.totalCount = count
}

// Buckets returns the live bucket set for inspection/testing. Callers
// must not mutate the returned buckets.
func (w *SlidingWindow) Buckets() map[int64]*Bucket {
	return w.buckets
}
