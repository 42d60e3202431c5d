// Package statemachine implements the per-zone hysteretic state machine
// from spec §4.4: a pure function of the current state, the two window
// averages, and the triggering event's timestamp. It performs no I/O and
// must never suspend (spec §5).
package statemachine

import "github.com/dhruv-ship-it/geopulse/internal/model"

// Thresholds, fixed per spec §4.4.
const (
	TStressedUp   = 0.75
	TCriticalUp   = 0.90
	TCriticalDown = 0.80
	TStressedDown = 0.65

	CStressedMs int64 = 60_000
	CCriticalMs int64 = 20_000

	alertDedupMs int64 = 1000
)

// Timers holds the confirmation-window state that must survive across
// events for a zone. Callers own the struct and pass it by pointer so the
// machine can clear/arm it as transitions fire.
type Timers struct {
	StressedSince *int64
	CriticalSince *int64
	LastAlertTs   *int64
}

// Result is the outcome of evaluating one event against the machine.
type Result struct {
	NextState model.ZoneStateKind
	Fired     bool // NextState != previous state
	Emit      bool // Fired AND the 1s alert-dedup guard allows it
}

// Step evaluates a single event for a zone currently in `current`, given
// the current window averages and timers, and the event's own
// eventTimestamp. Timers are mutated in place exactly as spec §4.4
// describes; the return value never implies the caller should look past
// t for "now".
func Step(current model.ZoneStateKind, avg1m, avg5m float64, t int64, timers *Timers) Result {
	next := current

	switch current {
	case model.Normal:
		if avg5m >= TStressedUp {
			if timers.StressedSince == nil {
				since := t
				timers.StressedSince = &since
			}
			if t-*timers.StressedSince >= CStressedMs {
				next = model.Stressed
				timers.StressedSince = nil
			}
		} else {
			timers.StressedSince = nil
		}

	case model.Stressed:
		if avg1m >= TCriticalUp {
			if timers.CriticalSince == nil {
				since := t
				timers.CriticalSince = &since
			}
			if t-*timers.CriticalSince >= CCriticalMs {
				next = model.Critical
				timers.CriticalSince = nil
			}
		} else if avg5m <= TStressedDown {
			timers.StressedSince = nil
			timers.CriticalSince = nil
			next = model.Normal
		} else {
			timers.CriticalSince = nil
		}

	case model.Critical:
		if avg5m <= TCriticalDown {
			timers.CriticalSince = nil
			since := t
			timers.StressedSince = &since
			next = model.Stressed
		}

	default:
		next = model.Normal
	}

	fired := next != current
	res := Result{NextState: next, Fired: fired}
	if !fired {
		return res
	}

	if timers.LastAlertTs == nil || t-*timers.LastAlertTs > alertDedupMs {
		res.Emit = true
		ts := t
		timers.LastAlertTs = &ts
	}
	return res
}
