// Package model defines the wire entities the stream processor operates
// on: SampleEvent (ingress), Alert (egress), MaterializedState, and the
// ZoneStateKind values with their legal transitions. The mutable per-zone
// state itself lives in internal/dispatcher.
package model

// ZoneStateKind is the hysteretic operational state of a zone.
type ZoneStateKind string

const (
	Normal    ZoneStateKind = "NORMAL"
	Stressed  ZoneStateKind = "STRESSED"
	Critical  ZoneStateKind = "CRITICAL"
)

// SampleEvent is the per-zone load sample carried on the ingress topic.
type SampleEvent struct {
	EventID        string  `json:"eventId"`
	ZoneID         string  `json:"zoneId"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Load           float64 `json:"load"`
	EventTimestamp int64   `json:"eventTimestamp"`
	ProducedAt     int64   `json:"producedAt"`
}

// Valid reports whether the event satisfies the data-model invariants in
// spec §3. Callers must drop and count events that fail this check.
func (e SampleEvent) Valid() bool {
	if e.ZoneID == "" {
		return false
	}
	if e.Load < 0 || e.Load > 1 {
		return false
	}
	if e.EventTimestamp <= 0 {
		return false
	}
	return true
}

// Alert is the state-transition notification published on the egress
// topic and, per §6, keyed by ZoneID so per-zone order survives on the
// egress side.
type Alert struct {
	ZoneID        string        `json:"zoneId"`
	PreviousState ZoneStateKind `json:"previousState"`
	CurrentState  ZoneStateKind `json:"currentState"`
	Avg1m         float64       `json:"avg1m"`
	Avg5m         float64       `json:"avg5m"`
	Timestamp     int64         `json:"timestamp"`
}

// LegalTransitions enumerates the only (previous, current) pairs a fired
// transition may produce (§8, invariant 1).
var LegalTransitions = map[[2]ZoneStateKind]bool{
	{Normal, Stressed}:   true,
	{Stressed, Critical}: true,
	{Critical, Stressed}: true,
	{Stressed, Normal}:   true,
}

// MaterializedState is the current-state snapshot written to the
// external materialized-state store on every fired transition.
type MaterializedState struct {
	ZoneID      string        `json:"zoneId"`
	State       ZoneStateKind `json:"state"`
	Avg1m       float64       `json:"avg1m"`
	Avg5m       float64       `json:"avg5m"`
	Latitude    float64       `json:"latitude"`
	Longitude   float64       `json:"longitude"`
	LastUpdated int64         `json:"lastUpdated"`
}
