package model

import "testing"

func TestSampleEventValid(t *testing.T) {
	cases := []struct {
		name string
		ev   SampleEvent
		want bool
	}{
		{"valid", SampleEvent{ZoneID: "z1", Load: 0.5, EventTimestamp: 1000}, true},
		{"missing zone", SampleEvent{ZoneID: "", Load: 0.5, EventTimestamp: 1000}, false},
		{"negative load", SampleEvent{ZoneID: "z1", Load: -0.1, EventTimestamp: 1000}, false},
		{"load above one", SampleEvent{ZoneID: "z1", Load: 1.1, EventTimestamp: 1000}, false},
		{"zero timestamp", SampleEvent{ZoneID: "z1", Load: 0.5, EventTimestamp: 0}, false},
		{"load at boundary zero", SampleEvent{ZoneID: "z1", Load: 0, EventTimestamp: 1000}, true},
		{"load at boundary one", SampleEvent{ZoneID: "z1", Load: 1, EventTimestamp: 1000}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ev.Valid(); got != tc.want {
				t.Fatalf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLegalTransitionsOnlyContainsTheFourDocumentedPairs(t *testing.T) {
	if len(LegalTransitions) != 4 {
		t.Fatalf("expected exactly 4 legal transition pairs, got %d", len(LegalTransitions))
	}
	for pair, ok := range LegalTransitions {
		if !ok {
			t.Fatalf("unexpected false entry in LegalTransitions: %v", pair)
		}
	}
	if LegalTransitions[[2]ZoneStateKind{Normal, Critical}] {
		t.Fatalf("NORMAL->CRITICAL must not be a legal direct transition")
	}
}
