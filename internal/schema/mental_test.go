package schema

import (
	"testing"
	"time"
)

// TestLevelNext_Ring tests the fixed low -> medium -> high -> low ring.
func TestLevelNext_Ring(t *testing.T) {
	if got := LevelLow.Next(); got != LevelMedium {
		t.Errorf("low.Next() = %q, want medium", got)
	}
	if got := LevelMedium.Next(); got != LevelHigh {
		t.Errorf("medium.Next() = %q, want high", got)
	}
	if got := LevelHigh.Next(); got != LevelLow {
		t.Errorf("high.Next() = %q, want low", got)
	}
}

// TestCycle_FourTimesIsIdentity tests that cycling a metric four times
// returns it to its original value.
func TestCycle_FourTimesIsIdentity(t *testing.T) {
	m := DefaultMentalState()

	for _, metric := range Metrics {
		original := m.Get(metric)
		for i := 0; i < 4; i++ {
			m.Cycle(metric)
		}
		if got := m.Get(metric); got != original {
			t.Errorf("metric %s after 4 cycles = %q, want %q", metric, got, original)
		}
	}
}

// TestCycle_StampsLastModified tests that cycling stamps the record.
func TestCycle_StampsLastModified(t *testing.T) {
	m := DefaultMentalState()
	before := m.LastModified

	time.Sleep(10 * time.Millisecond)
	m.Cycle(MetricFocus)

	if !m.LastModified.After(before) {
		t.Errorf("LastModified not advanced: before=%v after=%v", before, m.LastModified)
	}
}

// TestCycle_UnknownMetricIsNoOp tests that an unknown metric changes
// nothing.
func TestCycle_UnknownMetricIsNoOp(t *testing.T) {
	m := DefaultMentalState()
	before := m

	m.Cycle("vibes")

	if m != before {
		t.Errorf("unknown metric mutated state: %+v != %+v", m, before)
	}
}

// TestScore_Vectors tests the readiness score against the fixed
// vectors: all-high scores 100, all-low scores 8.
func TestScore_Vectors(t *testing.T) {
	tests := []struct {
		name  string
		level Level
		want  int
	}{
		{"all high", LevelHigh, 100},
		{"all medium", LevelMedium, 50},
		{"all low", LevelLow, 8},
	}

	for _, tt := range tests {
		m := MentalState{
			Confidence:   tt.level,
			Focus:        tt.level,
			Emotional:    tt.level,
			Energy:       tt.level,
			LastModified: time.Now(),
		}
		if got := m.Score(); got != tt.want {
			t.Errorf("%s: Score() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

// TestMentalState_Validate tests level validation.
func TestMentalState_Validate(t *testing.T) {
	m := DefaultMentalState()
	if err := m.Validate(); err != nil {
		t.Errorf("default state invalid: %v", err)
	}

	m.Energy = "caffeinated"
	if err := m.Validate(); err == nil {
		t.Error("expected error for unknown level")
	}
}
