package schema

import (
	"fmt"
	"math"
	"time"
)

// Level is a self-reported value for one mental-state metric.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Valid reports whether the level is one of the three known values.
func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// Next returns the next level in the fixed low -> medium -> high -> low
// ring. There is no direct "set to X" in the check-in contract; metrics
// only advance around the ring.
func (l Level) Next() Level {
	switch l {
	case LevelLow:
		return LevelMedium
	case LevelMedium:
		return LevelHigh
	default:
		return LevelLow
	}
}

// points maps a level to its readiness contribution on a 12-point
// per-metric scale. Four metrics at high score 48/48 = 100%; four at
// low score 4/48, which rounds to 8%.
func (l Level) points() int {
	switch l {
	case LevelHigh:
		return 12
	case LevelMedium:
		return 6
	default:
		return 1
	}
}

// Metric names one of the four mental-state metrics.
type Metric string

const (
	MetricConfidence Metric = "confidence"
	MetricFocus      Metric = "focus"
	MetricEmotional  Metric = "emotional"
	MetricEnergy     Metric = "energy"
)

// Metrics lists all metrics in display order.
var Metrics = []Metric{MetricConfidence, MetricFocus, MetricEmotional, MetricEnergy}

// Valid reports whether the metric is one of the four known names.
func (m Metric) Valid() bool {
	switch m {
	case MetricConfidence, MetricFocus, MetricEmotional, MetricEnergy:
		return true
	}
	return false
}

// MentalState is the singleton four-metric self-assessment snapshot.
// Exactly one instance exists per store.
type MentalState struct {
	Confidence   Level     `json:"confidence"`
	Focus        Level     `json:"focus"`
	Emotional    Level     `json:"emotional"`
	Energy       Level     `json:"energy"`
	LastModified time.Time `json:"lastModified"`
}

// Validate checks that every metric holds a known level.
func (m *MentalState) Validate() error {
	for _, metric := range Metrics {
		if !m.Get(metric).Valid() {
			return fmt.Errorf("invalid level %q for metric %s", m.Get(metric), metric)
		}
	}
	if m.LastModified.IsZero() {
		return fmt.Errorf("lastModified is required")
	}
	return nil
}

// Get returns the level of the named metric. Unknown metrics return "".
func (m *MentalState) Get(metric Metric) Level {
	switch metric {
	case MetricConfidence:
		return m.Confidence
	case MetricFocus:
		return m.Focus
	case MetricEmotional:
		return m.Emotional
	case MetricEnergy:
		return m.Energy
	}
	return ""
}

// Set assigns the level of the named metric. Unknown metrics are
// ignored.
func (m *MentalState) Set(metric Metric, level Level) {
	switch metric {
	case MetricConfidence:
		m.Confidence = level
	case MetricFocus:
		m.Focus = level
	case MetricEmotional:
		m.Emotional = level
	case MetricEnergy:
		m.Energy = level
	}
}

// Cycle advances the named metric one step around the level ring and
// stamps LastModified.
func (m *MentalState) Cycle(metric Metric) {
	if !metric.Valid() {
		return
	}
	m.Set(metric, m.Get(metric).Next())
	m.LastModified = time.Now()
}

// Score computes the composite readiness percentage across all four
// metrics: {high,high,high,high} scores 100, {low,low,low,low} scores 8.
func (m *MentalState) Score() int {
	total := 0
	for _, metric := range Metrics {
		total += m.Get(metric).points()
	}
	return int(math.Round(float64(total) / 48.0 * 100.0))
}
