package checkin

import (
	"strings"
	"testing"
	"time"

	"github.com/edgeboard/edgeboard/internal/schema"
)

// TestRender_ShowsScoreAndMetrics tests that the rendered snapshot
// includes the percentage and every metric line.
func TestRender_ShowsScoreAndMetrics(t *testing.T) {
	m := schema.MentalState{
		Confidence:   schema.LevelHigh,
		Focus:        schema.LevelHigh,
		Emotional:    schema.LevelHigh,
		Energy:       schema.LevelHigh,
		LastModified: time.Now(),
	}

	out := Render(m)
	if !strings.Contains(out, "100%") {
		t.Errorf("output missing score: %q", out)
	}
	for _, metric := range schema.Metrics {
		if !strings.Contains(out, string(metric)) {
			t.Errorf("output missing metric %s: %q", metric, out)
		}
	}
}

// TestRender_LowScore tests the low end of the scale.
func TestRender_LowScore(t *testing.T) {
	m := schema.MentalState{
		Confidence:   schema.LevelLow,
		Focus:        schema.LevelLow,
		Emotional:    schema.LevelLow,
		Energy:       schema.LevelLow,
		LastModified: time.Now(),
	}

	if out := Render(m); !strings.Contains(out, "8%") {
		t.Errorf("output missing low score: %q", out)
	}
}
