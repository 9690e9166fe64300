package schema

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewID returns an opaque, collision-resistant identifier with the
// given prefix, e.g. "setup-1a2b3c4d".
func NewID(prefix string) string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand only fails on a broken platform; fall back to a
		// timestamp so ids stay unique enough for a single-user store.
		return fmt.Sprintf("%s-%x", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(buf[:]))
}

// DefaultSetups returns the compiled-in starter setup list used on
// first run or when the stored document cannot be loaded.
func DefaultSetups() []Setup {
	now := time.Now()
	return []Setup{
		{
			ID:          "setup-breakout",
			Name:        "Opening Range Breakout",
			Description: "Break of the first 15-minute range with volume confirmation.",
			BulletPoints: []string{
				"Wait for the range to complete",
				"Volume above 20-day average on the break",
				"Stop below the range midpoint",
			},
			Images:       []string{},
			Color:        "emerald",
			LastModified: now,
		},
		{
			ID:          "setup-pullback",
			Name:        "Trend Pullback",
			Description: "First pullback to the 20 EMA in an established trend.",
			BulletPoints: []string{
				"Higher highs and higher lows on the hourly",
				"Entry on reclaim of the prior bar high",
			},
			Images:       []string{},
			Color:        "sky",
			LastModified: now,
		},
		{
			ID:           "setup-reversal",
			Name:         "Failed Breakdown Reversal",
			Description:  "Sweep of an obvious low that immediately reclaims the level.",
			BulletPoints: []string{"Only at prior day or weekly levels"},
			Images:       []string{},
			Color:        "amber",
			LastModified: now,
		},
	}
}

// DefaultRules returns the compiled-in starter rule list.
func DefaultRules() []Rule {
	now := time.Now()
	return []Rule{
		{ID: "rule-entry-plan", Category: CategoryEntry, Content: "Only enter setups written on this board.", LastModified: now},
		{ID: "rule-entry-confirm", Category: CategoryEntry, Content: "No entries in the first two minutes after the open.", LastModified: now},
		{ID: "rule-exit-target", Category: CategoryExit, Content: "Scale out half at the first target, move stop to entry.", LastModified: now},
		{ID: "rule-risk-size", Category: CategoryRisk, Content: "Risk at most 1R per trade, 3R per day.", LastModified: now},
		{ID: "rule-forbidden-revenge", Category: CategoryForbidden, Content: "No re-entry within 15 minutes of a stop-out.", LastModified: now},
	}
}

// DefaultMentalState returns the compiled-in all-medium snapshot.
func DefaultMentalState() MentalState {
	return MentalState{
		Confidence:   LevelMedium,
		Focus:        LevelMedium,
		Emotional:    LevelMedium,
		Energy:       LevelMedium,
		LastModified: time.Now(),
	}
}
