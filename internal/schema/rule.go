package schema

import (
	"fmt"
	"time"
)

// RuleCategory classifies a trading rule by enforcement intent.
type RuleCategory string

const (
	CategoryEntry     RuleCategory = "entry"
	CategoryExit      RuleCategory = "exit"
	CategoryRisk      RuleCategory = "risk"
	CategoryForbidden RuleCategory = "forbidden"
)

// RuleCategories lists all valid categories in display order.
var RuleCategories = []RuleCategory{
	CategoryEntry,
	CategoryExit,
	CategoryRisk,
	CategoryForbidden,
}

// Valid reports whether the category is one of the four known values.
func (c RuleCategory) Valid() bool {
	switch c {
	case CategoryEntry, CategoryExit, CategoryRisk, CategoryForbidden:
		return true
	}
	return false
}

// Rule is a short directive tagged with an enforcement category.
// Category is immutable once created; only Content and LastModified
// change through the store's public contract.
type Rule struct {
	ID           string       `json:"id"`
	Category     RuleCategory `json:"category"`
	Content      string       `json:"content"`
	LastModified time.Time    `json:"lastModified"`
}

// Validate checks that the Rule has valid field values.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !r.Category.Valid() {
		return fmt.Errorf("invalid category %q", r.Category)
	}
	if r.Content == "" {
		return fmt.Errorf("content is required")
	}
	if r.LastModified.IsZero() {
		return fmt.Errorf("lastModified is required")
	}
	return nil
}

// SetDefaults applies default values for optional fields.
func (r *Rule) SetDefaults() {
	if r.Category == "" {
		r.Category = CategoryEntry
	}
	if r.LastModified.IsZero() {
		r.LastModified = time.Now()
	}
}

// Touch sets LastModified to the current time.
func (r *Rule) Touch() {
	r.LastModified = time.Now()
}

// ValidateRules checks every rule and that ids are unique across the
// collection.
func ValidateRules(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		if seen[rules[i].ID] {
			return fmt.Errorf("duplicate rule id %q", rules[i].ID)
		}
		seen[rules[i].ID] = true
	}
	return nil
}
