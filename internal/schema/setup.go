// Package schema provides the record types persisted by the edgeboard store.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Setup represents a trade pattern card: a named pattern with a
// description, supporting bullet points, and reference images.
//
// The JSON field names match the stored document shape, so documents
// written by earlier builds load unchanged.
type Setup struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// BulletPoints and Images preserve insertion/edit order.
	BulletPoints []string `json:"bulletPoints,omitempty"`

	// Images holds self-describing encoded image strings
	// (data:image/jpeg;base64,...) produced by the ingestion pipeline.
	Images []string `json:"images,omitempty"`

	// Color is a display tag for the card.
	Color string `json:"color,omitempty"`

	// LastModified is stamped on every field mutation of this record.
	LastModified time.Time `json:"lastModified"`
}

// Validate checks that the Setup has valid field values.
func (s *Setup) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Name) > 200 {
		return fmt.Errorf("name must be 200 characters or less (got %d)", len(s.Name))
	}
	if s.LastModified.IsZero() {
		return fmt.Errorf("lastModified is required")
	}
	return nil
}

// SetDefaults applies default values for optional fields.
func (s *Setup) SetDefaults() {
	if s.BulletPoints == nil {
		s.BulletPoints = []string{}
	}
	if s.Images == nil {
		s.Images = []string{}
	}
	if s.Color == "" {
		s.Color = "slate"
	}
	if s.LastModified.IsZero() {
		s.LastModified = time.Now()
	}
}

// Touch sets LastModified to the current time. Call whenever any
// field of the record is modified.
func (s *Setup) Touch() {
	s.LastModified = time.Now()
}

// Clone returns a deep copy, so callers can hand out read-only views
// without sharing the underlying slices.
func (s *Setup) Clone() Setup {
	out := *s
	out.BulletPoints = append([]string(nil), s.BulletPoints...)
	out.Images = append([]string(nil), s.Images...)
	return out
}

// Filename returns the canonical filename for this setup: {id}.json
func (s *Setup) Filename() string {
	return fmt.Sprintf("%s.json", s.ID)
}

// ValidateSetups checks every setup and the collection-level invariant
// that ids are unique.
func ValidateSetups(setups []Setup) error {
	seen := make(map[string]bool, len(setups))
	for i := range setups {
		if err := setups[i].Validate(); err != nil {
			return fmt.Errorf("setup %d: %w", i, err)
		}
		if seen[setups[i].ID] {
			return fmt.Errorf("duplicate setup id %q", setups[i].ID)
		}
		seen[setups[i].ID] = true
	}
	return nil
}

// ReadSetupFile reads and parses a setup JSON file from the given path.
func ReadSetupFile(path string) (*Setup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read setup file %s: %w", path, err)
	}

	var setup Setup
	if err := json.Unmarshal(data, &setup); err != nil {
		return nil, fmt.Errorf("failed to parse setup file %s: %w", path, err)
	}

	setup.SetDefaults()
	if err := setup.Validate(); err != nil {
		return nil, fmt.Errorf("invalid setup file %s: %w", path, err)
	}

	return &setup, nil
}

// WriteSetupFile writes a Setup to dir/{id}.json with pretty-printed
// formatting.
func WriteSetupFile(dir string, setup *Setup) error {
	if err := setup.Validate(); err != nil {
		return fmt.Errorf("cannot write invalid setup: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create setup directory: %w", err)
	}

	data, err := json.MarshalIndent(setup, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal setup %s: %w", setup.ID, err)
	}

	path := filepath.Join(dir, setup.Filename())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write setup file %s: %w", path, err)
	}

	return nil
}

// ReadAllSetupFiles reads all setup files from the given directory.
// Invalid files are skipped with a warning to stderr.
func ReadAllSetupFiles(dir string) ([]*Setup, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Setup{}, nil
		}
		return nil, fmt.Errorf("failed to read setup directory: %w", err)
	}

	var setups []*Setup
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		setup, err := ReadSetupFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping invalid setup file %s: %v\n", entry.Name(), err)
			continue
		}

		setups = append(setups, setup)
	}

	return setups, nil
}
