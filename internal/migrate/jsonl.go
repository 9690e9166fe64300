// Package migrate provides JSONL export and import for the edgeboard
// records.
//
// The export format is one JSON object per line, each tagged with a
// "kind" field of setup, rule, or mental. Import tolerates bad lines:
// invalid records are skipped with a warning and counted in the result.
package migrate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/edgeboard/edgeboard/internal/schema"
	"github.com/edgeboard/edgeboard/internal/store"
)

// Record kinds used in the JSONL stream.
const (
	KindSetup  = "setup"
	KindRule   = "rule"
	KindMental = "mental"
)

// Record is one line of the JSONL stream.
type Record struct {
	Kind   string              `json:"kind"`
	Setup  *schema.Setup       `json:"setup,omitempty"`
	Rule   *schema.Rule        `json:"rule,omitempty"`
	Mental *schema.MentalState `json:"mental,omitempty"`
}

// Result contains statistics about an import or export.
type Result struct {
	Setups  int
	Rules   int
	Mental  int
	Skipped []string
}

// Export writes every record in the store to w as JSONL.
func Export(st *store.Store, w io.Writer) (Result, error) {
	var res Result
	enc := json.NewEncoder(w)

	for _, setup := range st.Setups() {
		s := setup
		if err := enc.Encode(Record{Kind: KindSetup, Setup: &s}); err != nil {
			return res, fmt.Errorf("failed to encode setup %s: %w", s.ID, err)
		}
		res.Setups++
	}

	for _, rule := range st.Rules() {
		r := rule
		if err := enc.Encode(Record{Kind: KindRule, Rule: &r}); err != nil {
			return res, fmt.Errorf("failed to encode rule %s: %w", r.ID, err)
		}
		res.Rules++
	}

	mental := st.Mental()
	if err := enc.Encode(Record{Kind: KindMental, Mental: &mental}); err != nil {
		return res, fmt.Errorf("failed to encode mental state: %w", err)
	}
	res.Mental++

	return res, nil
}

// ExportFile writes the store's records to a JSONL file.
func ExportFile(st *store.Store, path string) (Result, error) {
	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	res, err := Export(st, f)
	if err != nil {
		return res, err
	}
	if err := f.Sync(); err != nil {
		return res, fmt.Errorf("failed to sync export file: %w", err)
	}
	return res, nil
}

// Read parses a JSONL stream into records. Lines that do not parse or
// do not validate are skipped and reported in the result.
func Read(r io.Reader) ([]Record, Result, error) {
	var records []Record
	var res Result

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 64<<20) // encoded images make long lines
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			res.Skipped = append(res.Skipped, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}

		if err := validate(&rec); err != nil {
			res.Skipped = append(res.Skipped, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}

		switch rec.Kind {
		case KindSetup:
			res.Setups++
		case KindRule:
			res.Rules++
		case KindMental:
			res.Mental++
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, res, fmt.Errorf("failed to read JSONL: %w", err)
	}

	return records, res, nil
}

// ReadFile parses a JSONL file into records.
func ReadFile(path string) ([]Record, Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Result{}, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

func validate(rec *Record) error {
	switch rec.Kind {
	case KindSetup:
		if rec.Setup == nil {
			return fmt.Errorf("setup record without setup payload")
		}
		rec.Setup.SetDefaults()
		return rec.Setup.Validate()
	case KindRule:
		if rec.Rule == nil {
			return fmt.Errorf("rule record without rule payload")
		}
		rec.Rule.SetDefaults()
		return rec.Rule.Validate()
	case KindMental:
		if rec.Mental == nil {
			return fmt.Errorf("mental record without mental payload")
		}
		return rec.Mental.Validate()
	default:
		return fmt.Errorf("unknown kind %q", rec.Kind)
	}
}

// Apply writes imported records into the store. With merge false the
// existing setups and rules are replaced by the imported collections;
// with merge true records are upserted by id. The mental-state record,
// being a singleton, is always replaced when present.
func Apply(st *store.Store, records []Record, merge bool) error {
	if !merge {
		for _, setup := range st.Setups() {
			if err := st.DeleteSetup(setup.ID); err != nil {
				return err
			}
		}
		for _, rule := range st.Rules() {
			if err := st.DeleteRule(rule.ID); err != nil {
				return err
			}
		}
	}

	existingSetup := make(map[string]bool)
	for _, s := range st.Setups() {
		existingSetup[s.ID] = true
	}
	existingRule := make(map[string]bool)
	for _, r := range st.Rules() {
		existingRule[r.ID] = true
	}

	for _, rec := range records {
		switch rec.Kind {
		case KindSetup:
			if existingSetup[rec.Setup.ID] {
				// Whole-record replace so the imported image list
				// survives the upsert.
				if _, err := st.ReplaceSetup(*rec.Setup); err != nil {
					return err
				}
				continue
			}
			if _, err := st.CreateSetup(*rec.Setup); err != nil {
				return err
			}
			existingSetup[rec.Setup.ID] = true

		case KindRule:
			if existingRule[rec.Rule.ID] {
				if err := st.UpdateRule(rec.Rule.ID, store.RulePatch{Content: &rec.Rule.Content}); err != nil {
					return err
				}
				continue
			}
			if _, err := st.CreateRule(*rec.Rule); err != nil {
				return err
			}
			existingRule[rec.Rule.ID] = true

		case KindMental:
			m := rec.Mental
			_, err := st.UpdateMental(store.MentalPatch{
				Confidence: &m.Confidence,
				Focus:      &m.Focus,
				Emotional:  &m.Emotional,
				Energy:     &m.Energy,
			})
			if err != nil {
				return err
			}
		}
	}

	return nil
}
