package store

import (
	"fmt"
	"time"

	"github.com/edgeboard/edgeboard/internal/schema"
)

// SetupPatch carries partial field updates for a setup. Nil fields are
// left unchanged. Images are not patchable here; they go through
// AppendImages and RemoveImage so list edits stay ordered.
type SetupPatch struct {
	Name         *string
	Description  *string
	Color        *string
	BulletPoints *[]string
}

// RulePatch carries partial field updates for a rule. Category is
// immutable once created and therefore absent here.
type RulePatch struct {
	Content *string
}

// MentalPatch carries partial level updates for the mental-state
// snapshot.
type MentalPatch struct {
	Confidence *schema.Level
	Focus      *schema.Level
	Emotional  *schema.Level
	Energy     *schema.Level
}

// CreateSetup validates and appends a new setup, assigning an id when
// none is given, then persists the collection.
func (s *Store) CreateSetup(setup schema.Setup) (schema.Setup, error) {
	if setup.ID == "" {
		setup.ID = schema.NewID("setup")
	}
	setup.SetDefaults()
	setup.Touch()
	if err := setup.Validate(); err != nil {
		return schema.Setup{}, fmt.Errorf("invalid setup: %w", err)
	}

	s.mu.Lock()
	if s.findSetupLocked(setup.ID) >= 0 {
		s.mu.Unlock()
		return schema.Setup{}, fmt.Errorf("setup id %q already exists", setup.ID)
	}
	s.setups = append(s.setups, setup)
	err := s.writeRecord(KeySetups, s.setups)
	if err != nil {
		s.setups = s.setups[:len(s.setups)-1]
	}
	s.mu.Unlock()

	if err != nil {
		return schema.Setup{}, err
	}
	s.notifySetup(ActionCreated, setup.Clone())
	return setup, nil
}

// UpdateSetup merges the patch into the setup with the given id, stamps
// LastModified, and writes the entire collection back. An unknown id is
// a silent no-op: the collection is unchanged and nothing is written.
func (s *Store) UpdateSetup(id string, patch SetupPatch) error {
	s.mu.Lock()
	i := s.findSetupLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}

	prev := s.setups[i].Clone()
	setup := &s.setups[i]
	if patch.Name != nil {
		setup.Name = *patch.Name
	}
	if patch.Description != nil {
		setup.Description = *patch.Description
	}
	if patch.Color != nil {
		setup.Color = *patch.Color
	}
	if patch.BulletPoints != nil {
		setup.BulletPoints = append([]string(nil), (*patch.BulletPoints)...)
	}
	setup.Touch()

	if err := s.writeRecord(KeySetups, s.setups); err != nil {
		s.setups[i] = prev
		s.mu.Unlock()
		return err
	}
	changed := setup.Clone()
	s.mu.Unlock()

	s.notifySetup(ActionUpdated, changed)
	return nil
}

// ReplaceSetup overwrites every field of the stored setup that shares
// the given setup's id, keeping its position in the list. Unlike
// UpdateSetup it carries the image list, so imports round-trip whole
// records. Unknown ids are a silent no-op; the returned bool reports
// whether a record was replaced.
func (s *Store) ReplaceSetup(setup schema.Setup) (bool, error) {
	setup.SetDefaults()
	setup.Touch()
	if err := setup.Validate(); err != nil {
		return false, fmt.Errorf("invalid setup: %w", err)
	}
	return s.mutateSetup(setup.ID, func(dst *schema.Setup) bool {
		*dst = setup.Clone()
		return true
	})
}

// DeleteSetup removes the setup with the given id. Unknown ids are a
// silent no-op.
func (s *Store) DeleteSetup(id string) error {
	s.mu.Lock()
	i := s.findSetupLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	deleted := s.setups[i].Clone()
	prev := s.setups
	remaining := make([]schema.Setup, 0, len(prev)-1)
	remaining = append(remaining, prev[:i]...)
	remaining = append(remaining, prev[i+1:]...)
	s.setups = remaining
	if err := s.writeRecord(KeySetups, s.setups); err != nil {
		s.setups = prev
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.notifySetup(ActionDeleted, deleted)
	return nil
}

// AppendBullet appends a bullet point to the setup's ordered list.
func (s *Store) AppendBullet(id, bullet string) error {
	_, err := s.mutateSetup(id, func(setup *schema.Setup) bool {
		setup.BulletPoints = append(setup.BulletPoints, bullet)
		return true
	})
	return err
}

// RemoveBullet removes the bullet point at index. Out-of-range indexes
// are a silent no-op.
func (s *Store) RemoveBullet(id string, index int) error {
	_, err := s.mutateSetup(id, func(setup *schema.Setup) bool {
		if index < 0 || index >= len(setup.BulletPoints) {
			return false
		}
		setup.BulletPoints = append(setup.BulletPoints[:index], setup.BulletPoints[index+1:]...)
		return true
	})
	return err
}

// AppendImages appends a whole batch of encoded image strings in one
// read-modify-write, so a multi-file ingest lands atomically and in
// input order. An empty batch is a no-op. The returned bool reports
// whether the batch was persisted; it is false when the setup no
// longer exists, so callers holding the source material (the
// drop-folder daemon) know not to discard it.
func (s *Store) AppendImages(id string, encoded ...string) (bool, error) {
	if len(encoded) == 0 {
		return false, nil
	}
	return s.mutateSetup(id, func(setup *schema.Setup) bool {
		setup.Images = append(setup.Images, encoded...)
		return true
	})
}

// RemoveImage removes the encoded image at index. Out-of-range indexes
// are a silent no-op.
func (s *Store) RemoveImage(id string, index int) error {
	_, err := s.mutateSetup(id, func(setup *schema.Setup) bool {
		if index < 0 || index >= len(setup.Images) {
			return false
		}
		setup.Images = append(setup.Images[:index], setup.Images[index+1:]...)
		return true
	})
	return err
}

// mutateSetup runs fn against the setup with the given id under the
// lock. When fn reports a change the record is touched, persisted, and
// an update notification is emitted. Unknown ids and fn returning
// false are silent no-ops; the returned bool reports whether the
// mutation was applied and persisted.
func (s *Store) mutateSetup(id string, fn func(*schema.Setup) bool) (bool, error) {
	s.mu.Lock()
	i := s.findSetupLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	prev := s.setups[i].Clone()
	if !fn(&s.setups[i]) {
		s.setups[i] = prev
		s.mu.Unlock()
		return false, nil
	}
	s.setups[i].Touch()
	if err := s.writeRecord(KeySetups, s.setups); err != nil {
		s.setups[i] = prev
		s.mu.Unlock()
		return false, err
	}
	changed := s.setups[i].Clone()
	s.mu.Unlock()

	s.notifySetup(ActionUpdated, changed)
	return true, nil
}

func (s *Store) findSetupLocked(id string) int {
	for i := range s.setups {
		if s.setups[i].ID == id {
			return i
		}
	}
	return -1
}

// CreateRule validates and appends a new rule, then persists the
// collection.
func (s *Store) CreateRule(rule schema.Rule) (schema.Rule, error) {
	if rule.ID == "" {
		rule.ID = schema.NewID("rule")
	}
	rule.SetDefaults()
	rule.Touch()
	if err := rule.Validate(); err != nil {
		return schema.Rule{}, fmt.Errorf("invalid rule: %w", err)
	}

	s.mu.Lock()
	if s.findRuleLocked(rule.ID) >= 0 {
		s.mu.Unlock()
		return schema.Rule{}, fmt.Errorf("rule id %q already exists", rule.ID)
	}
	s.rules = append(s.rules, rule)
	err := s.writeRecord(KeyRules, s.rules)
	if err != nil {
		s.rules = s.rules[:len(s.rules)-1]
	}
	s.mu.Unlock()

	if err != nil {
		return schema.Rule{}, err
	}
	s.notifyRule(ActionCreated, rule)
	return rule, nil
}

// UpdateRule merges the patch into the rule with the given id and
// stamps LastModified. Unknown ids are a silent no-op.
func (s *Store) UpdateRule(id string, patch RulePatch) error {
	s.mu.Lock()
	i := s.findRuleLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}

	prev := s.rules[i]
	if patch.Content != nil {
		s.rules[i].Content = *patch.Content
	}
	s.rules[i].Touch()

	if err := s.writeRecord(KeyRules, s.rules); err != nil {
		s.rules[i] = prev
		s.mu.Unlock()
		return err
	}
	changed := s.rules[i]
	s.mu.Unlock()

	s.notifyRule(ActionUpdated, changed)
	return nil
}

// DeleteRule removes the rule with the given id. Unknown ids are a
// silent no-op.
func (s *Store) DeleteRule(id string) error {
	s.mu.Lock()
	i := s.findRuleLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	deleted := s.rules[i]
	prev := s.rules
	remaining := make([]schema.Rule, 0, len(prev)-1)
	remaining = append(remaining, prev[:i]...)
	remaining = append(remaining, prev[i+1:]...)
	s.rules = remaining
	if err := s.writeRecord(KeyRules, s.rules); err != nil {
		s.rules = prev
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.notifyRule(ActionDeleted, deleted)
	return nil
}

func (s *Store) findRuleLocked(id string) int {
	for i := range s.rules {
		if s.rules[i].ID == id {
			return i
		}
	}
	return -1
}

// UpdateMental merges the patch into the singleton mental-state record,
// stamps LastModified, and writes it back unconditionally.
func (s *Store) UpdateMental(patch MentalPatch) (schema.MentalState, error) {
	apply := func(dst *schema.Level, src *schema.Level) error {
		if src == nil {
			return nil
		}
		if !src.Valid() {
			return fmt.Errorf("invalid level %q", *src)
		}
		*dst = *src
		return nil
	}

	s.mu.Lock()
	mental := s.mental
	if err := apply(&mental.Confidence, patch.Confidence); err != nil {
		s.mu.Unlock()
		return schema.MentalState{}, err
	}
	if err := apply(&mental.Focus, patch.Focus); err != nil {
		s.mu.Unlock()
		return schema.MentalState{}, err
	}
	if err := apply(&mental.Emotional, patch.Emotional); err != nil {
		s.mu.Unlock()
		return schema.MentalState{}, err
	}
	if err := apply(&mental.Energy, patch.Energy); err != nil {
		s.mu.Unlock()
		return schema.MentalState{}, err
	}

	mental.LastModified = time.Now()
	prev := s.mental
	s.mental = mental
	if err := s.writeRecord(KeyMental, s.mental); err != nil {
		s.mental = prev
		s.mu.Unlock()
		return schema.MentalState{}, err
	}
	s.mu.Unlock()

	s.notifyMental(mental)
	return mental, nil
}

// CycleMetric advances the named metric one step around the
// low -> medium -> high -> low ring and persists the snapshot. Unknown
// metrics are a silent no-op.
func (s *Store) CycleMetric(metric schema.Metric) (schema.MentalState, error) {
	s.mu.Lock()
	if !metric.Valid() {
		mental := s.mental
		s.mu.Unlock()
		return mental, nil
	}
	prev := s.mental
	s.mental.Cycle(metric)
	mental := s.mental
	if err := s.writeRecord(KeyMental, s.mental); err != nil {
		s.mental = prev
		s.mu.Unlock()
		return schema.MentalState{}, err
	}
	s.mu.Unlock()

	s.notifyMental(mental)
	return mental, nil
}
