// Package store provides the embedded SQLite persistent store for the
// edgeboard records.
//
// The store is the single source of truth for the three records: the
// setup list, the rule list, and the mental-state snapshot. Each record
// is persisted as one UTF-8 JSON document in a key/value table, and
// every mutation rewrites the full document for its key.
//
// The database runs in embedded mode with WAL enabled so the dashboard
// can read while the CLI writes.
//
// Load never fails observably on bad data: a missing or malformed
// document falls back to the compiled-in default for its key, and the
// LoadReport records which path was taken so the degradation is
// testable rather than silent.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/edgeboard/edgeboard/internal/schema"
)

// Storage keys for the three records.
const (
	KeySetups = "tradingSetups"
	KeyRules  = "tradingRules"
	KeyMental = "mentalState"
)

// Source describes where a record came from at load time.
type Source int

const (
	// SourceStored means the stored document deserialized cleanly.
	SourceStored Source = iota
	// SourceMissing means no document existed for the key.
	SourceMissing
	// SourceInvalid means the document existed but failed to
	// deserialize into the expected shape.
	SourceInvalid
)

// String returns a human-readable representation of the source.
func (s Source) String() string {
	switch s {
	case SourceStored:
		return "stored"
	case SourceMissing:
		return "missing"
	case SourceInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Default reports whether the compiled-in default was substituted.
func (s Source) Default() bool {
	return s != SourceStored
}

// LoadReport records, per key, whether the stored document or the
// compiled-in default was used.
type LoadReport struct {
	Setups Source
	Rules  Source
	Mental Source
}

// Action describes a change emitted to listeners.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Listener receives record-change notifications. Every successful
// mutation emits exactly one notification; there is no batching.
type Listener interface {
	OnSetupChange(action Action, setup schema.Setup)
	OnRuleChange(action Action, rule schema.Rule)
	OnMentalChange(state schema.MentalState)
}

// Store owns the three records and abstracts durability. Construct one
// per process with Open, call Load once at startup, and route every
// mutation through its update methods. UI surfaces receive read-only
// copies from the accessors and never hold a private copy that can
// diverge.
type Store struct {
	conn *sql.DB
	path string

	mu     sync.Mutex
	setups []schema.Setup
	rules  []schema.Rule
	mental schema.MentalState
	loaded bool

	listenersMu sync.RWMutex
	listeners   []Listener
}

// Open creates a store backed by the database at the specified path.
// The schema is created if it does not exist. The caller must Close
// the store when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Close checkpoints the WAL and closes the database connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// initSchema creates the records table. Idempotent.
func (s *Store) initSchema() error {
	ddl := `
	CREATE TABLE IF NOT EXISTS records (
		key        TEXT PRIMARY KEY,
		doc        TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.conn.Exec(ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Subscribe registers a listener for record-change notifications.
func (s *Store) Subscribe(l Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Load reads the three records into memory, substituting compiled-in
// defaults for missing or malformed documents. It returns a LoadReport
// describing which path was taken per key. Only database I/O failures
// produce an error; bad data never does.
func (s *Store) Load() (LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report LoadReport

	src, err := s.loadSetupsLocked()
	if err != nil {
		return report, err
	}
	report.Setups = src

	src, err = s.loadRulesLocked()
	if err != nil {
		return report, err
	}
	report.Rules = src

	src, err = s.loadMentalLocked()
	if err != nil {
		return report, err
	}
	report.Mental = src

	s.loaded = true
	return report, nil
}

func (s *Store) loadSetupsLocked() (Source, error) {
	doc, found, err := s.readRecord(KeySetups)
	if err != nil {
		return SourceMissing, err
	}
	if !found {
		s.setups = schema.DefaultSetups()
		return SourceMissing, nil
	}

	var setups []schema.Setup
	if err := json.Unmarshal([]byte(doc), &setups); err != nil {
		s.setups = schema.DefaultSetups()
		return SourceInvalid, nil
	}
	for i := range setups {
		setups[i].SetDefaults()
	}
	if err := schema.ValidateSetups(setups); err != nil {
		s.setups = schema.DefaultSetups()
		return SourceInvalid, nil
	}

	s.setups = setups
	return SourceStored, nil
}

func (s *Store) loadRulesLocked() (Source, error) {
	doc, found, err := s.readRecord(KeyRules)
	if err != nil {
		return SourceMissing, err
	}
	if !found {
		s.rules = schema.DefaultRules()
		return SourceMissing, nil
	}

	var rules []schema.Rule
	if err := json.Unmarshal([]byte(doc), &rules); err != nil {
		s.rules = schema.DefaultRules()
		return SourceInvalid, nil
	}
	for i := range rules {
		rules[i].SetDefaults()
	}
	if err := schema.ValidateRules(rules); err != nil {
		s.rules = schema.DefaultRules()
		return SourceInvalid, nil
	}

	s.rules = rules
	return SourceStored, nil
}

// loadMentalLocked applies the same default-on-invalid policy as the
// list records.
func (s *Store) loadMentalLocked() (Source, error) {
	doc, found, err := s.readRecord(KeyMental)
	if err != nil {
		return SourceMissing, err
	}
	if !found {
		s.mental = schema.DefaultMentalState()
		return SourceMissing, nil
	}

	var mental schema.MentalState
	if err := json.Unmarshal([]byte(doc), &mental); err != nil {
		s.mental = schema.DefaultMentalState()
		return SourceInvalid, nil
	}
	if err := mental.Validate(); err != nil {
		s.mental = schema.DefaultMentalState()
		return SourceInvalid, nil
	}

	s.mental = mental
	return SourceStored, nil
}

// readRecord reads the JSON document stored under key.
// Returns found=false when no row exists.
func (s *Store) readRecord(key string) (string, bool, error) {
	var doc string
	err := s.conn.QueryRow("SELECT doc FROM records WHERE key = ?", key).Scan(&doc)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read record %s: %w", key, err)
	}
	return doc, true, nil
}

// writeRecord serializes v and upserts it under key.
func (s *Store) writeRecord(key string, v interface{}) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", key, err)
	}

	query := `
	INSERT INTO records (key, doc, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		doc = excluded.doc,
		updated_at = excluded.updated_at
	`
	if _, err := s.conn.Exec(query, key, string(doc), time.Now().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to write record %s: %w", key, err)
	}
	return nil
}

// Setups returns a read-only copy of the setup list.
func (s *Store) Setups() []schema.Setup {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.Setup, len(s.setups))
	for i := range s.setups {
		out[i] = s.setups[i].Clone()
	}
	return out
}

// Setup returns a copy of the setup with the given id.
func (s *Store) Setup(id string) (schema.Setup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.setups {
		if s.setups[i].ID == id {
			return s.setups[i].Clone(), true
		}
	}
	return schema.Setup{}, false
}

// Rules returns a read-only copy of the rule list.
func (s *Store) Rules() []schema.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.Rule(nil), s.rules...)
}

// Mental returns a copy of the mental-state snapshot.
func (s *Store) Mental() schema.MentalState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mental
}

func (s *Store) notifySetup(action Action, setup schema.Setup) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, l := range s.listeners {
		l.OnSetupChange(action, setup)
	}
}

func (s *Store) notifyRule(action Action, rule schema.Rule) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, l := range s.listeners {
		l.OnRuleChange(action, rule)
	}
}

func (s *Store) notifyMental(state schema.MentalState) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, l := range s.listeners {
		l.OnMentalChange(state)
	}
}
