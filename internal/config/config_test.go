package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/edgeboard/edgeboard/internal/images"
)

// TestLoad_Defaults tests the compiled-in defaults.
func TestLoad_Defaults(t *testing.T) {
	v := New()
	v.Set("data_dir", t.TempDir())

	cfg, err := Load(v, "")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != 8787 {
		t.Errorf("port = %d, want 8787", cfg.Port)
	}
	if cfg.Image.MaxBytes != images.DefaultMaxBytes {
		t.Errorf("image.max_bytes = %d, want default", cfg.Image.MaxBytes)
	}
	if cfg.Image.BoxWidth != images.DefaultBoxWidth || cfg.Image.BoxHeight != images.DefaultBoxHeight {
		t.Errorf("box = %dx%d, want defaults", cfg.Image.BoxWidth, cfg.Image.BoxHeight)
	}
}

// TestLoad_ConfigFile tests explicit config file parsing and precedence
// over defaults.
func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
port: 9999
image:
  quality: 60
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	v := New()
	v.Set("data_dir", dir)

	cfg, err := Load(v, path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Port)
	}
	if cfg.Image.Quality != 60 {
		t.Errorf("image.quality = %d, want 60", cfg.Image.Quality)
	}
	// Unset keys keep their defaults.
	if cfg.Image.MaxBatch != images.DefaultMaxBatch {
		t.Errorf("image.max_batch = %d, want default", cfg.Image.MaxBatch)
	}
}

// TestLoad_MissingExplicitFileIsError tests that naming a nonexistent
// file fails loudly.
func TestLoad_MissingExplicitFileIsError(t *testing.T) {
	v := New()
	v.Set("data_dir", t.TempDir())

	if _, err := Load(v, filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() with missing explicit file succeeded, want error")
	}
}

// TestLoad_DefaultLocationOptional tests that an empty data dir with no
// config file loads clean.
func TestLoad_DefaultLocationOptional(t *testing.T) {
	v := New()
	v.Set("data_dir", t.TempDir())

	if _, err := Load(v, ""); err != nil {
		t.Fatalf("Load() without config file failed: %v", err)
	}
}

// TestLoad_Environment tests the EDGEBOARD env binding.
func TestLoad_Environment(t *testing.T) {
	t.Setenv("EDGEBOARD_PORT", "7070")

	v := New()
	v.Set("data_dir", t.TempDir())

	cfg, err := Load(v, "")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("port = %d, want 7070 from environment", cfg.Port)
	}
}

// TestPaths tests the derived path helpers.
func TestPaths(t *testing.T) {
	cfg := Config{DataDir: "/data"}

	if got := cfg.DBPath(); got != filepath.Join("/data", "edgeboard.db") {
		t.Errorf("DBPath() = %q", got)
	}
	if got := cfg.InboxDir("setup-1"); got != filepath.Join("/data", "inbox", "setup-1") {
		t.Errorf("InboxDir() = %q", got)
	}
}
