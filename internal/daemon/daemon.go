// Package daemon provides the drop-folder ingestion daemon.
//
// The daemon watches an inbox directory; image files placed there are
// run through the ingestion pipeline, appended to the target setup's
// image list, and removed on success. Files the pipeline rejects are
// left in place and logged so the user can see what was skipped.
package daemon

import (
	"context"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/edgeboard/edgeboard/internal/images"
	"github.com/edgeboard/edgeboard/internal/store"
)

// Config holds configuration for the daemon.
type Config struct {
	// SettleDelay is how long to wait after a file event before
	// reading the file, so partially written drops are not ingested.
	SettleDelay time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SettleDelay: 200 * time.Millisecond,
		Logger:      log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon watches an inbox directory and appends dropped images to one
// setup.
type Daemon struct {
	st       *store.Store
	pipeline *images.Pipeline
	setupID  string
	inbox    string
	config   *Config

	watcher *Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon that ingests into the setup with the given id.
// The inbox directory is created if it does not exist.
func New(st *store.Store, pipeline *images.Pipeline, setupID, inbox string, config *Config) (*Daemon, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if setupID == "" {
		return nil, fmt.Errorf("setupID cannot be empty")
	}
	if inbox == "" {
		return nil, fmt.Errorf("inbox cannot be empty")
	}
	if _, ok := st.Setup(setupID); !ok {
		return nil, fmt.Errorf("setup %q not found", setupID)
	}
	if pipeline == nil {
		pipeline = images.New(images.Options{})
	}
	if config == nil {
		config = DefaultConfig()
	}

	if err := os.MkdirAll(inbox, 0755); err != nil {
		return nil, fmt.Errorf("failed to create inbox directory: %w", err)
	}

	watcher, err := NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		st:       st,
		pipeline: pipeline,
		setupID:  setupID,
		inbox:    inbox,
		config:   config,
		watcher:  watcher,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start ingests anything already sitting in the inbox, then begins
// watching for new drops. Non-blocking; use Stop to shut down.
func (d *Daemon) Start() error {
	d.config.Logger.Printf("Watching %s for setup %s", d.inbox, d.setupID)

	if err := d.ingestExisting(); err != nil {
		d.config.Logger.Printf("Initial inbox sweep failed: %v", err)
	}

	if err := d.watcher.Start(d.inbox); err != nil {
		return err
	}

	d.wg.Add(1)
	go d.run()

	return nil
}

// Stop shuts the daemon down and blocks until the event loop exits.
func (d *Daemon) Stop() error {
	d.cancel()
	err := d.watcher.Stop()
	d.wg.Wait()
	d.config.Logger.Println("Daemon stopped")
	return err
}

func (d *Daemon) run() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			if event.Op != OpCreate && event.Op != OpModify {
				continue
			}

			// Let the writer finish before reading.
			select {
			case <-time.After(d.config.SettleDelay):
			case <-d.ctx.Done():
				return
			}

			d.ingest(event.Path)

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// ingestExisting sweeps files already present in the inbox at startup.
func (d *Daemon) ingestExisting() error {
	entries, err := os.ReadDir(d.inbox)
	if err != nil {
		return fmt.Errorf("failed to read inbox: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		d.ingest(filepath.Join(d.inbox, entry.Name()))
	}
	return nil
}

// ingest runs one dropped file through the pipeline and appends the
// result. The source file is removed only when the pipeline accepted
// it; rejected files stay in place so the user can see them.
func (d *Daemon) ingest(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			d.config.Logger.Printf("Failed to read %s: %v", path, err)
		}
		return
	}

	file := images.File{
		Name:      filepath.Base(path),
		MediaType: mime.TypeByExtension(filepath.Ext(path)),
		Data:      data,
	}

	result, err := d.pipeline.Process(d.ctx, []images.File{file})
	if err != nil {
		return // context cancelled
	}

	if len(result.Skipped) > 0 {
		d.config.Logger.Printf("Skipping %s: %s", file.Name, result.Skipped[0].Reason)
		return
	}
	if len(result.Encoded) == 0 {
		return
	}

	applied, err := d.st.AppendImages(d.setupID, result.Encoded...)
	if err != nil {
		d.config.Logger.Printf("Failed to append %s: %v", file.Name, err)
		return
	}
	if !applied {
		// The target setup is gone; keep the drop so it is not lost.
		d.config.Logger.Printf("Setup %s no longer exists, leaving %s in the inbox", d.setupID, file.Name)
		return
	}

	if err := os.Remove(path); err != nil {
		d.config.Logger.Printf("Failed to remove %s after ingest: %v", path, err)
		return
	}

	d.config.Logger.Printf("Ingested %s into %s", file.Name, d.setupID)
}
