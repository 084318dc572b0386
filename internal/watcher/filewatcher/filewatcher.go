// Package filewatcher implements the file watcher variant (§4.D): watch
// a drop folder with fsnotify, extract text from supported attachments,
// and materialize a Needs_Action artifact per file before moving the
// blob to a processed sub-folder.
package filewatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/digitalfte/fte/internal/vault"
)

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Extractor converts a dropped file's bytes on disk into text, per
// §4.E's extractor contract (always returns a string, never errors).
type Extractor func(path, ext string) string

// Watcher scans DropDir for supported files and materializes one
// Needs_Action artifact per new file. DryRun mode only logs detections.
type Watcher struct {
	Store     *vault.Store
	DropDir   string
	Extractor Extractor
	DryRun    bool
	Log       func(msg string)

	fsWatch *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]bool
	seen    map[string]bool
}

// New returns a file watcher rooted at dropDir (an absolute path; the
// caller typically points this at vault/Incoming_Files).
func New(store *vault.Store, dropDir string, extractor Extractor, dryRun bool) *Watcher {
	return &Watcher{
		Store:     store,
		DropDir:   dropDir,
		Extractor: extractor,
		DryRun:    dryRun,
		Log:       func(string) {},
		pending:   make(map[string]bool),
		seen:      make(map[string]bool),
	}
}

// Start begins watching DropDir for create events in the background and
// records detected names in a pending set. RunOnce does not read that
// set; it always finds files by scanning DropDir, so callers that only
// want a polling (non-event-driven) watcher can skip Start.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filewatcher: creating fsnotify watcher: %w", err)
	}
	if err := fw.Add(w.DropDir); err != nil {
		fw.Close()
		return fmt.Errorf("filewatcher: watching %s: %w", w.DropDir, err)
	}
	w.fsWatch = fw

	go func() {
		for {
			select {
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					w.mu.Lock()
					w.pending[filepath.Base(event.Name)] = true
					w.mu.Unlock()
				}
			case _, ok := <-fw.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Stop releases the fsnotify watcher, if started.
func (w *Watcher) Stop() error {
	if w.fsWatch == nil {
		return nil
	}
	return w.fsWatch.Close()
}

// RunOnce scans DropDir directly (a superset of whatever fsnotify
// accumulated, and the only path exercised when Start was never
// called), materializing every supported file not yet seen. Dry-run mode
// detects and logs but never materializes or moves the blob (§4.D).
func (w *Watcher) RunOnce(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.DropDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("filewatcher: reading %s: %w", w.DropDir, err)
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !supportedExtensions[ext] {
			continue
		}
		if w.seen[e.Name()] {
			continue
		}
		w.seen[e.Name()] = true

		if w.DryRun {
			w.Log(fmt.Sprintf("filewatcher: detected %s (dry-run, not materialized)", e.Name()))
			continue
		}

		if err := w.materialize(e.Name(), ext); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

func (w *Watcher) materialize(name, ext string) error {
	path := filepath.Join(w.DropDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("filewatcher: stat %s: %w", name, err)
	}

	text := ""
	if w.Extractor != nil {
		text = w.Extractor(path, ext)
	}
	extracted := strings.TrimSpace(text) != ""
	body := text
	if !extracted {
		body = "[no text could be extracted from this file]"
	}

	h := vault.NewHeader()
	h.Set("type", "file")
	h.Set("filename", name)
	h.Set("extension", ext)
	h.Set("size_bytes", strconv.FormatInt(info.Size(), 10))
	h.Set("extracted", strconv.FormatBool(extracted))

	if _, err := w.Store.Write(vault.NeedsAction, name+".md", h, body); err != nil {
		return fmt.Errorf("filewatcher: writing artifact for %s: %w", name, err)
	}

	processedDir := filepath.Join(w.DropDir, ".processed")
	if err := os.MkdirAll(processedDir, 0755); err != nil {
		return fmt.Errorf("filewatcher: creating processed dir: %w", err)
	}
	if err := os.Rename(path, filepath.Join(processedDir, name)); err != nil {
		return fmt.Errorf("filewatcher: moving %s to processed: %w", name, err)
	}
	return nil
}
