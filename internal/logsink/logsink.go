// Package logsink implements the append-only, day-partitioned audit log
// (§4.B). Every state change the orchestrator makes is recorded here; it
// is the system's audit trail, not its operator-facing console output
// (that's internal/ux).
package logsink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/digitalfte/fte/internal/vault"
)

// Entry is one audit record.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Source    string    `json:"source"`
	Result    string    `json:"result"`
}

// Sink appends structured entries to Logs/<yyyy-mm-dd>.json. Writes are
// serialized with a filesystem lock (gofrs/flock) so the "single writer
// per zone" invariant holds even if two goroutines race for the same day
// file within a process (e.g. the scheduler cycle and the HTTP server).
type Sink struct {
	root string
}

// New returns a log sink rooted at vaultRoot.
func New(vaultRoot string) *Sink {
	return &Sink{root: vaultRoot}
}

func (s *Sink) pathFor(day time.Time) string {
	return filepath.Join(s.root, vault.Logs, day.UTC().Format("2006-01-02")+".json")
}

// Append adds one entry to today's (UTC) log file, read-modify-write
// under an exclusive lock.
func (s *Sink) Append(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	path := s.pathFor(entry.Timestamp)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("logsink: creating logs dir: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("logsink: locking %s: %w", path, err)
	}
	defer lock.Unlock()

	entries, err := readEntries(path)
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("logsink: parsing %s: %w", path, err)
	}
	return entries, nil
}

// Entries returns every entry recorded on or after since, across all
// daily files, oldest first. The calendar date is parsed from the
// filename, not from file contents, matching the source's day-file
// partitioning scheme.
func (s *Sink) Entries(since time.Time) ([]Entry, error) {
	dir := filepath.Join(s.root, vault.Logs)
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") || strings.HasPrefix(f.Name(), ".") {
			continue
		}
		day := strings.TrimSuffix(f.Name(), ".json")
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		if t.Before(since.Truncate(24 * time.Hour)) {
			continue
		}
		names = append(names, f.Name())
	}
	sort.Strings(names)

	var out []Entry
	for _, name := range names {
		entries, err := readEntries(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Timestamp.Before(since) {
				continue
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// Recent returns the n most recent entries across all daily files,
// newest first (used by the dashboard's activity feed).
func (s *Sink) Recent(n int) ([]Entry, error) {
	all, err := s.Entries(time.Time{})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}
