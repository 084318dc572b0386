// Package ratelimit implements per-day outbound send quotas (§4.C). Each
// sink kind (mail, social, invoice, ...) gets its own daily counter file
// so a runaway loop can't flood an external system before a human
// notices.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/digitalfte/fte/internal/vault"
)

type counterFile struct {
	Count int `json:"count"`
}

// Counter tracks per-day, per-name send counts under Logs/.count_<name>_<yyyy-mm-dd>.json.
type Counter struct {
	root string
}

// New returns a rate counter rooted at vaultRoot.
func New(vaultRoot string) *Counter {
	return &Counter{root: vaultRoot}
}

func (c *Counter) pathFor(name string, day time.Time) string {
	return filepath.Join(c.root, vault.Logs, fmt.Sprintf(".count_%s_%s.json", name, day.UTC().Format("2006-01-02")))
}

// Check returns the current count for name today, without modifying it.
func (c *Counter) Check(name string) (int, error) {
	return c.read(name, time.Now())
}

func (c *Counter) read(name string, day time.Time) (int, error) {
	data, err := os.ReadFile(c.pathFor(name, day))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	var cf counterFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return 0, fmt.Errorf("ratelimit: parsing counter for %s: %w", name, err)
	}
	return cf.Count, nil
}

// Increment bumps today's counter for name by one and returns the new
// total. The read-modify-write is locked, matching the Log Sink's
// single-writer invariant.
func (c *Counter) Increment(name string) (int, error) {
	path := c.pathFor(name, time.Now())
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("ratelimit: creating logs dir: %w", err)
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("ratelimit: locking %s: %w", path, err)
	}
	defer lock.Unlock()

	n, err := c.read(name, time.Now())
	if err != nil {
		return 0, err
	}
	n++
	data, err := json.Marshal(counterFile{Count: n})
	if err != nil {
		return 0, err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, err
	}
	return n, nil
}

// Allow reports whether one more send of name would stay within limit.
// It does not itself increment; callers check then increment after a
// successful send so failed sends don't consume quota (§4.G.2: "never
// partially send").
func (c *Counter) Allow(name string, limit int) (bool, error) {
	n, err := c.Check(name)
	if err != nil {
		return false, err
	}
	return n < limit, nil
}
