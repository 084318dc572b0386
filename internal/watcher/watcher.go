// Package watcher defines the common contract shared by the mail and
// file watchers (§4.D): run_once, catching per-item errors so one bad
// detection never aborts the rest of the batch.
package watcher

import "context"

// Watcher is the capability the scheduler drives each cycle.
type Watcher interface {
	// RunOnce polls for new detections, materializes each into
	// Needs_Action, and returns the count successfully materialized.
	RunOnce(ctx context.Context) (int, error)
}
