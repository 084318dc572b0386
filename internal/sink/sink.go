// Package sink implements the pluggable side-effect executors dispatched
// by a plan's action field (§4.G.2, §4.O). Each Sink only performs the
// external call; quota gating, logging, and the resulting artifact move
// are the orchestrator's responsibility.
package sink

import (
	"context"

	"github.com/digitalfte/fte/internal/vault"
)

// Sink performs one plan's side effect.
type Sink interface {
	// Kind is the plan action this sink handles ("reply", "social_post", "invoice").
	Kind() string
	// Execute performs the side effect described by plan's header and body.
	// Errors must be retry.TransientError or retry.PermanentError so the
	// orchestrator can apply the failure matrix (§4.G.5) without
	// inspecting sink-specific detail.
	Execute(ctx context.Context, plan *vault.Header, body string) error
}

// Registry looks sinks up by the plan action that triggers them.
type Registry struct {
	sinks map[string]Sink
}

// NewRegistry builds a registry from the given sinks, keyed by Kind().
func NewRegistry(sinks ...Sink) *Registry {
	r := &Registry{sinks: make(map[string]Sink, len(sinks))}
	for _, s := range sinks {
		r.sinks[s.Kind()] = s
	}
	return r
}

// Lookup returns the sink for action, or ok=false if the action is
// absent or unrecognized (both treated as "no side effect" by the
// orchestrator, §4.G.2).
func (r *Registry) Lookup(action string) (Sink, bool) {
	s, ok := r.sinks[action]
	return s, ok
}
