package sink

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/digitalfte/fte/internal/retry"
	"github.com/digitalfte/fte/internal/vault"
)

// WithBreaker wraps a Sink with a circuit breaker so a destination that
// is repeatedly failing (provider outage, revoked token) stops taking
// new attempts for a cooldown window instead of burning a retry budget
// on every cycle. Three consecutive failures trip it open; a single
// probe request after the cooldown decides whether to close again.
func WithBreaker(s Sink) Sink {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Kind(),
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &breakerSink{inner: s, cb: cb}
}

type breakerSink struct {
	inner Sink
	cb    *gobreaker.CircuitBreaker
}

func (b *breakerSink) Kind() string { return b.inner.Kind() }

// Execute routes the call through the breaker. An open breaker is
// reported as Transient (§4.G.5: quota/outage boundaries leave the
// artifact in place for the next cycle) so the orchestrator's failure
// matrix applies without modification.
func (b *breakerSink) Execute(ctx context.Context, plan *vault.Header, body string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Execute(ctx, plan, body)
	})
	if err == nil {
		return nil
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return retry.Transientf("sink: %s: circuit open: %w", b.Kind(), err)
	}
	return err
}
