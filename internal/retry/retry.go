// Package retry implements the Transient/Permanent error taxonomy, the
// exponential-backoff retry decorator, and the quarantine sweeper
// (§4.H). The taxonomy is a first-class Go type distinction, inspected
// with errors.As, never a string-matching heuristic (§7).
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/digitalfte/fte/internal/vault"
)

// TransientError marks a failure worth retrying (network blip, rate
// limit, timeout). PermanentError marks one that never will succeed on
// retry (bad credentials, malformed payload, rejected by the remote).
type TransientError struct{ Err error }

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Transientf builds a TransientError from a format string.
func Transientf(format string, args ...any) error {
	return &TransientError{Err: fmt.Errorf(format, args...)}
}

// Permanent wraps err as a PermanentError.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Permanentf builds a PermanentError from a format string.
func Permanentf(format string, args ...any) error {
	return &PermanentError{Err: fmt.Errorf(format, args...)}
}

// IsTransient reports whether err (or anything it wraps) is a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsPermanent reports whether err (or anything it wraps) is a PermanentError.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// Options configures the retry decorator.
type Options struct {
	MaxAttempts int           // default 3
	BaseDelay   time.Duration // default 1s; delay = BaseDelay * 2^(n-1)
	MaxDelay    time.Duration // default 30s
}

// DefaultOptions returns the §4.H defaults.
func DefaultOptions() Options {
	return Options{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// Do runs fn with exponential backoff on TransientError. PermanentError
// and success both return immediately. If every attempt is exhausted,
// the last error is returned unwrapped from the retry machinery (the
// caller can still inspect it with IsTransient/IsPermanent).
func Do(ctx context.Context, opts Options, fn func() error) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) {
			return err
		}
		if attempt == opts.MaxAttempts {
			break
		}

		delay := opts.BaseDelay * time.Duration(1<<(attempt-1))
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// quarantineErrorField and quarantineTimeField are the two header fields
// added to a quarantined artifact and stripped on reinstatement.
const (
	quarantineErrorField = "quarantine_error"
	quarantineTimeField  = "quarantine_time"
)

// DefaultMinAge is how long an artifact must sit in Quarantine before
// the sweeper reinstates it.
const DefaultMinAge = 300 * time.Second

// Quarantine tags an artifact with failure metadata and moves it into
// the Quarantine folder. The artifact is rewritten in place first (so
// the header carries the failure) and then moved, matching the store's
// write-then-rename discipline.
func Quarantine(store *vault.Store, h vault.Handle, header *vault.Header, body string, failErr error) (vault.Handle, error) {
	tagged := header.Clone()
	tagged.Set(quarantineErrorField, failErr.Error())
	tagged.Set(quarantineTimeField, time.Now().UTC().Format(time.RFC3339))

	if _, err := store.Write(h.Folder, h.Name, tagged, body); err != nil {
		return vault.Handle{}, fmt.Errorf("retry: tagging %s for quarantine: %w", h.Name, err)
	}
	return store.Move(h, vault.Quarantine)
}

// ProcessQuarantine scans the Quarantine folder and reinstates to
// Needs_Action any artifact whose quarantine_time is older than minAge.
// Artifacts with an unparseable or missing quarantine_time are treated
// as infinitely old and are always reinstated. Returns the count
// reinstated.
func ProcessQuarantine(store *vault.Store, minAge time.Duration) (int, error) {
	if minAge <= 0 {
		minAge = DefaultMinAge
	}
	handles, err := store.List(vault.Quarantine)
	if err != nil {
		return 0, fmt.Errorf("retry: listing quarantine: %w", err)
	}

	reinstated := 0
	now := time.Now().UTC()
	for _, h := range handles {
		header, body, err := store.Read(h)
		if err != nil {
			continue
		}

		old := true
		if raw, ok := header.Get(quarantineTimeField); ok {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				old = now.Sub(t) >= minAge
			}
		}
		if !old {
			continue
		}

		stripped := header.Clone()
		stripped.Del(quarantineErrorField)
		stripped.Del(quarantineTimeField)
		if _, err := store.Write(h.Folder, h.Name, stripped, body); err != nil {
			continue
		}
		if _, err := store.Move(h, vault.NeedsAction); err != nil {
			continue
		}
		reinstated++
	}
	return reinstated, nil
}
