package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/digitalfte/fte/internal/vault"
)

func TestDo_SucceedsAfterTransientRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Options{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, func() error {
		attempts++
		if attempts < 3 {
			return Transient(errors.New("network blip"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), DefaultOptions(), func() error {
		attempts++
		return Permanent(errors.New("bad credentials"))
	})
	if !IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for permanent error, got %d", attempts)
	}
}

func TestDo_ExhaustsAttemptsOnPersistentTransient(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Options{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, func() error {
		attempts++
		return Transient(errors.New("still down"))
	})
	if !IsTransient(err) {
		t.Fatalf("expected transient error after exhausting retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestQuarantineAndProcess_ReinstatesAfterMinAge(t *testing.T) {
	root := t.TempDir()
	store := vault.New(root)
	h := vault.NewHeader()
	handle, err := store.Write(vault.NeedsAction, "item.md", h, "body")
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	qh, err := Quarantine(store, handle, h, "body", errors.New("send failed repeatedly"))
	if err != nil {
		t.Fatalf("quarantine: %v", err)
	}
	if qh.Folder != vault.Quarantine {
		t.Fatalf("expected artifact in Quarantine, got %s", qh.Folder)
	}

	qHeader, _, err := store.Read(qh)
	if err != nil {
		t.Fatalf("read quarantined: %v", err)
	}
	if !qHeader.Has(quarantineErrorField) || !qHeader.Has(quarantineTimeField) {
		t.Fatalf("expected quarantine fields set")
	}

	n, err := ProcessQuarantine(store, 0)
	if err != nil {
		t.Fatalf("process quarantine: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 reinstated immediately (not yet old enough with positive minAge default applied), got %d", n)
	}

	// Backdate the quarantine time past the minimum age.
	qHeader.Set(quarantineTimeField, time.Now().UTC().Add(-10*time.Minute).Format(time.RFC3339))
	if _, err := store.Write(vault.Quarantine, "item.md", qHeader, "body"); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	n, err = ProcessQuarantine(store, DefaultMinAge)
	if err != nil {
		t.Fatalf("process quarantine: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reinstated after min age, got %d", n)
	}
	back, _, err := store.Read(vault.Handle{Folder: vault.NeedsAction, Name: "item.md"})
	if err != nil {
		t.Fatalf("read reinstated: %v", err)
	}
	if back.Has(quarantineErrorField) || back.Has(quarantineTimeField) {
		t.Fatalf("expected quarantine fields stripped on reinstatement")
	}
}

func TestProcessQuarantine_UnparseableTimeIsInfinitelyOld(t *testing.T) {
	root := t.TempDir()
	store := vault.New(root)
	h := vault.NewHeader()
	h.Set(quarantineErrorField, "boom")
	h.Set(quarantineTimeField, "not-a-timestamp")
	if _, err := store.Write(vault.Quarantine, "item.md", h, "body"); err != nil {
		t.Fatalf("write: %v", err)
	}

	n, err := ProcessQuarantine(store, DefaultMinAge)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reinstated, got %d", n)
	}
	if !store.Exists(vault.NeedsAction, "item.md") {
		t.Fatalf("expected item back in Needs_Action")
	}
	header, _, err := store.Read(vault.Handle{Folder: vault.NeedsAction, Name: "item.md"})
	if err != nil {
		t.Fatalf("read reinstated: %v", err)
	}
	if header.Has(quarantineErrorField) || header.Has(quarantineTimeField) {
		t.Fatalf("expected quarantine fields stripped")
	}
}

func TestProcessQuarantine_RecentStaysPut(t *testing.T) {
	root := t.TempDir()
	store := vault.New(root)
	h := vault.NewHeader()
	h.Set(quarantineTimeField, time.Now().UTC().Format(time.RFC3339))
	if _, err := store.Write(vault.Quarantine, "item.md", h, "body"); err != nil {
		t.Fatalf("write: %v", err)
	}

	n, err := ProcessQuarantine(store, time.Hour)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 reinstated, got %d", n)
	}
	if !store.Exists(vault.Quarantine, "item.md") {
		t.Fatalf("expected item to remain quarantined")
	}
}
