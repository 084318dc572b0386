package vcsync

import (
	"context"
	"errors"
	"testing"

	"github.com/digitalfte/fte/internal/vault"
)

var errAlways = errors.New("boom")

func TestClaimToInProgress_MovesArtifact(t *testing.T) {
	root := t.TempDir()
	store := vault.New(root)
	h := vault.NewHeader()
	handle, err := store.Write(vault.NeedsAction, "task.md", h, "body")
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	claimed, err := ClaimToInProgress(store, handle, "alice")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !store.Exists(claimed.Folder, "task.md") {
		t.Fatalf("expected artifact under %s", claimed.Folder)
	}
	if store.Exists(vault.NeedsAction, "task.md") {
		t.Fatalf("artifact should have left Needs_Action")
	}
}

func TestClaimToInProgress_FailsIfAnyAgentAlreadyClaimed(t *testing.T) {
	root := t.TempDir()
	store := vault.New(root)
	h := vault.NewHeader()

	handle, err := store.Write(vault.NeedsAction, "task.md", h, "body")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ClaimToInProgress(store, handle, "alice"); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	handle2, err := store.Write(vault.NeedsAction, "task.md", h, "body again")
	if err != nil {
		t.Fatalf("write second copy: %v", err)
	}
	if _, err := ClaimToInProgress(store, handle2, "bob"); err == nil {
		t.Fatalf("expected second claim by a different agent to fail")
	}
}

func TestGit_InitAndStatusOnNonRepo(t *testing.T) {
	root := t.TempDir()
	g := New(root)
	if g.IsGitRepo(context.Background()) {
		t.Fatalf("expected fresh temp dir to not be a git repo yet")
	}
	if err := g.InitSync(context.Background()); err != nil {
		t.Skipf("git binary unavailable in this environment: %v", err)
	}
	if !g.IsGitRepo(context.Background()) {
		t.Fatalf("expected repo to be initialized")
	}
}

func TestGit_PushWithoutRemoteDoesNotError(t *testing.T) {
	root := t.TempDir()
	g := New(root)
	if err := g.InitSync(context.Background()); err != nil {
		t.Skipf("git binary unavailable: %v", err)
	}
	if err := g.Push(context.Background(), "snapshot"); err != nil {
		t.Fatalf("push without remote should be a no-op, got: %v", err)
	}
}

func TestWriteUpdateAndDrain(t *testing.T) {
	root := t.TempDir()
	store := vault.New(root)

	if err := WriteUpdate(store, "001.json", Update{Kind: "plan_created", Source: "email-1.md", Detail: "drafted"}); err != nil {
		t.Fatalf("write update: %v", err)
	}
	if err := WriteUpdate(store, "002.json", Update{Kind: "plan_created", Source: "email-2.md", Detail: "drafted"}); err != nil {
		t.Fatalf("write update 2: %v", err)
	}

	var applied []Update
	n, err := DrainUpdates(store, func(u Update) error {
		applied = append(applied, u)
		return nil
	})
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 applied, got %d", n)
	}
	if applied[0].Source != "email-1.md" || applied[1].Source != "email-2.md" {
		t.Fatalf("unexpected order: %+v", applied)
	}

	remaining, err := store.List(vault.Updates)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected updates drained, got %d remaining", len(remaining))
	}
}

func TestDrainUpdates_StopsOnApplyError(t *testing.T) {
	root := t.TempDir()
	store := vault.New(root)
	if err := WriteUpdate(store, "001.json", Update{Kind: "x", Source: "a"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteUpdate(store, "002.json", Update{Kind: "x", Source: "b"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	n, err := DrainUpdates(store, func(u Update) error {
		if u.Source == "a" {
			return errAlways
		}
		return nil
	})
	if err == nil {
		t.Fatalf("expected error to propagate")
	}
	if n != 0 {
		t.Fatalf("expected 0 applied before the failing update, got %d", n)
	}
	remaining, _ := store.List(vault.Updates)
	if len(remaining) != 2 {
		t.Fatalf("expected both updates left in place after failure, got %d", len(remaining))
	}
}
