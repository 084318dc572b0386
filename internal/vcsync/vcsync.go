// Package vcsync implements the two sync-layer concerns (§4.J):
// claim-by-move coordination for multi-agent drafting, and a
// version-control-shaped cross-zone transport for replicating the
// store between Cloud and Local.
package vcsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/digitalfte/fte/internal/vault"
)

// ClaimToInProgress moves a Needs_Action artifact under
// In_Progress/<agent>/, failing if any agent sub-folder already contains
// an artifact with that name (§4.J.a).
func ClaimToInProgress(store *vault.Store, h vault.Handle, agent string) (vault.Handle, error) {
	existing, err := store.ListRecursive(vault.InProgress)
	if err != nil {
		return vault.Handle{}, fmt.Errorf("vcsync: scanning in-progress: %w", err)
	}
	for _, e := range existing {
		if e.Name == h.Name {
			return vault.Handle{}, fmt.Errorf("vcsync: %s is already claimed under %s", h.Name, e.Folder)
		}
	}
	dest := filepath.Join(vault.InProgress, agent)
	return store.Move(h, dest)
}

// Git wraps the cross-zone transport: a version-control-like tool
// supporting init, add -A, commit -m, pull --rebase, push (§4.J.b). No
// merge-conflict resolution is implemented; conflicts surface as errors.
type Git struct {
	Dir string
}

// New returns a Git transport rooted at dir (the vault's path).
func New(dir string) *Git {
	return &Git{Dir: dir}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// IsGitRepo reports whether Dir is already under version control.
func (g *Git) IsGitRepo(ctx context.Context) bool {
	_, err := g.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// InitSync initializes version control over the vault if not already present.
func (g *Git) InitSync(ctx context.Context) error {
	if g.IsGitRepo(ctx) {
		return nil
	}
	if _, err := g.run(ctx, "init"); err != nil {
		return fmt.Errorf("vcsync: init: %w", err)
	}
	return nil
}

// Status returns the porcelain status output.
func (g *Git) Status(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return "", fmt.Errorf("vcsync: status: %w", err)
	}
	return out, nil
}

// hasRemote reports whether an "origin" remote is configured.
func (g *Git) hasRemote(ctx context.Context) bool {
	out, err := g.run(ctx, "remote")
	if err != nil {
		return false
	}
	return strings.Contains(out, "origin")
}

// Push stages everything, commits with msg (skipping the commit if
// there is nothing staged), and pushes only if a remote is configured.
func (g *Git) Push(ctx context.Context, msg string) error {
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("vcsync: add: %w", err)
	}

	status, err := g.Status(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(status) != "" {
		if _, err := g.run(ctx, "commit", "-m", msg); err != nil {
			return fmt.Errorf("vcsync: commit: %w", err)
		}
	}

	if !g.hasRemote(ctx) {
		return nil
	}
	if _, err := g.run(ctx, "push"); err != nil {
		return fmt.Errorf("vcsync: push: %w", err)
	}
	return nil
}

// Pull rebases onto the remote, skipping entirely if no remote is
// configured.
func (g *Git) Pull(ctx context.Context) error {
	if !g.hasRemote(ctx) {
		return nil
	}
	out, err := g.run(ctx, "pull", "--rebase")
	if err != nil {
		if strings.Contains(strings.ToLower(out), "already up to date") {
			return nil
		}
		return fmt.Errorf("vcsync: pull: %w", errors.New(strings.TrimSpace(out)))
	}
	return nil
}

// Sync pulls then pushes, matching the source's sync_vault composition.
func (g *Git) Sync(ctx context.Context, msg string) error {
	if err := g.Pull(ctx); err != nil {
		return err
	}
	return g.Push(ctx, msg)
}
