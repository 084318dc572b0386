package mailwatcher

import (
	"context"
	"testing"

	"github.com/digitalfte/fte/internal/priority"
	"github.com/digitalfte/fte/internal/vault"
)

type fakeProvider struct {
	messages  []Message
	tagged    []string
	searchErr error
}

func (f *fakeProvider) Search(ctx context.Context, query string) ([]Message, error) {
	return f.messages, f.searchErr
}

func (f *fakeProvider) MarkProcessed(ctx context.Context, id string) error {
	f.tagged = append(f.tagged, id)
	return nil
}

func TestRunOnce_MaterializesNewMessages(t *testing.T) {
	root := t.TempDir()
	store := vault.New(root)
	provider := &fakeProvider{messages: []Message{
		{ID: "1", From: "a@b.com", Subject: "Hi", Body: "hello"},
		{ID: "2", From: "c@d.com", Subject: "Urgent: please review ASAP", Body: "help"},
	}}
	w := New(provider, store, priority.New(nil), "is:unread")

	n, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 materialized, got %d", n)
	}

	handles, err := store.List(vault.NeedsAction)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(handles) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(handles))
	}
	if len(provider.tagged) != 2 {
		t.Fatalf("expected both messages tagged processed, got %d", len(provider.tagged))
	}
}

func TestRunOnce_SkipsAlreadySeenWithinProcess(t *testing.T) {
	root := t.TempDir()
	store := vault.New(root)
	provider := &fakeProvider{messages: []Message{{ID: "1", From: "a@b.com", Subject: "Hi", Body: "hello"}}}
	w := New(provider, store, priority.New(nil), "q")

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	n, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 new on second poll, got %d", n)
	}
}

func TestRunOnce_AssignsPriority(t *testing.T) {
	root := t.TempDir()
	store := vault.New(root)
	provider := &fakeProvider{messages: []Message{{ID: "1", From: "vip@example.com", Subject: "chat", Body: "x"}}}
	w := New(provider, store, priority.New([]string{"vip@example.com"}), "q")

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	handles, _ := store.List(vault.NeedsAction)
	header, _, err := store.Read(handles[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v, _ := header.Get("priority"); v != "high" {
		t.Fatalf("priority = %q, want high", v)
	}
}
