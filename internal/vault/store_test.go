package vault

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestStore_WriteReadMoveDelete(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	h := NewHeader()
	h.Set("type", "email")
	handle, err := s.Write(NeedsAction, "email-1.md", h, "body text")
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	gotHeader, gotBody, err := s.Read(handle)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if gotBody != "body text" {
		t.Fatalf("body = %q", gotBody)
	}
	if v, _ := gotHeader.Get("type"); v != "email" {
		t.Fatalf("type = %q", v)
	}

	moved, err := s.Move(handle, PendingApproval)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Folder != PendingApproval || moved.Name != "email-1.md" {
		t.Fatalf("moved handle wrong: %+v", moved)
	}
	if s.Exists(NeedsAction, "email-1.md") {
		t.Fatalf("artifact still present in source folder")
	}
	if !s.Exists(PendingApproval, "email-1.md") {
		t.Fatalf("artifact missing from dest folder")
	}

	if err := s.Delete(moved); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Exists(PendingApproval, "email-1.md") {
		t.Fatalf("artifact not deleted")
	}
}

func TestStore_MoveFailsIfDestExists(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	h := NewHeader()
	a, _ := s.Write(NeedsAction, "x.md", h, "a")
	_, _ = s.Write(PendingApproval, "x.md", h, "b")

	if _, err := s.Move(a, PendingApproval); err == nil {
		t.Fatalf("expected move to fail when destination exists")
	}
	// original must remain untouched
	if !s.Exists(NeedsAction, "x.md") {
		t.Fatalf("source artifact should remain after failed move")
	}
}

func TestStore_ListOrderedByName(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	h := NewHeader()
	for _, name := range []string{"c.md", "a.md", "b.md"} {
		if _, err := s.Write(NeedsAction, name, h, ""); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	handles, err := s.List(NeedsAction)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(handles) != 3 {
		t.Fatalf("expected 3, got %d", len(handles))
	}
	want := []string{"a.md", "b.md", "c.md"}
	for i, w := range want {
		if handles[i].Name != w {
			t.Fatalf("handles[%d] = %s, want %s", i, handles[i].Name, w)
		}
	}
}

func TestStore_ListRecursive(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	h := NewHeader()
	if _, err := s.Write(filepath.Join(InProgress, "alice"), "x.md", h, ""); err != nil {
		t.Fatalf("write: %v", err)
	}
	handles, err := s.ListRecursive(InProgress)
	if err != nil {
		t.Fatalf("list recursive: %v", err)
	}
	if len(handles) != 1 || handles[0].Name != "x.md" {
		t.Fatalf("unexpected handles: %+v", handles)
	}
}

func TestStore_ListMissingFolder(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	handles, err := s.List("Nonexistent")
	if err != nil {
		t.Fatalf("list missing folder should not error: %v", err)
	}
	if handles != nil {
		t.Fatalf("expected nil handles, got %v", handles)
	}
}

func TestStore_AppendMemoryCreatesThenAppends(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	if err := s.AppendMemory("- 2026-01-01T00:00:00Z: first lesson"); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if err := s.AppendMemory("- 2026-01-02T00:00:00Z: second lesson"); err != nil {
		t.Fatalf("append 2: %v", err)
	}

	memory, err := s.ReadMemory()
	if err != nil {
		t.Fatalf("read memory: %v", err)
	}
	if !strings.Contains(memory, "first lesson") || !strings.Contains(memory, "second lesson") {
		t.Fatalf("memory missing appended lines: %q", memory)
	}
}

func TestStore_ReadHandbookMissingIsEmpty(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	text, err := s.ReadHandbook()
	if err != nil {
		t.Fatalf("read handbook: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty handbook before seeding, got %q", text)
	}
}

func TestEnsureLayout_Idempotent(t *testing.T) {
	root := t.TempDir()
	if err := EnsureLayout(root); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := EnsureLayout(root); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	s := New(root)
	for _, f := range canonicalFolders {
		if _, err := s.List(f); err != nil {
			t.Fatalf("folder %s not created: %v", f, err)
		}
	}
	if !s.Exists(".", HandbookFile) {
		t.Fatalf("handbook not seeded")
	}
}
