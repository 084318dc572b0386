package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Handle identifies one artifact by its folder and filename. Identity is
// the filename; Folder changes as the artifact moves through the state
// machine, but Name never does (invariant 1).
type Handle struct {
	Folder string
	Name   string
}

// Path returns the artifact's absolute path under root.
func (h Handle) Path(root string) string {
	return filepath.Join(root, h.Folder, h.Name)
}

// Store is the content-addressed state machine's filesystem backing: a
// directory tree where folder membership is the only state, and renames
// are the only coordination primitive (§4.A, §4.J).
type Store struct {
	Root string
}

// New returns a Store rooted at root. It does not touch the filesystem;
// call EnsureLayout to create the canonical folder set.
func New(root string) *Store {
	return &Store{Root: root}
}

// List returns the artifacts directly inside folder, ordered by filename.
// Sub-directories are skipped; use ListRecursive to include them.
func (s *Store) List(folder string) ([]Handle, error) {
	dir := filepath.Join(s.Root, folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Handle
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isHidden(e.Name()) {
			continue
		}
		out = append(out, Handle{Folder: folder, Name: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListRecursive returns every artifact under folder, including those in
// sub-folders (e.g. In_Progress/<agent>/), ordered by full relative path.
func (s *Store) ListRecursive(folder string) ([]Handle, error) {
	root := filepath.Join(s.Root, folder)
	var out []Handle
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || isHidden(info.Name()) {
			return nil
		}
		rel, err := filepath.Rel(s.Root, filepath.Dir(path))
		if err != nil {
			return err
		}
		out = append(out, Handle{Folder: rel, Name: info.Name()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Folder != out[j].Folder {
			return out[i].Folder < out[j].Folder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Read loads an artifact's header and body. A missing header block is
// tolerated and yields an empty header (never an error).
func (s *Store) Read(h Handle) (*Header, string, error) {
	data, err := os.ReadFile(h.Path(s.Root))
	if err != nil {
		return nil, "", err
	}
	header, body := ParseArtifact(string(data))
	return header, body, nil
}

// Write atomically creates or overwrites an artifact under folder/name.
func (s *Store) Write(folder, name string, header *Header, body string) (Handle, error) {
	dir := filepath.Join(s.Root, folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Handle{}, fmt.Errorf("vault: creating %s: %w", folder, err)
	}
	content := RenderArtifact(header, body)
	path := filepath.Join(dir, name)
	if err := writeFileAtomic(path, []byte(content), 0644); err != nil {
		return Handle{}, fmt.Errorf("vault: writing %s/%s: %w", folder, name, err)
	}
	return Handle{Folder: folder, Name: name}, nil
}

// Move atomically renames an artifact into destFolder, preserving its
// name. It fails if an artifact with the same name already exists there —
// the store never silently overwrites on a claim.
func (s *Store) Move(h Handle, destFolder string) (Handle, error) {
	destDir := filepath.Join(s.Root, destFolder)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return Handle{}, fmt.Errorf("vault: creating %s: %w", destFolder, err)
	}
	dest := Handle{Folder: destFolder, Name: h.Name}
	destPath := dest.Path(s.Root)
	if _, err := os.Stat(destPath); err == nil {
		return Handle{}, fmt.Errorf("vault: move %s/%s -> %s: destination exists", h.Folder, h.Name, destFolder)
	}
	if err := os.Rename(h.Path(s.Root), destPath); err != nil {
		return Handle{}, fmt.Errorf("vault: move %s/%s -> %s: %w", h.Folder, h.Name, destFolder, err)
	}
	return dest, nil
}

// Delete removes an artifact outright (used when an action is consumed
// into a plan; the plan is the artifact's continuation, not a duplicate).
func (s *Store) Delete(h Handle) error {
	return os.Remove(h.Path(s.Root))
}

// Exists reports whether an artifact with this name currently lives in folder.
func (s *Store) Exists(folder, name string) bool {
	_, err := os.Stat(filepath.Join(s.Root, folder, name))
	return err == nil
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
