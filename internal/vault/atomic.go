package vault

import (
	"os"
	"path/filepath"
)

// writeFileAtomic writes data to a temporary file in the same directory as
// path and renames it into place, so a crash mid-write never leaves a
// truncated artifact behind.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
