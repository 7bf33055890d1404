package edit

import (
	"fmt"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
)

// WriteFile replaces path with data. The write is atomic: content is
// written to a temp file in the same directory first, then renamed.
func WriteFile(fs billy.Filesystem, path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := fs.TempFile(dir, ".nixsel-edit-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("close temp: %w", err)
	}

	// Preserve original file permissions
	if info, err := fs.Stat(path); err == nil {
		if ch, ok := fs.(billy.Change); ok {
			_ = ch.Chmod(tmpName, info.Mode()) // best-effort permission sync
		}
	}

	if err := fs.Rename(tmpName, path); err != nil {
		_ = fs.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("rename temp to %s: %w", path, err)
	}
	return nil
}
