package indexcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and parses the IndexFile at path. Any error (missing
// file, malformed JSON) is treated as "empty," per §4.6 step 2 — the
// caller gets a fresh, usable IndexFile rather than an error, since a
// corrupt or absent cache is always recoverable by discarding it.
func Load(path string) *IndexFile {
	b, err := os.ReadFile(path)
	if err != nil {
		return &IndexFile{Version: SchemaVersion}
	}
	var f IndexFile
	if err := json.Unmarshal(b, &f); err != nil {
		return &IndexFile{Version: SchemaVersion}
	}
	return &f
}

// Save persists f to path via a temp-file-then-rename atomic replace,
// so a concurrent reader is never exposed to a partially written file.
// Grounded on the teacher's pkg/jobregistry.Store.Write.
func Save(path string, f *IndexFile) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index file: %w", err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

// Clear deletes the index file at path, used by --clear-cache (§4.6
// step 1). A missing file is not an error.
func Clear(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
