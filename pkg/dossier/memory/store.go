// Package memory implements the two persistent conversation stores:
// the short-term per-channel history window and the long-term per-user
// profile store. Both are JSON documents on disk, loaded once at startup
// and written through after every mutation.
package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// loadMapping reads a JSON mapping from path. A missing file yields an
// empty mapping; an unreadable or corrupt file is logged and likewise
// yields an empty mapping. Loading never fails.
func loadMapping[V any](path string, logger *slog.Logger) map[string]V {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("reading memory file, starting empty", "path", path, "error", err)
		}
		return make(map[string]V)
	}

	parsed := make(map[string]V)
	if err := json.Unmarshal(data, &parsed); err != nil {
		logger.Error("memory file corrupt, starting empty", "path", path, "error", err)
		return make(map[string]V)
	}
	return parsed
}

// saveMapping writes v as indented JSON. The document is written to a
// temp file and renamed into place so a crash mid-write cannot clobber
// previously committed data.
func saveMapping(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding memory: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing memory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("committing memory file: %w", err)
	}
	return nil
}
