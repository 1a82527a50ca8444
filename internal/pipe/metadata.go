package pipe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"slate/internal/fileutil"
)

// readMetadata loads a sidecar record. Missing files yield the zero value;
// unreadable yaml is an error rather than silent data loss.
func readMetadata(path string) (Metadata, error) {
	var meta Metadata
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return meta, nil
		}
		return meta, fmt.Errorf("read metadata %s: %w", path, err)
	}
	if err := yaml.Unmarshal(payload, &meta); err != nil {
		return meta, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	return meta, nil
}

// writeMetadata serializes a sidecar record atomically.
func writeMetadata(path string, meta Metadata) error {
	payload, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, payload, 0o644); err != nil {
		return fmt.Errorf("write metadata %s: %w", path, err)
	}
	return nil
}
