// Package workspace implements the applier and attachment validator:
// materializing the active layer stack into the working directory and
// the "the workspace is never source of truth" invariant (spec.md §4.G).
// Grounded on the teacher's internal/merge/merge.go (CheckoutCommit,
// updateWorkingDirectory — tree-to-disk materialization) generalized
// from a single-tree checkout to an N-layer merge per file.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Metadata is spec.md §3's "last applied" record.
type Metadata struct {
	Timestamp     int64             `json:"timestamp"`
	AppliedLayers []string          `json:"applied_layers"` // ref paths, in precedence order
	Files         map[string]string `json:"files"`           // path -> hex sha256 of the written bytes (not an object-store blob id)
}

// LoadMetadata reads metadata from path. A missing file is not an error:
// it means the workspace is fresh and empty, per spec.md §4.G.
func LoadMetadata(path string) (*Metadata, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read workspace metadata: %w", err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false, fmt.Errorf("failed to parse workspace metadata: %w", err)
	}
	return &m, true, nil
}

// SaveMetadata writes metadata via temp-file-and-rename.
func SaveMetadata(path string, m *Metadata) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workspace metadata: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write workspace metadata: %w", err)
	}
	return os.Rename(tmp, path)
}

// ClearMetadata removes the metadata file; absence is not an error. Used
// by the automatic-clear-on-context-switch behavior of spec.md §4.G.
func ClearMetadata(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear workspace metadata: %w", err)
	}
	return nil
}
