// Package pctx manages the per-workspace project context
// (<workspace>/.jin/context): which mode, scope, and project are
// currently active, per spec.md §3's "Project context" record.
package pctx

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jinconfig/jin/internal/layer"
	"gopkg.in/yaml.v3"
)

// fileFormat mirrors layer.Context plus the timestamp spec.md names
// last_updated; kept separate from layer.Context so the YAML tags don't
// leak into the core layer package.
type fileFormat struct {
	Mode        string `yaml:"mode,omitempty"`
	Scope       string `yaml:"scope,omitempty"`
	Project     string `yaml:"project,omitempty"`
	LastUpdated int64  `yaml:"last_updated,omitempty"`
}

// Load reads the context file at path, returning a zero-value Context if
// the file does not exist.
func Load(path string) (layer.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return layer.Context{}, nil
		}
		return layer.Context{}, fmt.Errorf("failed to read context file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return layer.Context{}, fmt.Errorf("failed to parse context file: %w", err)
	}
	return layer.Context{Mode: f.Mode, Scope: f.Scope, Project: f.Project}, nil
}

// Save persists ctx to path via temp-file-and-rename, stamping
// last_updated with now (unix seconds).
func Save(path string, ctx layer.Context, now int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create context directory: %w", err)
	}
	data, err := yaml.Marshal(fileFormat{Mode: ctx.Mode, Scope: ctx.Scope, Project: ctx.Project, LastUpdated: now})
	if err != nil {
		return fmt.Errorf("failed to encode context file: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write context file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Clear removes the context file; absence is not an error.
func Clear(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear context file: %w", err)
	}
	return nil
}
