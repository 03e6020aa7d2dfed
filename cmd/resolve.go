package cmd

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/merge"
	"github.com/jinconfig/jin/internal/workspace"
)

func init() {
	rootCmd.AddCommand(NewCommand("resolve <path>", "Mark a conflicted file resolved after hand-editing it", runResolve, 1))
}

func runResolve(app *App, args []string) error {
	rel := filepath.ToSlash(args[0])
	full := filepath.Join(app.Workspace.Root, filepath.FromSlash(rel))

	content, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", rel, err)
	}
	if strings.Contains(string(content), merge.ConflictMarkerStart) ||
		strings.Contains(string(content), merge.ConflictMarkerSeparator) ||
		strings.Contains(string(content), merge.ConflictMarkerEnd) {
		return &jinerr.ValidationError{Rule: "resolve-still-has-conflict-markers", Input: rel}
	}

	sidecar := full + ".jinmerge"
	if _, err := os.Stat(sidecar); err == nil {
		if err := os.Remove(sidecar); err != nil {
			return fmt.Errorf("failed to remove %q: %w", sidecar, err)
		}
	}

	meta, hasMeta, err := workspace.LoadMetadata(app.Workspace.MetadataPath())
	if err != nil {
		return err
	}
	if hasMeta {
		sum := sha256.Sum256(content)
		meta.Files[rel] = fmt.Sprintf("%x", sum[:])
		if err := workspace.SaveMetadata(app.Workspace.MetadataPath(), meta); err != nil {
			return err
		}
	}

	color.Green("resolved %s", rel)
	return nil
}
