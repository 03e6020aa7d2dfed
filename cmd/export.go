package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/merge"
)

func init() {
	rootCmd.AddCommand(NewCommand("export <paths...>", "Write the active stack's merged content for given paths to disk", runExport, 1))
}

func runExport(app *App, args []string) error {
	stack, err := layer.ActiveStack(app.Context, app.Refs)
	if err != nil {
		return err
	}
	if len(stack) == 0 {
		return &jinerr.NotInitializedError{What: "no active layers resolve for the current context"}
	}

	refPaths := make([]string, 0, len(stack))
	for _, l := range stack {
		refPath, err := l.RefPath()
		if err != nil {
			return err
		}
		refPaths = append(refPaths, refPath)
	}

	for _, path := range args {
		rel := filepath.ToSlash(path)
		var layerFiles []merge.LayerFile
		for _, refPath := range refPaths {
			content, ok := layerFileContent(app, refPath, rel)
			layerFiles = append(layerFiles, merge.LayerFile{LayerRef: refPath, Present: ok, Content: content})
		}

		result, err := merge.FoldLayers(rel, layerFiles)
		if err != nil {
			return fmt.Errorf("failed to merge %q: %w", rel, err)
		}
		if result.Deleted {
			color.Yellow("%s resolves to no content across the active stack; skipped", rel)
			continue
		}

		full := filepath.Join(app.Workspace.Root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %q: %w", rel, err)
		}
		if err := os.WriteFile(full, result.Content, 0o644); err != nil {
			return fmt.Errorf("failed to write %q: %w", rel, err)
		}
		color.Green("exported %s", rel)
	}
	return nil
}
