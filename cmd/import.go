package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
)

var importForce bool

func init() {
	importCmd := NewCommand("import <paths...>", "Adopt existing on-disk config files into the routed layer", runImport, 1)
	importCmd.Flags().BoolVar(&importForce, "force", false, "overwrite an existing staged entry for the same path")
	importCmd.Flags().BoolVar(&addGlobal, "global", false, "target the global-base layer")
	importCmd.Flags().BoolVar(&addLocal, "local", false, "target the user-local layer")
	importCmd.Flags().BoolVar(&addMode, "mode", false, "target the active mode's layer")
	importCmd.Flags().StringVar(&addScope, "scope", "", "target the named scope layer")
	importCmd.Flags().BoolVar(&addProject, "project", false, "target the active project's layer")
	rootCmd.AddCommand(importCmd)
}

func runImport(app *App, args []string) error {
	target, err := layer.Route(routeOptionsFromFlags(app.Context), app.Context)
	if err != nil {
		return err
	}
	refPath, err := target.RefPath()
	if err != nil {
		return err
	}

	existing := make(map[string]bool)
	for _, e := range app.Index.List() {
		p, _ := e.Layer.RefPath()
		if p == refPath {
			existing[e.Path] = true
		}
	}

	now := time.Now().Unix()
	for _, path := range args {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve %q: %w", path, err)
		}
		rel, err := filepath.Rel(app.Workspace.Root, abs)
		if err != nil {
			return fmt.Errorf("failed to relativize %q: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		if existing[rel] && !importForce {
			return &jinerr.AlreadyExistsError{Kind: "staged entry", Name: rel}
		}

		content, err := os.ReadFile(abs)
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", path, err)
		}
		if err := app.Index.Add(rel, target, content, now); err != nil {
			return err
		}
		color.Green("imported %s -> %s", rel, refPath)
	}
	return app.Index.Persist()
}
