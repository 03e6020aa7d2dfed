package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/layer"
)

var (
	addGlobal  bool
	addLocal   bool
	addMode    bool
	addScope   string
	addProject bool
)

func init() {
	addCmd := NewCommand("add <paths...>", "Stage files into the routed layer", runAdd, 1)
	addCmd.Flags().BoolVar(&addGlobal, "global", false, "stage into the global-base layer")
	addCmd.Flags().BoolVar(&addLocal, "local", false, "stage into the user-local layer")
	addCmd.Flags().BoolVar(&addMode, "mode", false, "stage into the active mode's layer")
	addCmd.Flags().StringVar(&addScope, "scope", "", "stage into the named scope layer")
	addCmd.Flags().BoolVar(&addProject, "project", false, "stage into the active project's layer")
	rootCmd.AddCommand(addCmd)
}

// routeOptionsFromFlags builds layer.RouteOptions for add/reset from the
// shared routing flag set, resolving --mode's bare flag to the active
// mode name per spec.md §4.B.
func routeOptionsFromFlags(ctx layer.Context) layer.RouteOptions {
	opts := layer.RouteOptions{Global: addGlobal, Local: addLocal, Scope: addScope, Project: addProject}
	if addMode {
		opts.Mode = ctx.Mode
	}
	return opts
}

func runAdd(app *App, args []string) error {
	target, err := layer.Route(routeOptionsFromFlags(app.Context), app.Context)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, p := range args {
		full := filepath.Join(app.Workspace.Root, filepath.FromSlash(p))
		content, err := os.ReadFile(full)
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", p, err)
		}
		rel, err := filepath.Rel(app.Workspace.Root, full)
		if err != nil {
			rel = p
		}
		if err := app.Index.Add(filepath.ToSlash(rel), target, content, now); err != nil {
			return err
		}
	}
	if err := app.Index.Persist(); err != nil {
		return err
	}

	refPath, _ := target.RefPath()
	color.Green("staged %d file(s) into %s", len(args), refPath)
	return nil
}
