package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/staging"
	"github.com/jinconfig/jin/internal/workspace"
)

var (
	resetSoft  bool
	resetMixed bool
	resetHard  bool
	resetForce bool
)

func init() {
	resetCmd := NewWorkspaceCommand("reset", "Rewind the routed layer's most recent commit", runReset)
	resetCmd.Flags().BoolVar(&resetSoft, "soft", false, "move the layer ref back only")
	resetCmd.Flags().BoolVar(&resetMixed, "mixed", false, "move the layer ref back and unstage matching entries (default)")
	resetCmd.Flags().BoolVar(&resetHard, "hard", false, "move the layer ref back, unstage, and re-apply the workspace")
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "bypass the attachment check for --hard")
	resetCmd.Flags().BoolVar(&addGlobal, "global", false, "target the global-base layer")
	resetCmd.Flags().BoolVar(&addLocal, "local", false, "target the user-local layer")
	resetCmd.Flags().BoolVar(&addMode, "mode", false, "target the active mode's layer")
	resetCmd.Flags().StringVar(&addScope, "scope", "", "target the named scope layer")
	resetCmd.Flags().BoolVar(&addProject, "project", false, "target the active project's layer")
	rootCmd.AddCommand(resetCmd)
}

func runReset(app *App, args []string) error {
	target, err := layer.Route(routeOptionsFromFlags(app.Context), app.Context)
	if err != nil {
		return err
	}
	refPath, err := target.RefPath()
	if err != nil {
		return err
	}

	current, hasCurrent, err := app.Refs.Read(refPath)
	if err != nil {
		return &jinerr.StoreError{Op: "read-ref", Err: err}
	}
	if hasCurrent {
		commit, err := app.Store.ReadCommit(current)
		if err != nil {
			return &jinerr.StoreError{Op: "read-commit", Err: err}
		}
		var newValue string
		if len(commit.Parents) > 0 {
			newValue = commit.Parents[0]
		}
		if err := app.Refs.CompareAndSet(refPath, current, newValue); err != nil {
			return err
		}
		color.Yellow("%s rewound (was %s)", refPath, current[:12])
	} else {
		fmt.Printf("%s has no commits; nothing to rewind\n", refPath)
	}

	if resetSoft {
		return nil
	}

	// --mixed (the default when no flag is given) and --hard both unstage
	// entries routed to this layer.
	kept := make([]staging.Entry, 0, len(app.Index.List()))
	layerPath, _ := target.RefPath()
	for _, e := range app.Index.List() {
		p, _ := e.Layer.RefPath()
		if p == layerPath {
			continue
		}
		kept = append(kept, e)
	}
	app.Index.Reset(kept)
	if err := app.Index.Persist(); err != nil {
		return err
	}

	if !resetHard {
		return nil
	}

	meta, hasMeta, err := workspace.LoadMetadata(app.Workspace.MetadataPath())
	if err != nil {
		return err
	}
	if !resetForce {
		if err := workspace.ValidateAttached(app.Workspace.Root, app.Context, app.Store, app.Refs, meta, hasMeta); err != nil {
			return err
		}
	}
	result, err := workspace.Apply(app.Workspace.Root, app.Context, app.Store, app.Refs, app.Workspace.MetadataPath(), workspace.ApplyOptions{
		Force: resetForce,
		Now:   time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	color.Yellow("re-applied: %d written, %d deleted", len(result.FilesWritten), len(result.FilesDeleted))
	return nil
}
