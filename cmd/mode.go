package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/objstore"
	"github.com/jinconfig/jin/internal/pctx"
	"github.com/jinconfig/jin/internal/workspace"
)

func init() {
	modeCmd := &cobra.Command{Use: "mode", Short: "Manage modes"}
	modeCmd.AddCommand(
		NewCommand("create <name>", "Create a new mode layer", runModeCreate, 1),
		NewCommand("use <name>", "Switch the active mode", runModeUse, 1),
		NewWorkspaceCommand("list", "List known modes", runModeList),
		NewWorkspaceCommand("show", "Show the active mode", runModeShow),
		NewWorkspaceCommand("unset", "Clear the active mode", runModeUnset),
		NewCommand("delete <name>", "Delete a mode layer", runModeDelete, 1),
	)
	rootCmd.AddCommand(modeCmd)
}

func runModeCreate(app *App, args []string) error {
	name := args[0]
	if err := layer.ValidateName(name); err != nil {
		return err
	}
	l := layer.Layer{Kind: layer.ModeBase, Mode: name}
	refPath, _ := l.RefPath()
	if _, ok, _ := app.Refs.Read(refPath); ok {
		return &jinerr.AlreadyExistsError{Kind: "mode", Name: name}
	}
	commitID, err := emptyCommit(app, refPath)
	if err != nil {
		return err
	}
	if err := app.Refs.CompareAndSet(refPath, "", commitID); err != nil {
		return err
	}
	color.Green("created mode %q", name)
	return nil
}

func runModeUse(app *App, args []string) error {
	name := args[0]
	l := layer.Layer{Kind: layer.ModeBase, Mode: name}
	refPath, _ := l.RefPath()
	if _, ok, err := app.Refs.Read(refPath); err != nil {
		return &jinerr.StoreError{Op: "read-ref", Err: err}
	} else if !ok {
		return &jinerr.NotFoundError{Kind: "mode", Name: name}
	}

	meta, hasMeta, err := workspace.LoadMetadata(app.Workspace.MetadataPath())
	if err != nil {
		return err
	}
	oldMode := app.Context.Mode
	cleared, err := workspace.ClearMetadataOnContextSwitch(app.Workspace.MetadataPath(), meta, hasMeta, oldMode, "")
	if err != nil {
		return err
	}

	newCtx := app.Context
	newCtx.Mode = name
	if err := pctx.Save(app.Workspace.ContextPath(), newCtx, time.Now().Unix()); err != nil {
		return err
	}
	if cleared {
		fmt.Println("workspace metadata cleared; run 'jin apply' to materialize the new mode")
	}
	color.Green("active mode: %s", name)
	return nil
}

func runModeList(app *App, args []string) error {
	refs, err := app.Refs.ListRefs("layers/mode/")
	if err != nil {
		return err
	}
	for _, r := range refs {
		// Base mode refs are exactly "layers/mode/<name>"; deeper paths are
		// mode-scope/mode-project/mode-scope-project composites.
		rest := strings.TrimPrefix(r.Path, "layers/mode/")
		if strings.Contains(rest, "/") {
			continue
		}
		marker := " "
		if rest == app.Context.Mode {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, rest)
	}
	return nil
}

func runModeShow(app *App, args []string) error {
	fmt.Println(display(app.Context.Mode))
	return nil
}

func runModeUnset(app *App, args []string) error {
	meta, hasMeta, err := workspace.LoadMetadata(app.Workspace.MetadataPath())
	if err != nil {
		return err
	}
	oldMode := app.Context.Mode
	cleared, err := workspace.ClearMetadataOnContextSwitch(app.Workspace.MetadataPath(), meta, hasMeta, oldMode, "")
	if err != nil {
		return err
	}
	newCtx := app.Context
	newCtx.Mode = ""
	if err := pctx.Save(app.Workspace.ContextPath(), newCtx, time.Now().Unix()); err != nil {
		return err
	}
	if cleared {
		fmt.Println("workspace metadata cleared; run 'jin apply' to materialize")
	}
	return nil
}

func runModeDelete(app *App, args []string) error {
	name := args[0]
	if name == app.Context.Mode {
		return &jinerr.ValidationError{Rule: "delete-active-mode", Input: name}
	}
	l := layer.Layer{Kind: layer.ModeBase, Mode: name}
	refPath, _ := l.RefPath()
	current, ok, err := app.Refs.Read(refPath)
	if err != nil {
		return &jinerr.StoreError{Op: "read-ref", Err: err}
	}
	if !ok {
		return &jinerr.NotFoundError{Kind: "mode", Name: name}
	}
	if err := app.Refs.CompareAndSet(refPath, current, ""); err != nil {
		return err
	}
	color.Yellow("deleted mode %q", name)
	return nil
}

// emptyCommit creates a commit over an empty tree, used to give a freshly
// created layer a ref to point at (ActiveStack and ValidateAttached's
// Rule 3 both require the ref to exist, not merely the name to be chosen).
func emptyCommit(app *App, refPath string) (string, error) {
	tree, err := app.Store.BuildTree(nil)
	if err != nil {
		return "", &jinerr.StoreError{Op: "build-tree", Err: err}
	}
	commitID, err := app.Store.CreateCommit(objstore.Commit{
		Tree:      tree,
		Author:    app.author(),
		Message:   fmt.Sprintf("create layer %s", refPath),
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return "", &jinerr.StoreError{Op: "create-commit", Err: err}
	}
	return commitID, nil
}
