package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/pctx"
	"github.com/jinconfig/jin/internal/workspace"
)

func init() {
	scopeCmd := &cobra.Command{Use: "scope", Short: "Manage scopes"}
	scopeCmd.AddCommand(
		NewCommand("create <name>", "Create a new scope layer", runScopeCreate, 1),
		NewCommand("use <name>", "Switch the active scope", runScopeUse, 1),
		NewWorkspaceCommand("list", "List known scopes", runScopeList),
		NewWorkspaceCommand("show", "Show the active scope", runScopeShow),
		NewWorkspaceCommand("unset", "Clear the active scope", runScopeUnset),
		NewCommand("delete <name>", "Delete a scope layer", runScopeDelete, 1),
	)
	rootCmd.AddCommand(scopeCmd)
}

func runScopeCreate(app *App, args []string) error {
	name := args[0]
	if err := layer.ValidateName(name); err != nil {
		return err
	}
	l := layer.Layer{Kind: layer.ScopeBase, Scope: name}
	refPath, _ := l.RefPath()
	if _, ok, _ := app.Refs.Read(refPath); ok {
		return &jinerr.AlreadyExistsError{Kind: "scope", Name: name}
	}
	commitID, err := emptyCommit(app, refPath)
	if err != nil {
		return err
	}
	if err := app.Refs.CompareAndSet(refPath, "", commitID); err != nil {
		return err
	}
	color.Green("created scope %q", name)
	return nil
}

func runScopeUse(app *App, args []string) error {
	name := args[0]
	l := layer.Layer{Kind: layer.ScopeBase, Scope: name}
	refPath, _ := l.RefPath()
	if _, ok, err := app.Refs.Read(refPath); err != nil {
		return &jinerr.StoreError{Op: "read-ref", Err: err}
	} else if !ok {
		return &jinerr.NotFoundError{Kind: "scope", Name: name}
	}

	meta, hasMeta, err := workspace.LoadMetadata(app.Workspace.MetadataPath())
	if err != nil {
		return err
	}
	oldScope := app.Context.Scope
	cleared, err := workspace.ClearMetadataOnContextSwitch(app.Workspace.MetadataPath(), meta, hasMeta, "", oldScope)
	if err != nil {
		return err
	}

	newCtx := app.Context
	newCtx.Scope = name
	if err := pctx.Save(app.Workspace.ContextPath(), newCtx, time.Now().Unix()); err != nil {
		return err
	}
	if cleared {
		fmt.Println("workspace metadata cleared; run 'jin apply' to materialize the new scope")
	}
	color.Green("active scope: %s", name)
	return nil
}

func runScopeList(app *App, args []string) error {
	refs, err := app.Refs.ListRefs("layers/scope/")
	if err != nil {
		return err
	}
	for _, r := range refs {
		rest := strings.TrimPrefix(r.Path, "layers/scope/")
		if strings.Contains(rest, "/") {
			continue
		}
		marker := " "
		if rest == app.Context.Scope {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, rest)
	}
	return nil
}

func runScopeShow(app *App, args []string) error {
	fmt.Println(display(app.Context.Scope))
	return nil
}

func runScopeUnset(app *App, args []string) error {
	meta, hasMeta, err := workspace.LoadMetadata(app.Workspace.MetadataPath())
	if err != nil {
		return err
	}
	oldScope := app.Context.Scope
	cleared, err := workspace.ClearMetadataOnContextSwitch(app.Workspace.MetadataPath(), meta, hasMeta, "", oldScope)
	if err != nil {
		return err
	}
	newCtx := app.Context
	newCtx.Scope = ""
	if err := pctx.Save(app.Workspace.ContextPath(), newCtx, time.Now().Unix()); err != nil {
		return err
	}
	if cleared {
		fmt.Println("workspace metadata cleared; run 'jin apply' to materialize")
	}
	return nil
}

func runScopeDelete(app *App, args []string) error {
	name := args[0]
	if name == app.Context.Scope {
		return &jinerr.ValidationError{Rule: "delete-active-scope", Input: name}
	}
	l := layer.Layer{Kind: layer.ScopeBase, Scope: name}
	refPath, _ := l.RefPath()
	current, ok, err := app.Refs.Read(refPath)
	if err != nil {
		return &jinerr.StoreError{Op: "read-ref", Err: err}
	}
	if !ok {
		return &jinerr.NotFoundError{Kind: "scope", Name: name}
	}
	if err := app.Refs.CompareAndSet(refPath, current, ""); err != nil {
		return err
	}
	color.Yellow("deleted scope %q", name)
	return nil
}
