package cmd

import (
	"fmt"
	"sort"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/objstore"
)

func init() {
	rootCmd.AddCommand(NewWorkspaceCommand("list", "List every file path across the active layer stack", runList))
}

func runList(app *App, args []string) error {
	stack, err := layer.ActiveStack(app.Context, app.Refs)
	if err != nil {
		return err
	}
	paths := make(map[string]bool)
	for _, l := range stack {
		refPath, err := l.RefPath()
		if err != nil {
			return err
		}
		commitID, ok, err := app.Refs.Read(refPath)
		if err != nil {
			return &jinerr.StoreError{Op: "read-ref", Err: err}
		}
		if !ok {
			continue
		}
		commit, err := app.Store.ReadCommit(commitID)
		if err != nil {
			return &jinerr.StoreError{Op: "read-commit", Err: err}
		}
		entries, err := app.Store.ReadTree(commit.Tree)
		if err != nil {
			return &jinerr.StoreError{Op: "read-tree", Err: err}
		}
		for _, e := range entries {
			if e.Kind == objstore.KindBlob {
				paths[e.Name] = true
			}
		}
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)
	for _, p := range sorted {
		fmt.Println(p)
	}
	return nil
}
