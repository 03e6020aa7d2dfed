package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/objstore"
)

var diffStaged bool

func init() {
	diffCmd := NewCommand("diff [layer1] [layer2]", "Show differences between two layers, or staged vs. committed", runDiff, 0)
	diffCmd.Flags().BoolVar(&diffStaged, "staged", false, "diff staged entries against their target layer's last commit")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(app *App, args []string) error {
	if diffStaged {
		return diffStagedEntries(app)
	}
	if len(args) != 2 {
		return &jinerr.ValidationError{Rule: "diff-requires-two-layers-or-staged", Input: fmt.Sprint(args)}
	}
	return diffTwoLayers(app, "layers/"+args[0], "layers/"+args[1])
}

func diffStagedEntries(app *App) error {
	for _, e := range app.Index.List() {
		refPath, _ := e.Layer.RefPath()
		committed, ok := layerFileContent(app, refPath, e.Path)
		staged, err := app.Store.ReadBlob(e.BlobHash)
		if err != nil {
			// The blob may not be written yet (lazy write at commit time);
			// fall back to reporting it as wholly new against committed.
			staged = nil
		}
		if ok && string(committed) == string(staged) {
			continue
		}
		printFileDiff(e.Path, string(committed), string(staged))
	}
	return nil
}

func diffTwoLayers(app *App, refA, refB string) error {
	pathsA, err := layerTreePaths(app, refA)
	if err != nil {
		return err
	}
	pathsB, err := layerTreePaths(app, refB)
	if err != nil {
		return err
	}
	all := make(map[string]bool, len(pathsA)+len(pathsB))
	for p := range pathsA {
		all[p] = true
	}
	for p := range pathsB {
		all[p] = true
	}
	for p := range all {
		a, _ := layerFileContent(app, refA, p)
		b, _ := layerFileContent(app, refB, p)
		if string(a) == string(b) {
			continue
		}
		printFileDiff(p, string(a), string(b))
	}
	return nil
}

func layerTreePaths(app *App, refPath string) (map[string]bool, error) {
	commitID, ok, err := app.Refs.Read(refPath)
	if err != nil {
		return nil, &jinerr.StoreError{Op: "read-ref", Err: err}
	}
	if !ok {
		return map[string]bool{}, nil
	}
	commit, err := app.Store.ReadCommit(commitID)
	if err != nil {
		return nil, &jinerr.StoreError{Op: "read-commit", Err: err}
	}
	entries, err := app.Store.ReadTree(commit.Tree)
	if err != nil {
		return nil, &jinerr.StoreError{Op: "read-tree", Err: err}
	}
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Kind == objstore.KindBlob {
			out[e.Name] = true
		}
	}
	return out, nil
}

func layerFileContent(app *App, refPath, path string) ([]byte, bool) {
	commitID, ok, err := app.Refs.Read(refPath)
	if err != nil || !ok {
		return nil, false
	}
	commit, err := app.Store.ReadCommit(commitID)
	if err != nil {
		return nil, false
	}
	entry, ok, err := app.Store.TreeEntryByPath(commit.Tree, path)
	if err != nil || !ok {
		return nil, false
	}
	content, err := app.Store.ReadBlob(entry.Hash)
	if err != nil {
		return nil, false
	}
	return content, true
}

func printFileDiff(path, a, b string) {
	color.Cyan("--- %s", path)
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			color.Green("+%s", d.Text)
		case diffmatchpatch.DiffDelete:
			color.Red("-%s", d.Text)
		}
	}
}
