package cmd

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/jinctx"
)

func init() {
	rootCmd.AddCommand(NewWorkspaceCommand("status", "Show active context, staged entries, and unresolved conflicts", runStatus))
}

func runStatus(app *App, args []string) error {
	fmt.Printf("mode: %s  scope: %s  project: %s\n", display(app.Context.Mode), display(app.Context.Scope), display(app.Context.Project))

	entries := app.Index.List()
	if len(entries) == 0 {
		fmt.Println("nothing staged")
	} else {
		color.Green("staged entries:")
		for _, e := range entries {
			refPath, _ := e.Layer.RefPath()
			fmt.Printf("  %s -> %s\n", e.Path, refPath)
		}
	}

	sidecars, err := unresolvedJinmerges(app.Workspace.Root)
	if err != nil {
		return err
	}
	if len(sidecars) > 0 {
		color.Red("unresolved conflicts (run 'jin resolve <path>'):")
		for _, s := range sidecars {
			fmt.Printf("  %s\n", s)
		}
	}
	return nil
}

func display(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// unresolvedJinmerges walks the workspace for ".jinmerge" sidecars,
// skipping the internal ".jin" directory, mirroring the scan
// internal/repair performs but surfaced here for an ordinary status read.
func unresolvedJinmerges(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == jinctx.WorkspaceDirName {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(path, ".jinmerge") {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	return out, err
}
