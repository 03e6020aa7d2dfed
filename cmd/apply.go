package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/workspace"
)

var (
	applyForce bool
)

func init() {
	applyCmd := NewWorkspaceCommand("apply", "Materialize the active layer stack onto the workspace", runApply)
	applyCmd.Flags().BoolVar(&applyForce, "force", false, "bypass the attachment check")
	rootCmd.AddCommand(applyCmd)
}

func runApply(app *App, args []string) error {
	result, err := workspace.Apply(app.Workspace.Root, app.Context, app.Store, app.Refs, app.Workspace.MetadataPath(), workspace.ApplyOptions{
		Force: applyForce,
		Now:   time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	for _, f := range result.FilesWritten {
		fmt.Printf("  %s %s\n", color.GreenString("write"), f)
	}
	for _, f := range result.FilesDeleted {
		fmt.Printf("  %s %s\n", color.RedString("delete"), f)
	}
	for _, f := range result.ConflictedFiles {
		color.Yellow("  conflict %s (see %s.jinmerge)", f, f)
	}
	return nil
}
