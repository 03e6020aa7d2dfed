package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/commitpipeline"
)

var (
	commitMessage string
	commitDryRun  bool
)

func init() {
	commitCmd := NewWorkspaceCommand("commit", "Turn staged entries into new layer commits", runCommit)
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message")
	commitCmd.Flags().BoolVar(&commitDryRun, "dry-run", false, "show what would be committed without writing anything")
	rootCmd.AddCommand(commitCmd)
}

func runCommit(app *App, args []string) error {
	if commitDryRun {
		entries := app.Index.List()
		if len(entries) == 0 {
			fmt.Println("nothing staged")
			return nil
		}
		for _, e := range entries {
			refPath, _ := e.Layer.RefPath()
			fmt.Printf("would commit %s -> %s\n", e.Path, refPath)
		}
		return nil
	}

	result, err := commitpipeline.Run(app.Store, app.Refs, app.Index, commitpipeline.Options{
		Message: commitMessage,
		Author:  app.author(),
		Now:     time.Now().Unix(),
		Context: app.Context,
	})
	if err != nil {
		return err
	}
	for refPath, commitID := range result.LayerCommits {
		color.Green("%s -> %s", refPath, commitID[:12])
	}
	return nil
}
