package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/jinerr"
)

var (
	logLayer string
	logCount int
)

func init() {
	logCmd := NewWorkspaceCommand("log", "Show a layer's commit history", runLog)
	logCmd.Flags().StringVar(&logLayer, "layer", "", "ref path under layers/ (default: layers/global)")
	logCmd.Flags().IntVar(&logCount, "count", 10, "maximum commits to show")
	rootCmd.AddCommand(logCmd)
}

func runLog(app *App, args []string) error {
	refPath := logLayer
	if refPath == "" {
		refPath = "layers/global"
	}
	commitID, ok, err := app.Refs.Read(refPath)
	if err != nil {
		return &jinerr.StoreError{Op: "read-ref", Err: err}
	}
	if !ok {
		return &jinerr.NotFoundError{Kind: "layer", Name: refPath}
	}

	shown := 0
	for commitID != "" && shown < logCount {
		commit, err := app.Store.ReadCommit(commitID)
		if err != nil {
			return &jinerr.StoreError{Op: "read-commit", Err: err}
		}
		color.Yellow("commit %s", commit.CommitID)
		fmt.Printf("Author: %s\nDate:   %s\n\n    %s\n\n", commit.Author, time.Unix(commit.Timestamp, 0).Format(time.RFC1123), commit.Message)
		shown++
		if len(commit.Parents) == 0 {
			break
		}
		commitID = commit.Parents[0]
	}
	return nil
}
