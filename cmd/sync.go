package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/jinconfig"
	"github.com/jinconfig/jin/internal/remote"
)

func init() {
	rootCmd.AddCommand(NewWorkspaceCommand("sync", "Fetch, pull, then apply in one step", runSync))
}

func runSync(app *App, args []string) error {
	client, err := remoteClient(app)
	if err != nil {
		return err
	}
	result, err := remote.Sync(client, app.Store, app.Refs, jinconfig.DefaultRemoteName, app.Context, app.Workspace.Root, app.Workspace.MetadataPath(), time.Now(), app.author())
	if err != nil {
		return err
	}
	printRefUpdates("fetched (active context)", result.Fetch.ForActiveContext)
	printRefUpdates("fetched (other)", result.Fetch.Other)
	printRefUpdates("fast-forwarded", result.Pull.FastForwarded)
	printRefUpdates("merged", result.Pull.Merged)
	for _, f := range result.Apply.FilesWritten {
		fmt.Printf("  %s %s\n", color.GreenString("write"), f)
	}
	for _, f := range result.Apply.FilesDeleted {
		fmt.Printf("  %s %s\n", color.RedString("delete"), f)
	}
	for _, f := range result.Apply.ConflictedFiles {
		color.Yellow("  conflict %s (see %s.jinmerge)", f, f)
	}
	return nil
}
