package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/jinconfig"
	"github.com/jinconfig/jin/internal/remote"
)

func init() {
	rootCmd.AddCommand(NewWorkspaceCommand("pull", "Fetch and merge remote layer refs into local layers", runPull))
}

func runPull(app *App, args []string) error {
	client, err := remoteClient(app)
	if err != nil {
		return err
	}
	result, err := remote.Pull(client, app.Store, app.Refs, jinconfig.DefaultRemoteName, app.Context, time.Now(), app.author())
	if err != nil {
		return err
	}
	printRefUpdates("fast-forwarded", result.FastForwarded)
	printRefUpdates("merged", result.Merged)
	for _, p := range result.Conflicted {
		color.Yellow("  %s merged with unresolved conflicts (run 'jin apply' then 'jin resolve %s')", p, p)
	}
	if len(result.FastForwarded) == 0 && len(result.Merged) == 0 {
		fmt.Println("already up to date")
	}
	return nil
}
