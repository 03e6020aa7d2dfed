package cmd

import (
	"fmt"

	"github.com/jinconfig/jin/internal/jinconfig"
	"github.com/jinconfig/jin/internal/remote"
)

var pushForce bool

func init() {
	pushCmd := NewWorkspaceCommand("push", "Push local layer refs to the remote", runPush)
	pushCmd.Flags().BoolVar(&pushForce, "force", false, "push even when the remote isn't a fast-forward ancestor")
	rootCmd.AddCommand(pushCmd)
}

func runPush(app *App, args []string) error {
	client, err := remoteClient(app)
	if err != nil {
		return err
	}
	result, err := remote.Push(client, app.Store, app.Refs, jinconfig.DefaultRemoteName, app.Context, remote.PushOptions{Force: pushForce})
	if err != nil {
		return err
	}
	printRefUpdates("pushed", result.Updated)
	if len(result.Updated) == 0 {
		fmt.Println("already up to date")
	}
	return nil
}
