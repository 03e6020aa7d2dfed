package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jinconfig/jin/internal/jinconfig"
	"github.com/jinconfig/jin/internal/remote"
)

var linkForce bool

func init() {
	linkCmd := NewWorkspaceCommand("link <url>", "Attach a remote layer store", runLink)
	linkCmd.Args = cobra.ExactArgs(1)
	linkCmd.Flags().BoolVar(&linkForce, "force", false, "replace an existing remote")
	rootCmd.AddCommand(linkCmd)
}

func runLink(app *App, args []string) error {
	url := args[0]
	if err := remote.Link(app.Config, jinconfig.DefaultRemoteName, url, linkForce); err != nil {
		return err
	}
	fmt.Printf("Linked remote %q (%s)\n", jinconfig.DefaultRemoteName, url)
	return nil
}
