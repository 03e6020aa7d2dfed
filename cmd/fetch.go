package cmd

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/jinconfig"
	"github.com/jinconfig/jin/internal/remote"
)

func init() {
	rootCmd.AddCommand(NewWorkspaceCommand("fetch", "Fetch remote layer refs into local mirrors", runFetch))
}

func runFetch(app *App, args []string) error {
	client, err := remoteClient(app)
	if err != nil {
		return err
	}
	report, err := remote.Fetch(client, app.Store, app.Refs, jinconfig.DefaultRemoteName, app.Context)
	if err != nil {
		return err
	}
	printRefUpdates("active context", report.ForActiveContext)
	printRefUpdates("other layers", report.Other)
	if len(report.ForActiveContext) == 0 && len(report.Other) == 0 {
		fmt.Println("already up to date")
	}
	return nil
}

func printRefUpdates(label string, updates []remote.RefUpdate) {
	if len(updates) == 0 {
		return
	}
	color.Cyan("%s:", label)
	for _, u := range updates {
		if u.Old == "" {
			fmt.Printf("  %s (new) -> %s\n", u.Path, shortHash(u.New))
		} else {
			fmt.Printf("  %s %s -> %s\n", u.Path, shortHash(u.Old), shortHash(u.New))
		}
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
