package cmd

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/layer"
)

func init() {
	rootCmd.AddCommand(NewWorkspaceCommand("layers", "Show the active layer stack in precedence order", runLayers))
}

func runLayers(app *App, args []string) error {
	stack, err := layer.ActiveStack(app.Context, app.Refs)
	if err != nil {
		return err
	}
	if len(stack) == 0 {
		fmt.Println("no layers resolve for the current context")
		return nil
	}
	for _, l := range stack {
		refPath, _ := l.RefPath()
		commitID, _, _ := app.Refs.Read(refPath)
		color.Cyan("%d %-20s %s", l.Kind.Precedence(), l.Kind.String(), refPath)
		if commitID != "" {
			fmt.Printf("   -> %s\n", commitID[:12])
		}
	}
	return nil
}
