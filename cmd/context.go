package cmd

import "fmt"

func init() {
	rootCmd.AddCommand(NewWorkspaceCommand("context", "Show the active mode/scope/project", runContext))
}

func runContext(app *App, args []string) error {
	fmt.Printf("mode:    %s\n", display(app.Context.Mode))
	fmt.Printf("scope:   %s\n", display(app.Context.Scope))
	fmt.Printf("project: %s\n", display(app.Context.Project))
	return nil
}
