package cmd

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/gc"
)

var (
	gcDryRun bool
)

func init() {
	gcCmd := NewGlobalCommand("gc", "Remove objects unreachable from any layer ref", runGC)
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "report what would be removed without removing it")
	rootCmd.AddCommand(gcCmd)
}

func runGC(app *App, args []string) error {
	stats, err := gc.Collect(app.Store, app.Refs, gc.Options{DryRun: gcDryRun, Verbose: true})
	if err != nil {
		return err
	}
	fmt.Printf("examined %d object(s)\n", stats.ObjectsExamined)
	for _, h := range stats.ObjectsRemoved {
		color.Yellow("  removed %s", h)
	}
	fmt.Printf("%d removed, %d bytes reclaimed\n", len(stats.ObjectsRemoved), stats.SpaceSaved)
	return nil
}
