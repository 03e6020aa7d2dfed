package cmd

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/jinconfig/jin/internal/repair"
)

var (
	repairCheckOnly bool
	repairDryRun    bool
	repairForce     bool
)

func init() {
	repairCmd := NewWorkspaceCommand("repair", "Audit and repair object/ref/staging consistency", runRepair)
	repairCmd.Flags().BoolVar(&repairCheckOnly, "check", false, "only report findings, never modify state")
	repairCmd.Flags().BoolVar(&repairDryRun, "dry-run", false, "show what repair would change without changing it")
	repairCmd.Flags().BoolVar(&repairForce, "force", false, "bypass the attachment check")
	rootCmd.AddCommand(repairCmd)
}

func runRepair(app *App, args []string) error {
	if repairCheckOnly {
		findings, err := repair.Check(app.Workspace.Root, app.Store, app.Refs, app.Index, app.Workspace.MetadataPath())
		if err != nil {
			return err
		}
		printFindings(findings)
		return nil
	}

	report, err := repair.Repair(app.Workspace.Root, app.Context, app.Store, app.Refs, app.Index, app.Workspace.MetadataPath(), repair.Options{
		DryRun: repairDryRun,
		Force:  repairForce,
	})
	if err != nil {
		return err
	}
	printFindings(report.Findings)
	if repairDryRun {
		return nil
	}
	for _, r := range report.OrphanRefsDropped {
		fmt.Printf("  %s %s\n", color.RedString("dropped ref"), r)
	}
	for _, p := range report.StagedEntriesDropped {
		fmt.Printf("  %s %s\n", color.RedString("unstaged"), p)
	}
	for _, p := range report.JinmergeRemoved {
		fmt.Printf("  %s %s\n", color.RedString("removed"), p)
	}
	if report.MetadataCleared {
		color.Yellow("  cleared stale workspace metadata")
	}
	return nil
}

func printFindings(findings []repair.Finding) {
	if len(findings) == 0 {
		fmt.Println("no inconsistencies found")
		return
	}
	color.Yellow("findings:")
	for _, f := range findings {
		fmt.Printf("  %s\n", f.String())
	}
}
