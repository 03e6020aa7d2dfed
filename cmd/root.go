package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jinconfig/jin/internal/jinerr"
)

var rootCmd = &cobra.Command{
	Use:   "jin",
	Short: "jin versions your developer and tool configuration across modes, scopes, and projects",
	Long: `jin is a private configuration management system. It versions JSON, YAML,
TOML, INI, and plain-text config files in a content-addressed store organized
into nine precedence-ordered layers, then materializes the active stack into
your workspace.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and translates any returned error into the
// stable exit code spec.md §6 defines, via jinerr.CodeOf.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "jin:", err)
		os.Exit(int(jinerr.CodeOf(err)))
	}
}
