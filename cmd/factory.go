package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// HandlerFunc is the signature for every command that needs a resolved
// workspace (the common case), mirroring the teacher's HandlerFunc but
// taking an *App instead of a *core.Repository.
type HandlerFunc func(app *App, args []string) error

// NewCommand creates a cobra.Command that resolves the current workspace
// before invoking handler.
func NewCommand(use, short string, handler HandlerFunc, requiredArgs int) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < requiredArgs {
				return fmt.Errorf("%s requires at least %d argument(s)", use, requiredArgs)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}
			return handler(app, args)
		},
	}
}

// NewWorkspaceCommand is NewCommand with no required positional args, the
// common case for status/diff/apply-style commands.
func NewWorkspaceCommand(use, short string, handler HandlerFunc) *cobra.Command {
	return NewCommand(use, short, handler, 0)
}

// NewInitCommand creates a command that must run without an existing
// workspace (just `init`).
func NewInitCommand(use, short string, run func(args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args)
		},
	}
}

// GlobalHandlerFunc is for commands that only need the global store, not
// a resolved workspace (e.g. serve).
type GlobalHandlerFunc func(app *App, args []string) error

// NewGlobalCommand resolves only the global store/config, not a
// workspace, before invoking handler.
func NewGlobalCommand(use, short string, handler GlobalHandlerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			jinDir, store, refs, cfg, err := openGlobal()
			if err != nil {
				return err
			}
			return handler(&App{JinDir: jinDir, Store: store, Refs: refs, Config: cfg}, args)
		},
	}
}
