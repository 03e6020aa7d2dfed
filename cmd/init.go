package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jinconfig/jin/internal/jinctx"
)

func init() {
	initCmd := NewInitCommand(
		"init [directory]",
		"Initialize a new, empty jin workspace",
		runInit,
	)
	initCmd.Args = cobra.MaximumNArgs(1)
	rootCmd.AddCommand(initCmd)
}

func runInit(args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return &ErrInvalidDirectory{Path: dir, Err: err}
	}

	if _, err := jinctx.FindWorkspaceFrom(absDir); err == nil {
		return &ErrWorkspaceExists{Path: absDir}
	}

	ws, err := jinctx.InitWorkspace(absDir)
	if err != nil {
		return err
	}

	// Touch the global store too, so a fresh install's first `init`
	// doesn't defer store creation to whatever command runs next.
	jinDir, store, refs, cfg, err := openGlobal()
	if err != nil {
		return err
	}
	_ = store
	_ = refs

	if cfg.FetchOnInit {
		// fetch-on-init requires a configured remote; silently skip if
		// there isn't one yet rather than failing a bare `init`.
		if _, ok := cfg.GetRemote("origin"); ok {
			fmt.Println("fetch-on-init is enabled; run 'jin fetch' once a remote context is selected")
		}
	}

	fmt.Printf("Initialized empty jin workspace in %s (global store: %s)\n", ws.Root, jinDir)
	return nil
}
