// Package cmd implements jin's CLI surface: the cobra command tree, the
// app-resolution helper that opens the global store and the per-workspace
// state, and typed command-construction errors. Grounded on the teacher's
// cmd/factory.go (NewCommand/NewRepoCommand/NewInitCommand) and cmd/root.go,
// retargeted from a single per-repository core.Repository to jin's two
// distinct roots: the global $JIN_DIR object/ref store and a thin
// per-workspace .jin directory (see internal/jinctx).
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jinconfig/jin/internal/jinconfig"
	"github.com/jinconfig/jin/internal/jinctx"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/objstore"
	"github.com/jinconfig/jin/internal/pctx"
	"github.com/jinconfig/jin/internal/staging"
)

// App bundles everything a command handler needs: the global object/ref
// store, the user's global config, and the resolved workspace with its
// loaded context and staging index.
type App struct {
	JinDir string
	Store  *objstore.Store
	Refs   *objstore.RefStore
	Config *jinconfig.Config

	Workspace jinctx.Workspace
	Context   layer.Context
	Index     *staging.Index
}

// openGlobal resolves $JIN_DIR and opens the store/ref/config trio that
// every command needs, whether or not a workspace is attached.
func openGlobal() (string, *objstore.Store, *objstore.RefStore, *jinconfig.Config, error) {
	jinDir, err := jinctx.JinDir()
	if err != nil {
		return "", nil, nil, nil, err
	}
	store, err := objstore.Open(filepath.Join(jinDir, "objects"))
	if err != nil {
		return "", nil, nil, nil, err
	}
	refs, err := objstore.OpenRefStore(filepath.Join(jinDir, "refs"))
	if err != nil {
		return "", nil, nil, nil, err
	}
	cfg, err := jinconfig.Load(filepath.Join(jinDir, "config"))
	if err != nil {
		return "", nil, nil, nil, err
	}
	return jinDir, store, refs, cfg, nil
}

// loadApp resolves both the global store and the current workspace,
// loading its context and staging index. Used by every command that
// operates on an existing workspace.
func loadApp() (*App, error) {
	jinDir, store, refs, cfg, err := openGlobal()
	if err != nil {
		return nil, err
	}
	ws, err := jinctx.FindWorkspace()
	if err != nil {
		return nil, err
	}
	ctx, err := pctx.Load(ws.ContextPath())
	if err != nil {
		return nil, err
	}
	idx, err := staging.Open(ws.StagingPath())
	if err != nil {
		return nil, err
	}
	return &App{
		JinDir: jinDir, Store: store, Refs: refs, Config: cfg,
		Workspace: ws, Context: ctx, Index: idx,
	}, nil
}

// author resolves the commit author string from config, falling back to
// the OS user if config has nothing set (per spec.md §6's persisted
// config holding "user name/email", which a fresh global store won't
// have until the user configures it).
func (a *App) author() string {
	if a.Config.User.Name != "" {
		if a.Config.User.Email != "" {
			return fmt.Sprintf("%s <%s>", a.Config.User.Name, a.Config.User.Email)
		}
		return a.Config.User.Name
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}
