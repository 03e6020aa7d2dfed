package cmd

import (
	"github.com/jinconfig/jin/internal/jinconfig"
	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/remote"
)

// remoteClient resolves the configured "origin" remote and opens a
// client for it, shared by fetch/pull/push/sync.
func remoteClient(app *App) (*remote.Client, error) {
	r, ok := app.Config.GetRemote(jinconfig.DefaultRemoteName)
	if !ok {
		return nil, &jinerr.NotFoundError{Kind: "remote", Name: jinconfig.DefaultRemoteName}
	}
	var auth remote.Auth
	if r.Auth != "" {
		auth = remote.TokenAuth{Token: r.Auth}
	}
	return remote.NewClient(r.URL, auth)
}
