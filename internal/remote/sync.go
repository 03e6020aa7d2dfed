package remote

import (
	"time"

	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/objstore"
	"github.com/jinconfig/jin/internal/workspace"
)

// SyncResult bundles the outcome of sync's three steps.
type SyncResult struct {
	Fetch FetchReport
	Pull  PullResult
	Apply workspace.ApplyResult
}

// Sync implements spec.md §4.H's sync(): fetch, pull, then apply, in
// that fixed order — the one command that takes a remote all the way to
// a refreshed workspace.
func Sync(client *Client, store *objstore.Store, refs *objstore.RefStore, remoteName string, ctx layer.Context, root, metadataPath string, now time.Time, author string) (SyncResult, error) {
	fetchReport, err := Fetch(client, store, refs, remoteName, ctx)
	if err != nil {
		return SyncResult{}, err
	}

	pullResult, err := Pull(client, store, refs, remoteName, ctx, now, author)
	if err != nil {
		return SyncResult{Fetch: fetchReport}, err
	}

	applyResult, err := workspace.Apply(root, ctx, store, refs, metadataPath, workspace.ApplyOptions{Now: now.Unix()})
	if err != nil {
		return SyncResult{Fetch: fetchReport, Pull: pullResult}, err
	}

	return SyncResult{Fetch: fetchReport, Pull: pullResult, Apply: applyResult}, nil
}
