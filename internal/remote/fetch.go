package remote

import (
	"fmt"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/objstore"
)

// FetchReport is the structured two-section output spec.md §4.H
// requires: refs relevant to the active context, and everything else.
type FetchReport struct {
	ForActiveContext []RefUpdate
	Other            []RefUpdate
}

// RefUpdate describes one layer ref whose remote-tracking mirror moved.
type RefUpdate struct {
	Path string
	Old  string // empty if newly created locally
	New  string
}

// mirrorRefPath is the per-remote tracking ref a layer ref's fetched state
// is recorded under, e.g. "remotes/origin/layers/global" for
// ("origin", "layers/global") — kept distinct from the local layer ref
// itself so a fetch never moves local state out from under uncommitted or
// unpushed local history; only Pull (with its own fast-forward/merge
// judgment) or Push (with its own ancestor check) ever touch the local
// "layers/..." ref.
func mirrorRefPath(remoteName, layerPath string) string {
	return fmt.Sprintf("remotes/%s/%s", remoteName, layerPath)
}

// Fetch retrieves every ref matching the layer refspec, writes missing
// objects into store, and updates each layer's per-remote mirror ref
// (remotes/<name>/layers/...) to match — the local "layers/..." ref is
// never written here; Pull and Push reconcile it against the mirror using
// their own fast-forward/merge/ancestor rules.
func Fetch(client *Client, store *objstore.Store, refs *objstore.RefStore, remoteName string, ctx layer.Context) (FetchReport, error) {
	remoteRefs, err := client.ListRemoteRefs()
	if err != nil {
		return FetchReport{}, err
	}

	var wantCommits, haveCommits []string
	mirrorByPath := make(map[string]string)
	for _, rr := range remoteRefs {
		wantCommits = append(wantCommits, rr.CommitID)
		mirror := mirrorRefPath(remoteName, rr.Path)
		if current, ok, err := refs.Read(mirror); err == nil && ok {
			mirrorByPath[rr.Path] = current
			haveCommits = append(haveCommits, current)
		}
		if current, ok, err := refs.Read(rr.Path); err == nil && ok {
			haveCommits = append(haveCommits, current)
		}
	}

	fetchedObjects, err := client.FetchObjects(wantCommits, haveCommits)
	if err != nil {
		return FetchReport{}, err
	}
	for hash, content := range fetchedObjects {
		if err := importObject(store, hash, content); err != nil {
			return FetchReport{}, &jinerr.StoreError{Op: "import-fetched-object", Err: err}
		}
	}

	report := FetchReport{}
	for _, rr := range remoteRefs {
		old := mirrorByPath[rr.Path]
		if old == rr.CommitID {
			continue
		}
		if err := refs.CompareAndSet(mirrorRefPath(remoteName, rr.Path), old, rr.CommitID); err != nil {
			continue // lost a concurrent race updating the mirror; next fetch retries
		}
		update := RefUpdate{Path: rr.Path, Old: old, New: rr.CommitID}
		if isRelevantToContext(rr.Path, ctx) {
			report.ForActiveContext = append(report.ForActiveContext, update)
		} else {
			report.Other = append(report.Other, update)
		}
	}
	return report, nil
}

// isRelevantToContext reports whether a layer ref path matches the
// active mode/scope/project, per spec.md §4.H ("refs that match current
// mode/scope/project per the §4.B stack rules"). global is always
// relevant.
func isRelevantToContext(refPath string, ctx layer.Context) bool {
	if refPath == "layers/global" || refPath == "layers/local" {
		return true
	}
	stack, err := layer.ActiveStack(ctx, alwaysPresentResolver{})
	if err != nil {
		return false
	}
	for _, l := range stack {
		p, err := l.RefPath()
		if err == nil && p == refPath {
			return true
		}
	}
	return false
}

// alwaysPresentResolver lets isRelevantToContext ask "which layers would
// be active for ctx" without touching the real ref store — ActiveStack
// only uses Read to decide presence, and here we want the full candidate
// set implied by ctx, independent of what's actually been fetched yet.
type alwaysPresentResolver struct{}

func (alwaysPresentResolver) Read(string) (string, bool, error) { return "", true, nil }

// importObject writes a fetched object's framed, uncompressed bytes into
// the local store via ImportRaw, which checks them against hash.
func importObject(store *objstore.Store, hash string, framed []byte) error {
	if store.Has(hash) {
		return nil
	}
	return store.ImportRaw(hash, framed)
}
