package remote

import (
	"fmt"
	"strings"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/objstore"
)

// PushOptions controls one push invocation.
type PushOptions struct {
	Force bool
}

// PushResult reports which layer refs moved.
type PushResult struct {
	Updated  []RefUpdate
	UpToDate []string // layer ref paths that needed no push
}

// Push implements spec.md §4.H's push(): fetch is mandatory first so
// divergence is always judged against current remote state, then every
// local layer ref is compared against its freshly-fetched mirror ref
// (remotes/<name>/layers/...) and pushed if the mirror is an ancestor of,
// or missing, the local commit. The local layer ref itself is never
// touched by fetch, so this comparison sees real local-vs-remote history
// instead of a value fetch already overwrote.
func Push(client *Client, store *objstore.Store, refs *objstore.RefStore, remoteName string, ctx layer.Context, opts PushOptions) (PushResult, error) {
	if _, err := Fetch(client, store, refs, remoteName, ctx); err != nil {
		return PushResult{}, fmt.Errorf("push requires a successful fetch first: %w", err)
	}

	mirrorPrefix := mirrorRefPath(remoteName, "layers/")
	mirrorRefs, err := refs.ListRefs(mirrorPrefix)
	if err != nil {
		return PushResult{}, &jinerr.StoreError{Op: "list-mirror-refs", Err: err}
	}
	remoteByPath := make(map[string]string, len(mirrorRefs))
	for _, mr := range mirrorRefs {
		layerPath := strings.TrimPrefix(mr.Path, fmt.Sprintf("remotes/%s/", remoteName))
		remoteByPath[layerPath] = mr.CommitID
	}

	localRefs, err := refs.ListRefs("layers/")
	if err != nil {
		return PushResult{}, &jinerr.StoreError{Op: "list-local-refs", Err: err}
	}

	result := PushResult{}
	var updates []PushUpdate
	objectsToSend := make(map[string][]byte)

	for _, lr := range localRefs {
		remoteCommit := remoteByPath[lr.Path]
		if remoteCommit == lr.CommitID {
			result.UpToDate = append(result.UpToDate, lr.Path)
			continue
		}

		if remoteCommit != "" && !opts.Force {
			isAncestor, err := isCommitAncestor(store, remoteCommit, lr.CommitID)
			if err != nil {
				return PushResult{}, err
			}
			if !isAncestor {
				return PushResult{}, &jinerr.ConflictError{
					Ref:      lr.Path,
					Expected: remoteCommit,
					Actual:   lr.CommitID,
					Reason:   "divergent-history: run 'jin pull' to merge, or pass --force to overwrite the remote",
				}
			}
		}

		objs, err := reachableObjects(store, lr.CommitID, remoteCommit)
		if err != nil {
			return PushResult{}, err
		}
		for hash, content := range objs {
			objectsToSend[hash] = content
		}

		updates = append(updates, PushUpdate{Path: lr.Path, Expected: remoteCommit, New: lr.CommitID})
	}

	if len(updates) == 0 {
		return result, nil
	}

	if err := client.PushObjects(objectsToSend, updates, opts.Force); err != nil {
		return PushResult{}, err
	}
	for _, u := range updates {
		mirror := mirrorRefPath(remoteName, u.Path)
		if err := refs.CompareAndSet(mirror, u.Expected, u.New); err != nil {
			// A concurrent fetch already moved the mirror past what we
			// pushed; the next fetch will reconcile it. The push to the
			// server already succeeded, so this is not fatal.
			_ = err
		}
		result.Updated = append(result.Updated, RefUpdate{Path: u.Path, Old: u.Expected, New: u.New})
	}
	return result, nil
}

// isCommitAncestor walks descendant's parent chain looking for ancestor.
// An empty ancestor means "remote has no ref yet", which trivially
// qualifies as an ancestor of anything.
func isCommitAncestor(store *objstore.Store, ancestor, descendant string) (bool, error) {
	if ancestor == "" {
		return true, nil
	}
	visited := make(map[string]bool)
	queue := []string{descendant}
	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]
		if hash == ancestor {
			return true, nil
		}
		if visited[hash] {
			continue
		}
		visited[hash] = true
		commit, err := store.ReadCommit(hash)
		if err != nil {
			return false, &jinerr.StoreError{Op: "read-commit", Err: err}
		}
		queue = append(queue, commit.Parents...)
	}
	return false, nil
}

// reachableObjects returns every commit/tree/blob reachable from newCommit
// that is not already reachable from haveCommit (possibly empty), framed
// for transport via objstore.ExportRaw.
func reachableObjects(store *objstore.Store, newCommit, haveCommit string) (map[string][]byte, error) {
	have := make(map[string]bool)
	if haveCommit != "" {
		if err := walkReachable(store, haveCommit, have); err != nil {
			return nil, err
		}
	}
	want := make(map[string]bool)
	if err := walkReachable(store, newCommit, want); err != nil {
		return nil, err
	}

	out := make(map[string][]byte)
	for hash := range want {
		if have[hash] {
			continue
		}
		framed, err := store.ExportRaw(hash)
		if err != nil {
			return nil, &jinerr.StoreError{Op: "export-object", Err: err}
		}
		out[hash] = framed
	}
	return out, nil
}

func walkReachable(store *objstore.Store, commitHash string, seen map[string]bool) error {
	queue := []string{commitHash}
	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]
		if seen[hash] {
			continue
		}
		seen[hash] = true
		commit, err := store.ReadCommit(hash)
		if err != nil {
			return &jinerr.StoreError{Op: "read-commit", Err: err}
		}
		if !seen[commit.Tree] {
			seen[commit.Tree] = true
			if err := walkTree(store, commit.Tree, seen); err != nil {
				return err
			}
		}
		queue = append(queue, commit.Parents...)
	}
	return nil
}

func walkTree(store *objstore.Store, treeHash string, seen map[string]bool) error {
	entries, err := store.ReadTree(treeHash)
	if err != nil {
		return &jinerr.StoreError{Op: "read-tree", Err: err}
	}
	for _, e := range entries {
		if seen[e.Hash] {
			continue
		}
		seen[e.Hash] = true
		if e.Kind == objstore.KindTree {
			if err := walkTree(store, e.Hash, seen); err != nil {
				return err
			}
		}
	}
	return nil
}
