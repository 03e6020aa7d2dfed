package remote

import (
	"fmt"
	"strings"
	"time"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/merge"
	"github.com/jinconfig/jin/internal/objstore"
)

// PullResult reports what pull did to each local layer ref.
type PullResult struct {
	FastForwarded []RefUpdate
	Merged        []RefUpdate
	UpToDate      []string
	Conflicted    []string // layer ref paths whose merge commit has unresolved text conflicts
}

// Pull implements spec.md §4.H's pull(): fetch, then for each layer ref
// fast-forward if local is behind its mirror, no-op if local is ahead or
// equal, or build a merge commit over the tree-level 3-way diff if the two
// sides diverged. Surfacing any conflicts left in the merge commit is the
// next apply's job (§4.G folds them into the workspace with conflict
// markers). Comparing against the mirror ref (rather than the remote's
// live listing) means pull judges fast-forward/merge against exactly the
// state fetch just recorded, not a second round-trip to the server.
func Pull(client *Client, store *objstore.Store, refs *objstore.RefStore, remoteName string, ctx layer.Context, now time.Time, author string) (PullResult, error) {
	if _, err := Fetch(client, store, refs, remoteName, ctx); err != nil {
		return PullResult{}, fmt.Errorf("pull requires a successful fetch first: %w", err)
	}

	mirrorPrefix := mirrorRefPath(remoteName, "layers/")
	mirrorRefs, err := refs.ListRefs(mirrorPrefix)
	if err != nil {
		return PullResult{}, &jinerr.StoreError{Op: "list-mirror-refs", Err: err}
	}
	remotePrefix := fmt.Sprintf("remotes/%s/", remoteName)

	result := PullResult{}
	for _, mr := range mirrorRefs {
		layerPath := strings.TrimPrefix(mr.Path, remotePrefix)
		localCommit, hasLocal, err := refs.Read(layerPath)
		if err != nil {
			return PullResult{}, &jinerr.StoreError{Op: "read-ref", Err: err}
		}

		if hasLocal && localCommit == mr.CommitID {
			result.UpToDate = append(result.UpToDate, layerPath)
			continue
		}
		if !hasLocal {
			if err := refs.CompareAndSet(layerPath, "", mr.CommitID); err != nil {
				return PullResult{}, &jinerr.StoreError{Op: "create-ref", Err: err}
			}
			result.FastForwarded = append(result.FastForwarded, RefUpdate{Path: layerPath, New: mr.CommitID})
			continue
		}

		localIsAncestor, err := isCommitAncestor(store, localCommit, mr.CommitID)
		if err != nil {
			return PullResult{}, err
		}
		if localIsAncestor {
			if err := refs.CompareAndSet(layerPath, localCommit, mr.CommitID); err != nil {
				return PullResult{}, &jinerr.StoreError{Op: "fast-forward-ref", Err: err}
			}
			result.FastForwarded = append(result.FastForwarded, RefUpdate{Path: layerPath, Old: localCommit, New: mr.CommitID})
			continue
		}

		remoteIsAncestor, err := isCommitAncestor(store, mr.CommitID, localCommit)
		if err != nil {
			return PullResult{}, err
		}
		if remoteIsAncestor {
			result.UpToDate = append(result.UpToDate, layerPath) // local is already ahead
			continue
		}

		mergeCommit, hasConflicts, err := mergeDivergedLayer(store, localCommit, mr.CommitID, author, now)
		if err != nil {
			return PullResult{}, fmt.Errorf("failed to merge diverged layer %q: %w", layerPath, err)
		}
		if err := refs.CompareAndSet(layerPath, localCommit, mergeCommit); err != nil {
			return PullResult{}, &jinerr.StoreError{Op: "update-merged-ref", Err: err}
		}
		result.Merged = append(result.Merged, RefUpdate{Path: layerPath, Old: localCommit, New: mergeCommit})
		if hasConflicts {
			result.Conflicted = append(result.Conflicted, layerPath)
		}
	}
	return result, nil
}

// mergeDivergedLayer builds a merge commit for two commits that share no
// ancestor relationship, 3-way-merging the tree at the nearest common
// ancestor, per file, as plain text via merge.TextMerge (no structured
// deep merge, unlike workspace.Apply's layer fold).
func mergeDivergedLayer(store *objstore.Store, ours, theirs string, author string, now time.Time) (string, bool, error) {
	base, err := nearestCommonAncestor(store, ours, theirs)
	if err != nil {
		return "", false, err
	}

	oursCommit, err := store.ReadCommit(ours)
	if err != nil {
		return "", false, &jinerr.StoreError{Op: "read-commit", Err: err}
	}
	theirsCommit, err := store.ReadCommit(theirs)
	if err != nil {
		return "", false, &jinerr.StoreError{Op: "read-commit", Err: err}
	}

	var baseEntries map[string]objstore.TreeEntry
	if base != "" {
		baseCommit, err := store.ReadCommit(base)
		if err != nil {
			return "", false, &jinerr.StoreError{Op: "read-commit", Err: err}
		}
		baseEntries, err = treeEntryMap(store, baseCommit.Tree)
		if err != nil {
			return "", false, err
		}
	}
	oursEntries, err := treeEntryMap(store, oursCommit.Tree)
	if err != nil {
		return "", false, err
	}
	theirsEntries, err := treeEntryMap(store, theirsCommit.Tree)
	if err != nil {
		return "", false, err
	}

	paths := make(map[string]bool)
	for p := range baseEntries {
		paths[p] = true
	}
	for p := range oursEntries {
		paths[p] = true
	}
	for p := range theirsEntries {
		paths[p] = true
	}

	hasConflicts := false
	var newEntries []objstore.TreeEntry
	for path := range paths {
		baseEntry, baseOK := baseEntries[path]
		oursEntry, oursOK := oursEntries[path]
		theirsEntry, theirsOK := theirsEntries[path]

		var baseContent, oursContent, theirsContent []byte
		if baseOK {
			if baseContent, err = store.ReadBlob(baseEntry.Hash); err != nil {
				return "", false, &jinerr.StoreError{Op: "read-blob", Err: err}
			}
		}
		if oursOK {
			if oursContent, err = store.ReadBlob(oursEntry.Hash); err != nil {
				return "", false, &jinerr.StoreError{Op: "read-blob", Err: err}
			}
		}
		if theirsOK {
			if theirsContent, err = store.ReadBlob(theirsEntry.Hash); err != nil {
				return "", false, &jinerr.StoreError{Op: "read-blob", Err: err}
			}
		}

		switch {
		case !oursOK && !theirsOK:
			continue // deleted on both sides
		case !theirsOK:
			newEntries = append(newEntries, oursEntry)
			continue
		case !oursOK:
			newEntries = append(newEntries, theirsEntry)
			continue
		case oursEntry.Hash == theirsEntry.Hash:
			newEntries = append(newEntries, oursEntry)
			continue
		}

		merged := merge.TextMerge(string(baseContent), string(oursContent), string(theirsContent))
		if merged.HasConflicts {
			hasConflicts = true
		}
		blobHash, err := store.HashBlob([]byte(merged.Content))
		if err != nil {
			return "", false, &jinerr.StoreError{Op: "write-blob", Err: err}
		}
		newEntries = append(newEntries, objstore.TreeEntry{Name: path, Kind: objstore.KindBlob, Hash: blobHash})
	}

	newTree, err := store.BuildTree(newEntries)
	if err != nil {
		return "", false, &jinerr.StoreError{Op: "build-tree", Err: err}
	}
	message := "merge remote layer update"
	if hasConflicts {
		message = "merge remote layer update (with conflicts)"
	}
	commitID, err := store.CreateCommit(objstore.Commit{
		Tree:      newTree,
		Parents:   []string{ours, theirs},
		Author:    author,
		Message:   message,
		Timestamp: now.Unix(),
	})
	if err != nil {
		return "", false, &jinerr.StoreError{Op: "create-commit", Err: err}
	}
	return commitID, hasConflicts, nil
}

func treeEntryMap(store *objstore.Store, treeHash string) (map[string]objstore.TreeEntry, error) {
	entries, err := store.ReadTree(treeHash)
	if err != nil {
		return nil, &jinerr.StoreError{Op: "read-tree", Err: err}
	}
	m := make(map[string]objstore.TreeEntry, len(entries))
	for _, e := range entries {
		m[e.Name] = e
	}
	return m, nil
}

// nearestCommonAncestor does a simple BFS-based lowest-common-ancestor
// walk; layer histories are short and linear-ish (one merge per diverged
// pull), so this isn't optimized for deep DAGs.
func nearestCommonAncestor(store *objstore.Store, a, b string) (string, error) {
	ancestorsOfA := make(map[string]bool)
	queue := []string{a}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if ancestorsOfA[h] {
			continue
		}
		ancestorsOfA[h] = true
		c, err := store.ReadCommit(h)
		if err != nil {
			return "", &jinerr.StoreError{Op: "read-commit", Err: err}
		}
		queue = append(queue, c.Parents...)
	}

	visited := make(map[string]bool)
	queue = []string{b}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if ancestorsOfA[h] {
			return h, nil
		}
		if visited[h] {
			continue
		}
		visited[h] = true
		c, err := store.ReadCommit(h)
		if err != nil {
			return "", &jinerr.StoreError{Op: "read-commit", Err: err}
		}
		queue = append(queue, c.Parents...)
	}
	return "", nil // no common ancestor; merge treats base as empty
}
