// Package commitpipeline turns the staging index into one or more new
// layer commits, atomically, per spec.md §4.F. Grounded on the teacher's
// cmd/commit.go (load index -> verify clean -> author/committer from
// config -> build tree -> create commit -> update ref) generalized from
// one branch ref to N layer refs updated inside one objstore.Txn.
package commitpipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/jinmap"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/objstore"
	"github.com/jinconfig/jin/internal/staging"
)

// Options configures a single commit invocation.
type Options struct {
	Message string
	Author  string
	Now     int64
	Context layer.Context
}

// Result summarizes what the pipeline did.
type Result struct {
	LayerCommits map[string]string // ref path -> new commit-id
}

// Run executes the full 8-stage pipeline described in spec.md §4.F.
func Run(store *objstore.Store, refs *objstore.RefStore, idx *staging.Index, opts Options) (Result, error) {
	// Stage 1: validate.
	entries := idx.List()
	if len(entries) == 0 {
		return Result{}, &jinerr.ValidationError{Rule: "empty-staging", Input: ""}
	}
	if opts.Message == "" {
		return Result{}, &jinerr.ValidationError{Rule: "empty-commit-message", Input: ""}
	}
	for _, e := range entries {
		if !e.Layer.RequiredContextSatisfied(opts.Context) {
			refPath, _ := e.Layer.RefPath()
			return Result{}, &jinerr.ValidationError{Rule: "context-no-longer-active", Input: refPath}
		}
	}

	// Stage 2: group by target layer.
	groups := make(map[string][]staging.Entry)
	layerByRef := make(map[string]layer.Layer)
	var refOrder []string
	for _, e := range entries {
		refPath, err := e.Layer.RefPath()
		if err != nil {
			return Result{}, &jinerr.ValidationError{Rule: "invalid-layer", Input: err.Error()}
		}
		if _, seen := groups[refPath]; !seen {
			refOrder = append(refOrder, refPath)
		}
		groups[refPath] = append(groups[refPath], e)
		layerByRef[refPath] = e.Layer
	}
	sort.Strings(refOrder)

	result := Result{LayerCommits: make(map[string]string, len(refOrder))}
	txn := objstore.BeginTxn(refs)
	jinmapRecords := make(map[string]jinmap.Record, len(refOrder))

	for _, refPath := range refOrder {
		groupEntries := groups[refPath]

		// Stage 3: build blobs & trees (single-layer overlay is replace-by-default).
		previousCommitID, hadPrevious, err := refs.Read(refPath)
		if err != nil {
			return Result{}, &jinerr.StoreError{Op: "read-ref", Err: err}
		}

		var baseEntries []objstore.TreeEntry
		if hadPrevious {
			prevCommit, err := store.ReadCommit(previousCommitID)
			if err != nil {
				return Result{}, &jinerr.StoreError{Op: "read-commit", Err: err}
			}
			baseEntries, err = store.ReadTree(prevCommit.Tree)
			if err != nil {
				return Result{}, &jinerr.StoreError{Op: "read-tree", Err: err}
			}
		}

		overlay := make(map[string]objstore.TreeEntry, len(groupEntries))
		var changes []jinmap.FileChange
		for _, e := range groupEntries {
			overlay[e.Path] = objstore.TreeEntry{Name: e.Path, Kind: objstore.KindBlob, Hash: e.BlobHash}
			changes = append(changes, jinmap.FileChange{Path: e.Path, SourcePath: e.Path, BlobHash: e.BlobHash})
		}

		merged := make(map[string]objstore.TreeEntry, len(baseEntries)+len(overlay))
		for _, be := range baseEntries {
			merged[be.Name] = be
		}
		for name, oe := range overlay {
			merged[name] = oe
		}
		var finalEntries []objstore.TreeEntry
		for _, e := range merged {
			finalEntries = append(finalEntries, e)
		}

		treeHash, err := store.BuildTree(finalEntries)
		if err != nil {
			return Result{}, &jinerr.StoreError{Op: "build-tree", Err: err}
		}

		// Stage 4: create commits.
		var parents []string
		if hadPrevious {
			parents = []string{previousCommitID}
		}
		commitHash, err := store.CreateCommit(objstore.Commit{
			Tree:      treeHash,
			Parents:   parents,
			Author:    opts.Author,
			Message:   opts.Message,
			Timestamp: opts.Now,
		})
		if err != nil {
			return Result{}, &jinerr.StoreError{Op: "create-commit", Err: err}
		}

		// Stage 5: stage ref update (collected; applied in one transaction below).
		expected := ""
		if hadPrevious {
			expected = previousCommitID
		}
		if err := txn.StageRefUpdate(refPath, expected, commitHash); err != nil {
			return Result{}, fmt.Errorf("failed to stage ref update for %s: %w", refPath, err)
		}

		l := layerByRef[refPath]
		jinmapRecords[commitHash] = jinmap.Record{
			CommitID: commitHash,
			Files:    changes,
			User:     opts.Author,
			Mode:     l.Mode,
			Scope:    l.Scope,
			Project:  l.Project,
		}
		result.LayerCommits[refPath] = commitHash
	}

	// Stage 6: write audit map for each commit.
	for _, rec := range jinmapRecords {
		if _, err := jinmap.Write(store, rec); err != nil {
			return Result{}, &jinerr.StoreError{Op: "write-jinmap", Err: err}
		}
	}

	// Stage 7: commit the transaction.
	if err := txn.CommitTxn(); err != nil {
		var conflict *objstore.CASConflict
		if errors.As(err, &conflict) {
			return Result{}, &jinerr.ConflictError{Ref: conflict.Ref, Expected: conflict.Expected, Actual: conflict.Actual}
		}
		return Result{}, &jinerr.StoreError{Op: "commit-txn", Err: err}
	}

	// Stage 8: clear staging. This is the documented non-atomic window: if
	// this fails, refs have already advanced but staging still holds the
	// committed entries; 'status' shows them, and nothing is lost.
	if err := idx.Clear(); err != nil {
		return result, fmt.Errorf("commit succeeded but clearing staging failed (run 'status' to confirm state): %w", err)
	}

	return result, nil
}
