package workspace

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/merge"
	"github.com/jinconfig/jin/internal/objstore"
)

// ApplyOptions controls one apply invocation.
type ApplyOptions struct {
	Force bool // bypass the attachment check
	Now   int64
}

// ApplyResult summarizes what apply did.
type ApplyResult struct {
	FilesWritten    []string
	FilesDeleted    []string
	ConflictedFiles []string
}

// Apply implements spec.md §4.G's apply(): compute the active stack,
// merge every distinct path across it, write files and delete
// null-propagated ones, then write fresh metadata.
func Apply(root string, ctx layer.Context, store *objstore.Store, refs *objstore.RefStore, metadataPath string, opts ApplyOptions) (ApplyResult, error) {
	lock := flock.New(filepath.Join(filepath.Dir(metadataPath), "apply.lock"))
	if err := lock.Lock(); err != nil {
		return ApplyResult{}, fmt.Errorf("failed to acquire workspace apply lock: %w", err)
	}
	defer lock.Unlock()

	prevMeta, hasPrevMeta, err := LoadMetadata(metadataPath)
	if err != nil {
		return ApplyResult{}, err
	}
	if !opts.Force {
		if err := ValidateAttached(root, ctx, store, refs, prevMeta, hasPrevMeta); err != nil {
			return ApplyResult{}, err
		}
	}

	stack, err := layer.ActiveStack(ctx, refs)
	if err != nil {
		return ApplyResult{}, err
	}
	if len(stack) == 0 {
		return ApplyResult{}, &jinerr.NotInitializedError{What: "no active layers resolve for the current context"}
	}

	type layerTree struct {
		refPath string
		entries map[string]objstore.TreeEntry
	}
	var layerTrees []layerTree
	allPaths := make(map[string]bool)

	for _, l := range stack {
		refPath, err := l.RefPath()
		if err != nil {
			return ApplyResult{}, err
		}
		commitID, ok, err := refs.Read(refPath)
		if err != nil {
			return ApplyResult{}, &jinerr.StoreError{Op: "read-ref", Err: err}
		}
		if !ok {
			continue
		}
		commit, err := store.ReadCommit(commitID)
		if err != nil {
			return ApplyResult{}, &jinerr.StoreError{Op: "read-commit", Err: err}
		}
		entries, err := store.ReadTree(commit.Tree)
		if err != nil {
			return ApplyResult{}, &jinerr.StoreError{Op: "read-tree", Err: err}
		}
		m := make(map[string]objstore.TreeEntry, len(entries))
		for _, e := range entries {
			m[e.Name] = e
			allPaths[e.Name] = true
		}
		layerTrees = append(layerTrees, layerTree{refPath: refPath, entries: m})
	}

	result := ApplyResult{}
	newFiles := make(map[string]string, len(allPaths))

	for path := range allPaths {
		var layerFiles []merge.LayerFile
		for _, lt := range layerTrees {
			entry, present := lt.entries[path]
			lf := merge.LayerFile{LayerRef: lt.refPath, Present: present}
			if present {
				content, err := store.ReadBlob(entry.Hash)
				if err != nil {
					return ApplyResult{}, &jinerr.StoreError{Op: "read-blob", Err: err}
				}
				lf.Content = content
			}
			layerFiles = append(layerFiles, lf)
		}

		mergedResult, err := merge.FoldLayers(path, layerFiles)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("failed to merge %q: %w", path, err)
		}
		if mergedResult.Deleted {
			continue
		}

		full := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return ApplyResult{}, fmt.Errorf("failed to create directory for %q: %w", path, err)
		}
		if err := os.WriteFile(full, mergedResult.Content, 0o644); err != nil {
			return ApplyResult{}, fmt.Errorf("failed to write %q: %w", path, err)
		}
		sum := sha256.Sum256(mergedResult.Content)
		newFiles[path] = fmt.Sprintf("%x", sum[:])
		result.FilesWritten = append(result.FilesWritten, path)

		if mergedResult.HasConflicts {
			result.ConflictedFiles = append(result.ConflictedFiles, path)
			if err := writeJinmergeSidecar(root, path, layerFiles); err != nil {
				return ApplyResult{}, err
			}
		}
	}

	// Delete files that previous metadata recorded as ours but that no
	// longer appear in any layer — this is how null-deletion propagates
	// from the layer level to disk.
	if hasPrevMeta {
		for path := range prevMeta.Files {
			if _, stillPresent := newFiles[path]; !stillPresent {
				full := filepath.Join(root, filepath.FromSlash(path))
				if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
					return ApplyResult{}, fmt.Errorf("failed to delete %q: %w", path, err)
				}
				result.FilesDeleted = append(result.FilesDeleted, path)
			}
		}
	}

	var appliedRefs []string
	for _, lt := range layerTrees {
		appliedRefs = append(appliedRefs, lt.refPath)
	}
	newMeta := &Metadata{Timestamp: opts.Now, AppliedLayers: appliedRefs, Files: newFiles}
	if err := SaveMetadata(metadataPath, newMeta); err != nil {
		return result, err
	}

	return result, nil
}

// writeJinmergeSidecar writes a .jinmerge file next to a conflicted
// path, recording the conflicting layers' content per spec.md §3's
// ".jinmerge record" and §4.I lifecycle step 1.
func writeJinmergeSidecar(root, path string, layerFiles []merge.LayerFile) error {
	full := filepath.Join(root, filepath.FromSlash(path)+".jinmerge")
	var buf []byte
	for _, lf := range layerFiles {
		if !lf.Present {
			continue
		}
		buf = append(buf, []byte(fmt.Sprintf("--- %s ---\n", lf.LayerRef))...)
		buf = append(buf, lf.Content...)
		buf = append(buf, '\n')
	}
	return os.WriteFile(full, buf, 0o644)
}
