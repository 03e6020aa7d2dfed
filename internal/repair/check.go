// Package repair implements spec.md §4.I's consistency audit and gated
// destructive fixes, grounded on the teacher's internal/maintenance/gc.go
// reachability-scan structure (markReachableFromObject/markReachableFromTree,
// findAllObjects-style walks), retargeted from blob garbage collection to
// ref/metadata/staging consistency checking.
package repair

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/objstore"
	"github.com/jinconfig/jin/internal/staging"
	"github.com/jinconfig/jin/internal/workspace"
)

// Finding is one audit result.
type Finding struct {
	Kind    string // "missing-commit", "orphan-ref", "unreachable-metadata-layer", "dead-staged-entry", "orphaned-jinmerge"
	Detail  string
	RefPath string // set for ref-related findings
}

func (f Finding) String() string {
	if f.RefPath != "" {
		return fmt.Sprintf("%s: %s (%s)", f.Kind, f.Detail, f.RefPath)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// Check runs the read-only audit spec.md §4.I describes: missing commits,
// orphan refs, unreachable metadata layers, dead staged entries, and
// orphaned .jinmerge files. A healthy store returns an empty slice.
func Check(root string, store *objstore.Store, refs *objstore.RefStore, idx *staging.Index, metadataPath string) ([]Finding, error) {
	var findings []Finding

	allRefs, err := refs.ListRefs("layers/")
	if err != nil {
		return nil, &jinerr.StoreError{Op: "list-refs", Err: err}
	}
	for _, r := range allRefs {
		commit, err := store.ReadCommit(r.CommitID)
		if err != nil {
			findings = append(findings, Finding{
				Kind:    "missing-commit",
				Detail:  fmt.Sprintf("ref points to unreadable commit %s", r.CommitID),
				RefPath: r.Path,
			})
			continue
		}
		if !store.Has(commit.Tree) {
			findings = append(findings, Finding{
				Kind:    "orphan-ref",
				Detail:  fmt.Sprintf("commit %s's tree %s is missing", r.CommitID, commit.Tree),
				RefPath: r.Path,
			})
		}
	}

	meta, hasMeta, err := workspace.LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}
	if hasMeta {
		refSet := make(map[string]bool, len(allRefs))
		for _, r := range allRefs {
			refSet[r.Path] = true
		}
		for _, layerRef := range meta.AppliedLayers {
			if !refSet[layerRef] {
				findings = append(findings, Finding{
					Kind:    "unreachable-metadata-layer",
					Detail:  "metadata names a layer ref that no longer exists",
					RefPath: layerRef,
				})
			}
		}
	}

	for _, entry := range idx.List() {
		full := filepath.Join(root, filepath.FromSlash(entry.Path))
		if _, err := os.Stat(full); err != nil {
			findings = append(findings, Finding{
				Kind:   "dead-staged-entry",
				Detail: fmt.Sprintf("staged path %q no longer exists on disk", entry.Path),
			})
		}
	}

	orphanedSidecars, err := findOrphanedJinmerge(root)
	if err != nil {
		return nil, err
	}
	findings = append(findings, orphanedSidecars...)

	return findings, nil
}
