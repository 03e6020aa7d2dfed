package repair

import (
	"os"
	"path/filepath"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/objstore"
	"github.com/jinconfig/jin/internal/staging"
	"github.com/jinconfig/jin/internal/workspace"
)

// Options controls one repair invocation.
type Options struct {
	DryRun bool
	Force  bool
}

// Report summarizes what Repair changed (or would change, under DryRun).
type Report struct {
	Findings       []Finding
	OrphanRefsDropped  []string
	MetadataCleared    bool
	StagedEntriesDropped []string
	JinmergeRemoved      []string
}

// Repair proposes and (unless DryRun) applies fixes for every finding
// Check reports: drop orphan refs, clear dead metadata, drop dead staged
// entries, remove orphaned .jinmerge sidecars. Per spec.md §4.I, these are
// destructive and gated by workspace.ValidateAttached unless Force.
func Repair(root string, ctx layer.Context, store *objstore.Store, refs *objstore.RefStore, idx *staging.Index, metadataPath string, opts Options) (Report, error) {
	findings, err := Check(root, store, refs, idx, metadataPath)
	if err != nil {
		return Report{}, err
	}
	report := Report{Findings: findings}
	if len(findings) == 0 {
		return report, nil
	}

	if !opts.Force {
		meta, hasMeta, err := workspace.LoadMetadata(metadataPath)
		if err != nil {
			return report, err
		}
		if err := workspace.ValidateAttached(root, ctx, store, refs, meta, hasMeta); err != nil {
			return report, err
		}
	}
	if opts.DryRun {
		return report, nil
	}

	needsMetadataClear := false
	var deadPaths []string
	for _, f := range findings {
		switch f.Kind {
		case "missing-commit", "orphan-ref":
			if err := refs.CompareAndSet(f.RefPath, currentRefValue(refs, f.RefPath), ""); err != nil {
				return report, &jinerr.StoreError{Op: "drop-orphan-ref", Err: err}
			}
			report.OrphanRefsDropped = append(report.OrphanRefsDropped, f.RefPath)
		case "unreachable-metadata-layer":
			needsMetadataClear = true
		case "dead-staged-entry":
			deadPaths = append(deadPaths, f.Detail)
		case "orphaned-jinmerge":
			full := filepath.Join(root, jinmergePathFromDetail(f.Detail))
			if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
				return report, err
			}
			report.JinmergeRemoved = append(report.JinmergeRemoved, full)
		}
	}

	if needsMetadataClear {
		if err := workspace.ClearMetadata(metadataPath); err != nil {
			return report, err
		}
		report.MetadataCleared = true
	}

	if len(deadPaths) > 0 {
		dropDeadStagedEntries(root, idx)
		if err := idx.Persist(); err != nil {
			return report, err
		}
		report.StagedEntriesDropped = deadPaths
	}

	return report, nil
}

func currentRefValue(refs *objstore.RefStore, path string) string {
	v, ok, err := refs.Read(path)
	if err != nil || !ok {
		return ""
	}
	return v
}

// dropDeadStagedEntries rebuilds the index keeping only entries whose
// source file still exists on disk.
func dropDeadStagedEntries(root string, idx *staging.Index) {
	kept := make([]staging.Entry, 0, len(idx.List()))
	for _, e := range idx.List() {
		full := filepath.Join(root, filepath.FromSlash(e.Path))
		if _, err := os.Stat(full); err == nil {
			kept = append(kept, e)
		}
	}
	idx.Reset(kept)
}

func jinmergePathFromDetail(detail string) string {
	const prefix = "sidecar's referenced file is missing: "
	if len(detail) > len(prefix) {
		return detail[len(prefix):] + ".jinmerge"
	}
	return ""
}
