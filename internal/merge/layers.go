package merge

import (
	"github.com/jinconfig/jin/internal/value"
	"github.com/jinconfig/jin/internal/value/codec"
)

// LayerFile is one layer's version of a single workspace-relative path,
// in ascending precedence order (lowest first). Content is nil if the
// layer does not contain this path at all.
type LayerFile struct {
	LayerRef string // the ref path this version came from, for diagnostics
	Content  []byte
	Present  bool
}

// FileMergeResult is what FoldLayers produces for one path.
type FileMergeResult struct {
	Content       []byte
	Deleted       bool // every layer's null-propagation removed the path
	HasConflicts  bool
	ConflictCount int
	UsedTextMerge bool
}

// FoldLayers implements spec.md §4.D's layer-wise orchestration for a
// single file path, given its per-layer versions from lowest to highest
// precedence:
//  1. Structured format: parse each present layer, fold low-to-high with
//     DeepMerge, serialize back. A parse failure on any layer falls back
//     to step 3.
//  2. Unstructured text where the two highest-precedence present layers
//     are non-empty and differ: 3-way text merge, using the
//     lowest-precedence present layer as the base. No commit-history
//     ancestor is looked up.
//  3. Otherwise: last-wins by precedence (the highest-precedence present
//     layer's bytes, verbatim).
func FoldLayers(path string, layers []LayerFile) (FileMergeResult, error) {
	present := presentOnly(layers)
	if len(present) == 0 {
		return FileMergeResult{Deleted: true}, nil
	}

	format := codec.DetectFormat(path)
	if format != codec.FormatText {
		if result, ok, err := structuredFold(format, present); err != nil {
			return FileMergeResult{}, err
		} else if ok {
			return result, nil
		}
		last := present[len(present)-1]
		return FileMergeResult{Content: last.Content}, nil
	}

	if len(present) >= 2 {
		base := present[0]
		ours := present[len(present)-2]
		theirs := present[len(present)-1]
		if ours.Content != nil && theirs.Content != nil && string(ours.Content) != string(theirs.Content) {
			tm := TextMerge(string(base.Content), string(ours.Content), string(theirs.Content))
			return FileMergeResult{
				Content:       []byte(tm.Content),
				HasConflicts:  tm.HasConflicts,
				ConflictCount: tm.ConflictCount,
				UsedTextMerge: true,
			}, nil
		}
	}

	last := present[len(present)-1]
	return FileMergeResult{Content: last.Content}, nil
}

func presentOnly(layers []LayerFile) []LayerFile {
	var out []LayerFile
	for _, l := range layers {
		if l.Present {
			out = append(out, l)
		}
	}
	return out
}

func structuredFold(format codec.Format, present []LayerFile) (FileMergeResult, bool, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return FileMergeResult{}, false, nil
	}

	var acc value.Value
	haveAcc := false
	for _, l := range present {
		v, err := c.Parse(l.Content)
		if err != nil {
			return FileMergeResult{}, false, nil // fall back to text/last-wins
		}
		if !haveAcc {
			acc = v
			haveAcc = true
			continue
		}
		acc = DeepMerge(acc, v)
	}
	if !haveAcc {
		return FileMergeResult{Deleted: true}, true, nil
	}
	if acc.IsNull() {
		return FileMergeResult{Deleted: true}, true, nil
	}

	out, err := c.Serialize(acc)
	if err != nil {
		return FileMergeResult{}, false, err
	}
	return FileMergeResult{Content: out}, true, nil
}
