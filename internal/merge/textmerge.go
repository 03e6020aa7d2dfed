package merge

import (
	"bytes"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Conflict marker constants, unchanged in spirit from the teacher's
// internal/merge/conflict.go (same three-marker git-style convention).
const (
	ConflictMarkerStart     = "<<<<<<< ours"
	ConflictMarkerBase      = "||||||| base"
	ConflictMarkerSeparator = "======="
	ConflictMarkerEnd       = ">>>>>>> theirs"
)

// TextMergeResult is the outcome of a 3-way text merge.
type TextMergeResult struct {
	Content       string
	HasConflicts  bool
	ConflictCount int
}

// TextMerge performs spec.md §4.D's text 3-way merge: if two of
// base/ours/theirs are equal, return the third untouched. Otherwise
// attempt a patch-based merge via sergi/go-diff/diffmatchpatch (grounded
// on the teacher's performThreeWayMerge); if the patch can't apply
// cleanly, fall back to a line-by-line conflict-marked rendering
// (grounded on generateConflictMarkedText). Conflicts never fail the
// call; conflict count is the number of opening markers emitted.
func TextMerge(base, ours, theirs string) TextMergeResult {
	if ours == theirs {
		return TextMergeResult{Content: ours}
	}
	if base == ours {
		return TextMergeResult{Content: theirs}
	}
	if base == theirs {
		return TextMergeResult{Content: ours}
	}

	dmp := diffmatchpatch.New()
	diffBaseToOurs := dmp.DiffMain(base, ours, false)
	patchOurs := dmp.PatchMake(base, diffBaseToOurs)
	merged, applied := dmp.PatchApply(patchOurs, theirs)

	clean := true
	for _, ok := range applied {
		if !ok {
			clean = false
			break
		}
	}
	if clean {
		return TextMergeResult{Content: merged}
	}

	content, count := conflictMarkedText(base, ours, theirs)
	return TextMergeResult{Content: content, HasConflicts: true, ConflictCount: count}
}

func conflictMarkedText(base, ours, theirs string) (string, int) {
	baseLines := strings.Split(base, "\n")
	oursLinesReal := strings.Split(ours, "\n")
	theirsLines := strings.Split(theirs, "\n")

	var buf bytes.Buffer
	count := 0
	total := maxInt(len(baseLines), maxInt(len(oursLinesReal), len(theirsLines)))
	inConflict := false

	for i := 0; i < total; i++ {
		oursChanged := i < len(oursLinesReal) && (i >= len(baseLines) || baseLines[i] != oursLinesReal[i])
		theirsChanged := i < len(theirsLines) && (i >= len(baseLines) || baseLines[i] != theirsLines[i])

		switch {
		case oursChanged && theirsChanged:
			if !inConflict {
				buf.WriteString(ConflictMarkerStart + "\n")
				count++
				inConflict = true
			}
			if i < len(oursLinesReal) {
				buf.WriteString(oursLinesReal[i] + "\n")
			}
			atBoundary := i+1 >= len(oursLinesReal) ||
				(i+1 < len(baseLines) && i+1 < len(oursLinesReal) && baseLines[i+1] == oursLinesReal[i+1])
			if atBoundary {
				buf.WriteString(ConflictMarkerSeparator + "\n")
				if i < len(theirsLines) {
					buf.WriteString(theirsLines[i] + "\n")
				}
				buf.WriteString(ConflictMarkerEnd + "\n")
				inConflict = false
			}
		case oursChanged:
			if i < len(oursLinesReal) {
				buf.WriteString(oursLinesReal[i] + "\n")
			}
		case theirsChanged:
			if i < len(theirsLines) {
				buf.WriteString(theirsLines[i] + "\n")
			}
		default:
			if i < len(baseLines) {
				buf.WriteString(baseLines[i] + "\n")
			}
		}
	}
	return buf.String(), count
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
