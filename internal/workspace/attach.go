package workspace

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/objstore"
)

// ValidateAttached implements spec.md §4.G's W4 invariant: before any
// destructive operation, verify the workspace is still what the store
// believes it to be, via three detection rules. A fresh workspace (no
// metadata) is never detached — it is simply empty.
func ValidateAttached(root string, ctx layer.Context, store *objstore.Store, refs *objstore.RefStore, meta *Metadata, hasMeta bool) error {
	if !hasMeta {
		return nil
	}

	// Rule 1: external modification.
	for path, wantHash := range meta.Files {
		full := filepath.Join(root, filepath.FromSlash(path))
		data, err := os.ReadFile(full)
		if err != nil {
			return &jinerr.DetachedWorkspaceError{
				Reason:       fmt.Sprintf("file %q is missing or unreadable", path),
				RecoveryHint: "run 'jin apply --force' to re-materialize, or 'jin repair' to investigate",
			}
		}
		sum := sha256.Sum256(data)
		gotHash := fmt.Sprintf("%x", sum[:])
		if gotHash != wantHash {
			return &jinerr.DetachedWorkspaceError{
				Reason:       fmt.Sprintf("file %q was modified outside jin", path),
				RecoveryHint: "run 'jin add' to stage the change, or 'jin apply --force' to discard it",
			}
		}
	}

	// Rule 2: missing commits.
	for _, refPath := range meta.AppliedLayers {
		commitID, ok, err := refs.Read(refPath)
		if err != nil {
			return &jinerr.StoreError{Op: "read-ref", Err: err}
		}
		if !ok {
			return &jinerr.DetachedWorkspaceError{
				Reason:       fmt.Sprintf("layer ref %q referenced by metadata no longer exists", refPath),
				RecoveryHint: "run 'jin repair --check' to see what changed",
			}
		}
		commit, err := store.ReadCommit(commitID)
		if err != nil {
			return &jinerr.DetachedWorkspaceError{
				Reason:       fmt.Sprintf("commit %q for layer %q is missing", commitID, refPath),
				RecoveryHint: "run 'jin repair --check' to see what changed",
			}
		}
		if !store.Has(commit.Tree) {
			return &jinerr.DetachedWorkspaceError{
				Reason:       fmt.Sprintf("tree for layer %q's commit is missing", refPath),
				RecoveryHint: "run 'jin repair --check' to see what changed",
			}
		}
	}

	// Rule 3: invalid context.
	if ctx.Mode != "" {
		modePath, _ := (layer.Layer{Kind: layer.ModeBase, Mode: ctx.Mode}).RefPath()
		if _, ok, err := refs.Read(modePath); err != nil {
			return &jinerr.StoreError{Op: "read-ref", Err: err}
		} else if !ok {
			return &jinerr.DetachedWorkspaceError{
				Reason:       fmt.Sprintf("active mode %q no longer exists", ctx.Mode),
				RecoveryHint: "run 'jin mode unset' or switch to a valid mode",
			}
		}
	}
	if ctx.Scope != "" {
		scopePath, _ := (layer.Layer{Kind: layer.ScopeBase, Scope: ctx.Scope}).RefPath()
		if _, ok, err := refs.Read(scopePath); err != nil {
			return &jinerr.StoreError{Op: "read-ref", Err: err}
		} else if !ok {
			return &jinerr.DetachedWorkspaceError{
				Reason:       fmt.Sprintf("active scope %q no longer exists", ctx.Scope),
				RecoveryHint: "run 'jin scope unset' or switch to a valid scope",
			}
		}
	}

	return nil
}

// ClearMetadataOnContextSwitch implements spec.md §4.G's "automatic
// metadata clearing on context switch": if the previous metadata
// mentions the mode/scope being left, the metadata is dropped so Rule 3
// doesn't surface as a user-visible detachment on the very next command.
func ClearMetadataOnContextSwitch(metadataPath string, meta *Metadata, hasMeta bool, oldMode, oldScope string) (cleared bool, err error) {
	if !hasMeta {
		return false, nil
	}
	for _, refPath := range meta.AppliedLayers {
		if oldMode != "" && refMentionsMode(refPath, oldMode) {
			return true, ClearMetadata(metadataPath)
		}
		if oldScope != "" && refMentionsScope(refPath, oldScope) {
			return true, ClearMetadata(metadataPath)
		}
	}
	return false, nil
}

func refMentionsMode(refPath, mode string) bool {
	return strings.Contains(refPath, "mode/"+mode)
}

func refMentionsScope(refPath, scope string) bool {
	return strings.Contains(refPath, "scope/"+scope)
}
