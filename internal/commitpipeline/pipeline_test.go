package commitpipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/objstore"
	"github.com/jinconfig/jin/internal/staging"
)

type pipelineFixture struct {
	store *objstore.Store
	refs  *objstore.RefStore
	idx   *staging.Index
}

func newPipelineFixture(t *testing.T) pipelineFixture {
	t.Helper()
	dir, err := os.MkdirTemp("", "jin-pipeline-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := objstore.Open(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatal(err)
	}
	refs, err := objstore.OpenRefStore(filepath.Join(dir, "refs"))
	if err != nil {
		t.Fatal(err)
	}
	idx, err := staging.Open(filepath.Join(dir, "staging"))
	if err != nil {
		t.Fatal(err)
	}
	return pipelineFixture{store: store, refs: refs, idx: idx}
}

func TestRunRejectsEmptyStaging(t *testing.T) {
	f := newPipelineFixture(t)
	_, err := Run(f.store, f.refs, f.idx, Options{Message: "msg", Author: "a"})
	if err == nil {
		t.Fatal("expected error committing with an empty staging index")
	}
}

func TestRunRejectsEmptyMessage(t *testing.T) {
	f := newPipelineFixture(t)
	if err := f.idx.Add("a.json", layer.Layer{Kind: layer.GlobalBase}, []byte("{}"), 1); err != nil {
		t.Fatal(err)
	}
	_, err := Run(f.store, f.refs, f.idx, Options{Author: "a"})
	if err == nil {
		t.Fatal("expected error committing with an empty message")
	}
}

func TestRunCreatesCommitAndClearsStaging(t *testing.T) {
	f := newPipelineFixture(t)
	l := layer.Layer{Kind: layer.GlobalBase}
	content := []byte(`{"a":1}`)
	if err := f.idx.Add("settings.json", l, content, 1); err != nil {
		t.Fatal(err)
	}
	// Write the blob the staging entry refers to, as the real CLI Add flow does.
	if _, err := f.store.HashBlob(content); err != nil {
		t.Fatal(err)
	}

	result, err := Run(f.store, f.refs, f.idx, Options{Message: "add settings", Author: "Ada <ada@example.com>", Now: 100})
	if err != nil {
		t.Fatal(err)
	}
	commitHash, ok := result.LayerCommits["layers/global"]
	if !ok {
		t.Fatalf("expected a commit for layers/global, got %+v", result.LayerCommits)
	}

	refHash, refOK, err := f.refs.Read("layers/global")
	if err != nil {
		t.Fatal(err)
	}
	if !refOK || refHash != commitHash {
		t.Fatalf("expected layers/global ref to point at the new commit, got %q", refHash)
	}

	commit, err := f.store.ReadCommit(commitHash)
	if err != nil {
		t.Fatal(err)
	}
	if commit.Message != "add settings" || commit.Author != "Ada <ada@example.com>" {
		t.Fatalf("unexpected commit: %+v", commit)
	}

	entries, err := f.store.ReadTree(commit.Tree)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "settings.json" {
		t.Fatalf("got tree entries %+v, want settings.json", entries)
	}

	if len(f.idx.List()) != 0 {
		t.Fatal("expected staging index to be cleared after a successful commit")
	}
}

func TestRunGroupsEntriesByLayerAndChainsParents(t *testing.T) {
	f := newPipelineFixture(t)
	globalContent := []byte(`{"g":1}`)
	projectContent := []byte(`{"p":1}`)

	if err := f.idx.Add("a.json", layer.Layer{Kind: layer.GlobalBase}, globalContent, 1); err != nil {
		t.Fatal(err)
	}
	if err := f.idx.Add("b.json", layer.Layer{Kind: layer.ProjectBase, Project: "acme"}, projectContent, 1); err != nil {
		t.Fatal(err)
	}
	f.store.HashBlob(globalContent)
	f.store.HashBlob(projectContent)

	result, err := Run(f.store, f.refs, f.idx, Options{Message: "first", Author: "a", Context: layer.Context{Project: "acme"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.LayerCommits) != 2 {
		t.Fatalf("got %d layer commits, want 2", len(result.LayerCommits))
	}

	// Commit again to the same global layer; the new commit must chain to
	// the previous one as its parent and preserve the prior entry.
	extra := []byte(`{"extra":1}`)
	f.store.HashBlob(extra)
	if err := f.idx.Add("c.json", layer.Layer{Kind: layer.GlobalBase}, extra, 2); err != nil {
		t.Fatal(err)
	}
	result2, err := Run(f.store, f.refs, f.idx, Options{Message: "second", Author: "a"})
	if err != nil {
		t.Fatal(err)
	}
	secondCommitHash := result2.LayerCommits["layers/global"]
	secondCommit, err := f.store.ReadCommit(secondCommitHash)
	if err != nil {
		t.Fatal(err)
	}
	if len(secondCommit.Parents) != 1 || secondCommit.Parents[0] != result.LayerCommits["layers/global"] {
		t.Fatalf("expected second commit to chain to first, got parents %+v", secondCommit.Parents)
	}

	entries, err := f.store.ReadTree(secondCommit.Tree)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected a.json to survive alongside c.json, got %+v", entries)
	}
}

func TestRunRejectsEntryWhoseContextNoLongerSatisfied(t *testing.T) {
	f := newPipelineFixture(t)
	l := layer.Layer{Kind: layer.ModeBase, Mode: "work"}
	if err := f.idx.Add("a.json", l, []byte("{}"), 1); err != nil {
		t.Fatal(err)
	}

	_, err := Run(f.store, f.refs, f.idx, Options{Message: "msg", Author: "a", Context: layer.Context{}})
	if err == nil {
		t.Fatal("expected error committing a mode-layer entry while no mode is active")
	}
}
