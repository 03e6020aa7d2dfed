package staging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jinconfig/jin/internal/layer"
)

func tempIndexPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "jin-staging-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "staging")
}

func TestOpenOnMissingFileIsEmpty(t *testing.T) {
	idx, err := Open(tempIndexPath(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(idx.List()) != 0 {
		t.Fatalf("expected empty index, got %+v", idx.List())
	}
	if idx.IsDirty() {
		t.Fatal("expected a freshly opened, absent index to not be dirty")
	}
}

func TestAddReplacesSamePathAndLayer(t *testing.T) {
	idx, err := Open(tempIndexPath(t))
	if err != nil {
		t.Fatal(err)
	}
	l := layer.Layer{Kind: layer.ProjectBase, Project: "acme"}

	if err := idx.Add("settings.json", l, []byte("v1"), 100); err != nil {
		t.Fatal(err)
	}
	if err := idx.Add("settings.json", l, []byte("v2"), 200); err != nil {
		t.Fatal(err)
	}

	entries := idx.List()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (replace in place)", len(entries))
	}
	if entries[0].Timestamp != 200 {
		t.Fatalf("got timestamp %d, want 200 (latest Add wins)", entries[0].Timestamp)
	}
	if !idx.IsDirty() {
		t.Fatal("expected index to be dirty after Add")
	}
}

func TestAddSamePathDifferentLayersCreatesTwoEntries(t *testing.T) {
	idx, err := Open(tempIndexPath(t))
	if err != nil {
		t.Fatal(err)
	}
	globalLayer := layer.Layer{Kind: layer.GlobalBase}
	projectLayer := layer.Layer{Kind: layer.ProjectBase, Project: "acme"}

	if err := idx.Add("settings.json", globalLayer, []byte("g"), 1); err != nil {
		t.Fatal(err)
	}
	if err := idx.Add("settings.json", projectLayer, []byte("p"), 2); err != nil {
		t.Fatal(err)
	}

	if len(idx.List()) != 2 {
		t.Fatalf("got %d entries, want 2 (distinct layers for same path)", len(idx.List()))
	}
}

func TestPersistAndReopenRoundTrips(t *testing.T) {
	path := tempIndexPath(t)
	idx, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	l := layer.Layer{Kind: layer.ModeScopeProject, Mode: "work", Scope: "laptop", Project: "acme"}
	if err := idx.Add("nvim/init.lua", l, []byte("content"), 42); err != nil {
		t.Fatal(err)
	}
	if err := idx.Persist(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	entries := reopened.List()
	if len(entries) != 1 {
		t.Fatalf("got %d entries after reopen, want 1", len(entries))
	}
	e := entries[0]
	if e.Path != "nvim/init.lua" || e.Layer.Kind != layer.ModeScopeProject || e.Layer.Mode != "work" || e.Layer.Scope != "laptop" || e.Layer.Project != "acme" {
		t.Fatalf("round-tripped entry mismatch: %+v", e)
	}
	if e.Timestamp != 42 {
		t.Fatalf("got timestamp %d, want 42", e.Timestamp)
	}
	if e.BlobHash == "" || e.BlobHash != e.SourceHash {
		t.Fatalf("expected BlobHash == SourceHash, got %q / %q", e.BlobHash, e.SourceHash)
	}
}

func TestClearEmptiesAndPersists(t *testing.T) {
	path := tempIndexPath(t)
	idx, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add("a.json", layer.Layer{Kind: layer.GlobalBase}, []byte("x"), 1); err != nil {
		t.Fatal(err)
	}
	if err := idx.Persist(); err != nil {
		t.Fatal(err)
	}

	if err := idx.Clear(); err != nil {
		t.Fatal(err)
	}
	if len(idx.List()) != 0 {
		t.Fatal("expected Clear to empty the in-memory index")
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(reopened.List()) != 0 {
		t.Fatal("expected Clear to persist the empty index to disk")
	}
}

func TestResetReplacesEntriesAndMarksDirty(t *testing.T) {
	idx, err := Open(tempIndexPath(t))
	if err != nil {
		t.Fatal(err)
	}
	idx.MarkClean()
	l := layer.Layer{Kind: layer.GlobalBase}
	idx.Reset([]Entry{{Path: "a.json", Layer: l, BlobHash: "h1"}})

	if !idx.IsDirty() {
		t.Fatal("expected Reset to mark the index dirty")
	}
	if len(idx.List()) != 1 || idx.List()[0].Path != "a.json" {
		t.Fatalf("got %+v, want single a.json entry", idx.List())
	}
}
