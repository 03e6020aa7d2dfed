package remote

import (
	"strings"
	"testing"
	"time"

	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/objstore"
)

func TestPullFastForwardsWhenLocalHasNoRef(t *testing.T) {
	f := newRemoteFixture(t)
	commit := seedRemoteLayer(t, f, "layers/global", map[string]string{"a.json": "{}"})

	result, err := Pull(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{}, time.Unix(100, 0), "tester")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.FastForwarded) != 1 || result.FastForwarded[0].New != commit {
		t.Fatalf("got %+v, want a fast-forward to the remote commit", result.FastForwarded)
	}
	if len(result.Conflicted) != 0 {
		t.Fatalf("expected no conflicts, got %+v", result.Conflicted)
	}
}

func TestPullIsNoOpWhenAlreadyUpToDate(t *testing.T) {
	f := newRemoteFixture(t)
	seedRemoteLayer(t, f, "layers/global", map[string]string{"a.json": "{}"})

	if _, err := Pull(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{}, time.Unix(1, 0), "tester"); err != nil {
		t.Fatal(err)
	}
	result, err := Pull(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{}, time.Unix(2, 0), "tester")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.UpToDate) != 1 || len(result.FastForwarded) != 0 || len(result.Merged) != 0 {
		t.Fatalf("expected second pull to be a no-op, got %+v", result)
	}
}

// buildCommit writes content as a blob+single-file tree in store and
// returns the resulting commit hash.
func buildCommit(t *testing.T, store *objstore.Store, parent, content string, ts int64) string {
	t.Helper()
	hash, err := store.HashBlob([]byte(content))
	if err != nil {
		t.Fatal(err)
	}
	tree, err := store.BuildTree([]objstore.TreeEntry{{Name: "a.txt", Kind: objstore.KindBlob, Hash: hash}})
	if err != nil {
		t.Fatal(err)
	}
	var parents []string
	if parent != "" {
		parents = []string{parent}
	}
	commit, err := store.CreateCommit(objstore.Commit{Tree: tree, Parents: parents, Author: "tester", Timestamp: ts})
	if err != nil {
		t.Fatal(err)
	}
	return commit
}

// mirrorObject copies hash from src into dst verbatim, so both sides share
// ancestry for a 3-way merge.
func mirrorObject(t *testing.T, src, dst *objstore.Store, hash string) {
	t.Helper()
	raw, err := src.ExportRaw(hash)
	if err != nil {
		t.Fatal(err)
	}
	if err := dst.ImportRaw(hash, raw); err != nil {
		t.Fatal(err)
	}
}

func TestPullMergesAndLeavesConflictMarkersOnDivergentEdits(t *testing.T) {
	f := newRemoteFixture(t)

	baseContent := "line1\nline2\nline3\n"
	baseCommit := buildCommit(t, f.localStore, "", baseContent, 1)
	if err := f.localRefs.CompareAndSet("layers/global", "", baseCommit); err != nil {
		t.Fatal(err)
	}

	// Mirror the shared base into the remote store/ref so both sides
	// descend from a common ancestor.
	baseCommitObj, err := f.localStore.ReadCommit(baseCommit)
	if err != nil {
		t.Fatal(err)
	}
	baseTreeEntries, err := f.localStore.ReadTree(baseCommitObj.Tree)
	if err != nil {
		t.Fatal(err)
	}
	mirrorObject(t, f.localStore, f.remoteStore, baseTreeEntries[0].Hash)
	mirrorObject(t, f.localStore, f.remoteStore, baseCommitObj.Tree)
	mirrorObject(t, f.localStore, f.remoteStore, baseCommit)
	if err := f.remoteRefs.CompareAndSet("layers/global", "", baseCommit); err != nil {
		t.Fatal(err)
	}

	localCommit := buildCommit(t, f.localStore, baseCommit, "line1\nLOCAL\nline3\n", 2)
	if err := f.localRefs.CompareAndSet("layers/global", baseCommit, localCommit); err != nil {
		t.Fatal(err)
	}

	remoteCommit := buildCommit(t, f.remoteStore, baseCommit, "line1\nREMOTE\nline3\n", 3)
	if err := f.remoteRefs.CompareAndSet("layers/global", baseCommit, remoteCommit); err != nil {
		t.Fatal(err)
	}

	result, err := Pull(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{}, time.Unix(4, 0), "tester")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Merged) != 1 {
		t.Fatalf("got %+v, want one merge commit", result.Merged)
	}
	if len(result.Conflicted) != 1 || result.Conflicted[0] != "layers/global" {
		t.Fatalf("got %+v, want layers/global flagged as conflicted", result.Conflicted)
	}

	mergedHash, ok, err := f.localRefs.Read("layers/global")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a merged ref to exist")
	}
	mergedCommit, err := f.localStore.ReadCommit(mergedHash)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := f.localStore.ReadTree(mergedCommit.Tree)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	content, err := f.localStore.ReadBlob(entries[0].Hash)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "<<<<<<<") {
		t.Fatalf("expected conflict markers in merged content, got %s", content)
	}
}
