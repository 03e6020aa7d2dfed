package remote

import (
	"testing"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/layer"
	"github.com/jinconfig/jin/internal/objstore"
)

func commitLocal(t *testing.T, f remoteFixture, refPath, parent string, files map[string]string) string {
	t.Helper()
	var entries []objstore.TreeEntry
	for name, content := range files {
		hash, err := f.localStore.HashBlob([]byte(content))
		if err != nil {
			t.Fatal(err)
		}
		entries = append(entries, objstore.TreeEntry{Name: name, Kind: objstore.KindBlob, Hash: hash})
	}
	tree, err := f.localStore.BuildTree(entries)
	if err != nil {
		t.Fatal(err)
	}
	var parents []string
	if parent != "" {
		parents = []string{parent}
	}
	commit, err := f.localStore.CreateCommit(objstore.Commit{Tree: tree, Parents: parents, Author: "a", Timestamp: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.localRefs.CompareAndSet(refPath, parent, commit); err != nil {
		t.Fatal(err)
	}
	return commit
}

func TestPushSendsNewLocalCommitToEmptyRemote(t *testing.T) {
	f := newRemoteFixture(t)
	commit := commitLocal(t, f, "layers/global", "", map[string]string{"a.json": "{}"})

	result, err := Push(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{}, PushOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Updated) != 1 || result.Updated[0].New != commit {
		t.Fatalf("got %+v, want layers/global pushed as new", result.Updated)
	}

	gotCommit, ok, err := f.remoteRefs.Read("layers/global")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || gotCommit != commit {
		t.Fatalf("got %q, want remote ref updated to %q", gotCommit, commit)
	}
}

func TestPushIsNoOpWhenUpToDate(t *testing.T) {
	f := newRemoteFixture(t)
	commitLocal(t, f, "layers/global", "", map[string]string{"a.json": "{}"})
	if _, err := Push(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{}, PushOptions{}); err != nil {
		t.Fatal(err)
	}

	result, err := Push(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{}, PushOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Updated) != 0 || len(result.UpToDate) != 1 {
		t.Fatalf("got %+v, want a no-op second push", result)
	}
}

func TestPushOnlyMovesLayersThatActuallyChanged(t *testing.T) {
	f := newRemoteFixture(t)
	commitLocal(t, f, "layers/global", "", map[string]string{"a.json": "{}"})
	if _, err := Push(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{}, PushOptions{}); err != nil {
		t.Fatal(err)
	}

	// A brand-new layer with no remote counterpart yet should push
	// alongside an already-synced layer staying untouched.
	projectCommit := commitLocal(t, f, "layers/project/acme", "", map[string]string{"b.json": "{}"})

	result, err := Push(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{Project: "acme"}, PushOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Updated) != 1 || result.Updated[0].Path != "layers/project/acme" || result.Updated[0].New != projectCommit {
		t.Fatalf("got %+v, want only layers/project/acme pushed", result.Updated)
	}
	foundUpToDate := false
	for _, p := range result.UpToDate {
		if p == "layers/global" {
			foundUpToDate = true
		}
	}
	if !foundUpToDate {
		t.Fatalf("expected layers/global to remain up to date, got %+v", result.UpToDate)
	}
}

func TestPushRejectsDivergentHistoryWithoutForce(t *testing.T) {
	f := newRemoteFixture(t)
	base := commitLocal(t, f, "layers/global", "", map[string]string{"a.json": `{"v":1}`})
	if _, err := Push(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{}, PushOptions{}); err != nil {
		t.Fatal(err)
	}

	// Someone else pushes a divergent commit directly to the remote.
	theirCommit := buildCommit(t, f.remoteStore, base, "ignored by this test's tree shape", 2)
	mirrorObject(t, f.localStore, f.remoteStore, base)
	if err := f.remoteRefs.CompareAndSet("layers/global", base, theirCommit); err != nil {
		t.Fatal(err)
	}

	// Local moves on independently from the same base.
	commitLocal(t, f, "layers/global", base, map[string]string{"a.json": `{"v":2}`})

	_, err := Push(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{}, PushOptions{})
	if err == nil {
		t.Fatal("expected push to reject divergent history without --force")
	}
	if _, ok := err.(*jinerr.ConflictError); !ok {
		t.Fatalf("got %T, want *jinerr.ConflictError", err)
	}
}

func TestPushForceOverwritesDivergentRemote(t *testing.T) {
	f := newRemoteFixture(t)
	base := commitLocal(t, f, "layers/global", "", map[string]string{"a.json": `{"v":1}`})
	if _, err := Push(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{}, PushOptions{}); err != nil {
		t.Fatal(err)
	}

	theirCommit := buildCommit(t, f.remoteStore, base, "diverged remote content", 2)
	mirrorObject(t, f.localStore, f.remoteStore, base)
	if err := f.remoteRefs.CompareAndSet("layers/global", base, theirCommit); err != nil {
		t.Fatal(err)
	}

	ourCommit := commitLocal(t, f, "layers/global", base, map[string]string{"a.json": `{"v":2}`})

	result, err := Push(f.client, f.localStore, f.localRefs, testRemoteName, layer.Context{}, PushOptions{Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Updated) != 1 || result.Updated[0].New != ourCommit {
		t.Fatalf("got %+v, want forced push to land our commit", result.Updated)
	}
	gotRemote, ok, err := f.remoteRefs.Read("layers/global")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || gotRemote != ourCommit {
		t.Fatalf("got %q, want remote overwritten to %q", gotRemote, ourCommit)
	}
}
