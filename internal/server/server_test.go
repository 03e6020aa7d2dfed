package server

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jinconfig/jin/internal/objstore"
)

func newTestServer(t *testing.T, tokens map[string]bool) (*httptest.Server, *objstore.Store, *objstore.RefStore) {
	t.Helper()
	dir, err := os.MkdirTemp("", "jin-server-*")
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

	s := NewServer(store, refs)
	s.Configure(ServerOptions{Tokens: tokens})
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, store, refs
}

func TestHandlePing(t *testing.T) {
	ts, _, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/jin/v1/ping")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
}

func TestHandleListRefsReturnsLayerRefsOnly(t *testing.T) {
	ts, _, refs := newTestServer(t, nil)
	if err := refs.CompareAndSet("layers/global", "", "hash1"); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/jin/v1/refs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out []struct {
		Path     string `json:"path"`
		CommitID string `json:"commit_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Path != "layers/global" || out[0].CommitID != "hash1" {
		t.Fatalf("got %+v, want one layers/global entry", out)
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	ts, _, _ := newTestServer(t, map[string]bool{"secret-token": true})
	resp, err := http.Get(ts.URL + "/jin/v1/ping")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", resp.StatusCode)
	}
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	ts, _, _ := newTestServer(t, map[string]bool{"secret-token": true})
	req, err := http.NewRequest("GET", ts.URL+"/jin/v1/ping", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
}

func TestHandleFetchObjectsExcludesHaves(t *testing.T) {
	ts, store, refs := newTestServer(t, nil)

	blobHash, err := store.HashBlob([]byte("content"))
	if err != nil {
		t.Fatal(err)
	}
	tree, err := store.BuildTree([]objstore.TreeEntry{{Name: "a.json", Kind: objstore.KindBlob, Hash: blobHash}})
	if err != nil {
		t.Fatal(err)
	}
	baseCommit, err := store.CreateCommit(objstore.Commit{Tree: tree, Author: "a", Timestamp: 1})
	if err != nil {
		t.Fatal(err)
	}
	newTree, err := store.BuildTree([]objstore.TreeEntry{{Name: "a.json", Kind: objstore.KindBlob, Hash: blobHash}, {Name: "b.json", Kind: objstore.KindBlob, Hash: mustBlob(t, store, "new content")}})
	if err != nil {
		t.Fatal(err)
	}
	headCommit, err := store.CreateCommit(objstore.Commit{Tree: newTree, Parents: []string{baseCommit}, Author: "a", Timestamp: 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := refs.CompareAndSet("layers/global", "", headCommit); err != nil {
		t.Fatal(err)
	}

	reqBody, _ := json.Marshal(map[string]interface{}{
		"want": []string{headCommit},
		"have": []string{baseCommit},
	})
	resp, err := http.Post(ts.URL+"/jin/v1/objects/fetch", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var objects map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&objects); err != nil {
		t.Fatal(err)
	}

	if _, has := objects[baseCommit]; has {
		t.Fatal("expected base commit (already-had) to be excluded from fetch response")
	}
	if _, has := objects[headCommit]; !has {
		t.Fatal("expected head commit to be included in fetch response")
	}
	if _, has := objects[newTree]; !has {
		t.Fatal("expected new tree to be included in fetch response")
	}
}

func TestHandlePushRefsAppliesObjectsAndRefUpdate(t *testing.T) {
	ts, store, refs := newTestServer(t, nil)

	srcDir, err := os.MkdirTemp("", "jin-push-src-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(srcDir)
	srcStore, err := objstore.Open(srcDir)
	if err != nil {
		t.Fatal(err)
	}
	blobHash, err := srcStore.HashBlob([]byte("pushed content"))
	if err != nil {
		t.Fatal(err)
	}
	tree, err := srcStore.BuildTree([]objstore.TreeEntry{{Name: "a.json", Kind: objstore.KindBlob, Hash: blobHash}})
	if err != nil {
		t.Fatal(err)
	}
	commit, err := srcStore.CreateCommit(objstore.Commit{Tree: tree, Author: "a", Timestamp: 1})
	if err != nil {
		t.Fatal(err)
	}

	objects := map[string]string{}
	for _, h := range []string{blobHash, tree, commit} {
		raw, err := srcStore.ExportRaw(h)
		if err != nil {
			t.Fatal(err)
		}
		objects[h] = hex.EncodeToString(raw)
	}

	reqBody, _ := json.Marshal(map[string]interface{}{
		"operation_id": "op-1",
		"objects":      objects,
		"updates":      []map[string]string{{"path": "layers/global", "expected": "", "new": commit}},
		"force":        false,
	})
	resp, err := http.Post(ts.URL+"/jin/v1/refs/push", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}

	if !store.Has(commit) || !store.Has(tree) || !store.Has(blobHash) {
		t.Fatal("expected pushed objects to be imported into the server's store")
	}
	gotCommit, ok, err := refs.Read("layers/global")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || gotCommit != commit {
		t.Fatalf("got %q, want ref updated to %q", gotCommit, commit)
	}
}

func TestHandlePushRefsRejectsStaleExpected(t *testing.T) {
	ts, _, refs := newTestServer(t, nil)
	if err := refs.CompareAndSet("layers/global", "", "current-hash"); err != nil {
		t.Fatal(err)
	}

	reqBody, _ := json.Marshal(map[string]interface{}{
		"operation_id": "op-1",
		"objects":      map[string]string{},
		"updates":      []map[string]string{{"path": "layers/global", "expected": "stale-hash", "new": "new-hash"}},
		"force":        false,
	})
	resp, err := http.Post(ts.URL+"/jin/v1/refs/push", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("got status %d, want 409", resp.StatusCode)
	}
}

func mustBlob(t *testing.T, store *objstore.Store, content string) string {
	t.Helper()
	h, err := store.HashBlob([]byte(content))
	if err != nil {
		t.Fatal(err)
	}
	return h
}
