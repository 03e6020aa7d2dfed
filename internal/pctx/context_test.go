package pctx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jinconfig/jin/internal/layer"
)

func TestLoadMissingFileReturnsZeroContext(t *testing.T) {
	ctx, err := Load(filepath.Join(t.TempDir(), "context"))
	if err != nil {
		t.Fatal(err)
	}
	if ctx != (layer.Context{}) {
		t.Fatalf("got %+v, want zero-value Context", ctx)
	}
}

func TestSaveLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context")
	ctx := layer.Context{Mode: "work", Scope: "team-a", Project: "acme"}

	if err := Save(path, ctx, 100); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != ctx {
		t.Fatalf("got %+v, want %+v", got, ctx)
	}
}

func TestSaveOmitsEmptyFieldsInYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context")
	if err := Save(path, layer.Context{Mode: "work"}, 1); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); !strings.Contains(got, "mode: work") || strings.Contains(got, "scope:") || strings.Contains(got, "project:") {
		t.Fatalf("got %q, want only mode set", got)
	}
}

func TestClearRemovesFileAndIsNoOpWhenAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context")
	if err := Save(path, layer.Context{Mode: "work"}, 1); err != nil {
		t.Fatal(err)
	}
	if err := Clear(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected context file to be removed")
	}
	if err := Clear(path); err != nil {
		t.Fatalf("expected clearing an already-absent file to be a no-op, got %v", err)
	}
}
