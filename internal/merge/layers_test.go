package merge

import (
	"strings"
	"testing"
)

func TestFoldLayersAllAbsentIsDeleted(t *testing.T) {
	result, err := FoldLayers("settings.json", []LayerFile{
		{LayerRef: "layers/global", Present: false},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Deleted {
		t.Fatal("expected Deleted=true when no layer has the path")
	}
}

func TestFoldLayersStructuredDeepMerge(t *testing.T) {
	layers := []LayerFile{
		{LayerRef: "layers/global", Present: true, Content: []byte(`{"theme": "dark", "size": 12}`)},
		{LayerRef: "layers/project/acme", Present: true, Content: []byte(`{"size": 14}`)},
	}
	result, err := FoldLayers("settings.json", layers)
	if err != nil {
		t.Fatal(err)
	}
	if result.Deleted || result.HasConflicts {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.Contains(string(result.Content), `"theme"`) {
		t.Fatalf("expected merged content to retain theme: %s", result.Content)
	}
	if !strings.Contains(string(result.Content), `14`) {
		t.Fatalf("expected merged content to take project's size override: %s", result.Content)
	}
}

func TestFoldLayersStructuredNullDeletesPath(t *testing.T) {
	layers := []LayerFile{
		{LayerRef: "layers/global", Present: true, Content: []byte(`{"a": 1}`)},
		{LayerRef: "layers/project/acme", Present: true, Content: []byte(`null`)},
	}
	result, err := FoldLayers("settings.json", layers)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Deleted {
		t.Fatal("expected overlay null to delete the path entirely")
	}
}

func TestFoldLayersParseFailureFallsBackToLastWins(t *testing.T) {
	layers := []LayerFile{
		{LayerRef: "layers/global", Present: true, Content: []byte(`{"a": 1}`)},
		{LayerRef: "layers/project/acme", Present: true, Content: []byte(`not valid json`)},
	}
	result, err := FoldLayers("settings.json", layers)
	if err != nil {
		t.Fatal(err)
	}
	if string(result.Content) != "not valid json" {
		t.Fatalf("got %q, want last layer's raw content on parse failure", result.Content)
	}
}

func TestFoldLayersTextThreeWayMerge(t *testing.T) {
	layers := []LayerFile{
		{LayerRef: "layers/global", Present: true, Content: []byte("base line\nshared\n")},
		{LayerRef: "layers/local", Present: true, Content: []byte("ours line\nshared\n")},
		{LayerRef: "layers/project/acme", Present: true, Content: []byte("base line\ntheirs-shared\n")},
	}
	result, err := FoldLayers("notes.txt", layers)
	if err != nil {
		t.Fatal(err)
	}
	if !result.UsedTextMerge {
		t.Fatal("expected text merge path for a non-structured extension")
	}
}

func TestFoldLayersSingleLayerIsLastWins(t *testing.T) {
	layers := []LayerFile{
		{LayerRef: "layers/global", Present: true, Content: []byte("only content")},
	}
	result, err := FoldLayers("notes.txt", layers)
	if err != nil {
		t.Fatal(err)
	}
	if string(result.Content) != "only content" {
		t.Fatalf("got %q, want %q", result.Content, "only content")
	}
	if result.UsedTextMerge {
		t.Fatal("single present layer should not invoke text merge")
	}
}
