// Package jinmap implements the audit map ("jinmap"): a per-commit record
// of which files changed, where they came from, who made the change, and
// what context was active — spec.md §3's "Audit map" and §4.F step 6.
package jinmap

import (
	"encoding/json"
	"fmt"

	"github.com/jinconfig/jin/internal/objstore"
)

// FileChange records one file introduced or changed by a commit.
type FileChange struct {
	Path       string `json:"path"`
	SourcePath string `json:"source_path"`
	BlobHash   string `json:"blob_hash"`
}

// Record is one jinmap entry: everything the commit pipeline knows about
// a single layer commit's provenance.
type Record struct {
	CommitID string       `json:"commit_id"`
	Files    []FileChange `json:"files"`
	User     string       `json:"user"`
	Mode     string       `json:"mode,omitempty"`
	Scope    string       `json:"scope,omitempty"`
	Project  string       `json:"project,omitempty"`
}

// Write stores a Record as a blob in store and returns its hash. The
// commit pipeline keeps these blobs as separate objects and does not add
// a trailer to the commit message; AppendTrailer builds such a line for
// callers that want one.
func Write(store *objstore.Store, rec Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode jinmap record: %w", err)
	}
	return store.HashBlob(data)
}

// Read loads a Record by its blob hash.
func Read(store *objstore.Store, hash string) (Record, error) {
	data, err := store.ReadBlob(hash)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode jinmap record: %w", err)
	}
	return rec, nil
}

// TrailerKey is the key of the commit-message trailer line that points at
// a jinmap blob, e.g. "Jinmap: <hash>".
const TrailerKey = "Jinmap"

// AppendTrailer appends a jinmap trailer line to a commit message.
func AppendTrailer(message, jinmapHash string) string {
	return fmt.Sprintf("%s\n\n%s: %s", message, TrailerKey, jinmapHash)
}
