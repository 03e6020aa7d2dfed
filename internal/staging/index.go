// Package staging implements jin's staging index: an ordered, per-layer
// list of pending file additions, persisted atomically. Grounded on the
// teacher's internal/staging/staging.go (StagingArea, AddFile,
// WriteIndex/readIndex's length-prefixed binary framing), generalized
// from a single flat path->hash map to per-(path,layer) routed entries,
// since jin stages to nine possible destinations instead of one index.
package staging

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jinconfig/jin/internal/layer"
)

// Entry is one pending file addition: spec.md §3's StagedEntry tuple.
type Entry struct {
	Path       string // workspace-relative path
	Layer      layer.Layer
	BlobHash   string // sha256 of file content (object not necessarily written yet)
	SourceHash string // same as BlobHash today; kept distinct per spec.md's naming
	Timestamp  int64
}

func layerKey(l layer.Layer) string {
	return fmt.Sprintf("%d/%s/%s/%s", l.Kind, l.Mode, l.Scope, l.Project)
}

// Index is the staging index for one workspace.
type Index struct {
	path    string
	entries []Entry
	byKey   map[string]int // (path + "\x00" + layerKey) -> index into entries
	dirty   bool
}

// Open loads the index from path if present; absence of the file means an
// empty index, per spec.md §4.E's load() contract.
func Open(path string) (*Index, error) {
	idx := &Index{path: path, byKey: make(map[string]int)}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

func entryKey(path string, l layer.Layer) string {
	return path + "\x00" + layerKey(l)
}

// Add records a staged file, replacing any existing entry for the same
// (path, layer) pair per spec.md §3's invariant. It does not touch the
// object store; blob-hash is computed now, the blob itself is written
// lazily by the commit pipeline (Open Question decision, see DESIGN.md).
func (idx *Index) Add(path string, l layer.Layer, content []byte, timestamp int64) error {
	sum := sha256.Sum256(content)
	hash := fmt.Sprintf("%x", sum[:])

	key := entryKey(path, l)
	entry := Entry{Path: path, Layer: l, BlobHash: hash, SourceHash: hash, Timestamp: timestamp}
	if i, ok := idx.byKey[key]; ok {
		idx.entries[i] = entry
	} else {
		idx.byKey[key] = len(idx.entries)
		idx.entries = append(idx.entries, entry)
	}
	idx.dirty = true
	return nil
}

// List returns the staged entries in insertion order.
func (idx *Index) List() []Entry {
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// IsDirty reports whether the index has unpersisted or uncommitted changes.
func (idx *Index) IsDirty() bool { return idx.dirty }

// MarkClean clears the dirty flag without touching entries. The commit
// pipeline does not call it; Clear resets the flag itself.
func (idx *Index) MarkClean() { idx.dirty = false }

// Reset replaces the index's entries in memory without persisting,
// letting a caller rebuild the set (e.g. dropping dead entries during
// repair) before an explicit Persist.
func (idx *Index) Reset(entries []Entry) {
	idx.entries = entries
	idx.byKey = make(map[string]int, len(entries))
	for i, e := range entries {
		idx.byKey[entryKey(e.Path, e.Layer)] = i
	}
	idx.dirty = true
}

// Clear replaces the index with an empty one and persists it, per
// spec.md §4.E's clear() operation.
func (idx *Index) Clear() error {
	idx.entries = nil
	idx.byKey = make(map[string]int)
	idx.dirty = false
	return idx.Persist()
}

// Persist writes the index via temp-file-and-rename so a crash mid-write
// never leaves a partially written index visible — the same guarantee
// the teacher's WriteIndex/readIndex pair provides for its flat index.
func (idx *Index) Persist() error {
	if err := os.MkdirAll(filepath.Dir(idx.path), 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	var buf []byte
	for _, e := range idx.entries {
		buf = appendLenPrefixed(buf, []byte(e.Path))
		kindBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(kindBuf, uint32(e.Layer.Kind))
		buf = append(buf, kindBuf...)
		buf = appendLenPrefixed(buf, []byte(e.Layer.Mode))
		buf = appendLenPrefixed(buf, []byte(e.Layer.Scope))
		buf = appendLenPrefixed(buf, []byte(e.Layer.Project))
		buf = appendLenPrefixed(buf, []byte(e.BlobHash))
		buf = appendLenPrefixed(buf, []byte(e.SourceHash))
		tsBuf := make([]byte, 8)
		binary.LittleEndian.PutUint64(tsBuf, uint64(e.Timestamp))
		buf = append(buf, tsBuf...)
	}

	tmp := idx.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write staging index: %w", err)
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize staging index: %w", err)
	}
	return nil
}

func (idx *Index) load() error {
	data, err := os.ReadFile(idx.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read staging index: %w", err)
	}

	offset := 0
	for offset < len(data) {
		path, n, err := readLenPrefixed(data, offset)
		if err != nil {
			return err
		}
		offset = n

		if offset+4 > len(data) {
			return fmt.Errorf("corrupt staging index: truncated layer kind")
		}
		kind := layer.Kind(binary.LittleEndian.Uint32(data[offset : offset+4]))
		offset += 4

		mode, n, err := readLenPrefixed(data, offset)
		if err != nil {
			return err
		}
		offset = n

		scope, n, err := readLenPrefixed(data, offset)
		if err != nil {
			return err
		}
		offset = n

		project, n, err := readLenPrefixed(data, offset)
		if err != nil {
			return err
		}
		offset = n

		blobHash, n, err := readLenPrefixed(data, offset)
		if err != nil {
			return err
		}
		offset = n

		sourceHash, n, err := readLenPrefixed(data, offset)
		if err != nil {
			return err
		}
		offset = n

		if offset+8 > len(data) {
			return fmt.Errorf("corrupt staging index: truncated timestamp")
		}
		ts := int64(binary.LittleEndian.Uint64(data[offset : offset+8]))
		offset += 8

		l := layer.Layer{Kind: kind, Mode: string(mode), Scope: string(scope), Project: string(project)}
		e := Entry{Path: string(path), Layer: l, BlobHash: string(blobHash), SourceHash: string(sourceHash), Timestamp: ts}
		idx.byKey[entryKey(e.Path, e.Layer)] = len(idx.entries)
		idx.entries = append(idx.entries, e)
	}
	return nil
}

func appendLenPrefixed(buf, data []byte) []byte {
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(data)))
	buf = append(buf, lenBuf...)
	buf = append(buf, data...)
	return buf
}

func readLenPrefixed(data []byte, offset int) ([]byte, int, error) {
	if offset+4 > len(data) {
		return nil, 0, io.ErrUnexpectedEOF
	}
	n := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if offset+n > len(data) {
		return nil, 0, io.ErrUnexpectedEOF
	}
	return data[offset : offset+n], offset + n, nil
}
