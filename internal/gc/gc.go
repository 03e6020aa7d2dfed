// Package gc implements the optional unreachable-object collection
// spec.md §3 allows ("unreachable [objects] may be garbage-collected
// (but see §8 invariant S3)"): walk every object reachable from a ref,
// then delete anything in the store that isn't. Grounded on the
// teacher's internal/maintenance/gc.go (GarbageCollectOptions/GCStats
// shape, examined/removed/space-saved counters, dry-run and verbose
// flags), with the packfile-specific fields (AutoPack, Repack, PackAll)
// dropped since jin's object store (internal/objstore) has no packfile
// format to compact — every object is a loose, zlib-compressed file.
package gc

import (
	"os"
	"path/filepath"

	"github.com/jinconfig/jin/internal/objstore"
)

// Options controls one collection run.
type Options struct {
	DryRun  bool
	Verbose bool
}

// Stats reports what Collect found and (unless DryRun) removed.
type Stats struct {
	ObjectsExamined int
	ObjectsRemoved  []string // hashes
	SpaceSaved      int64
}

// Collect walks every ref under "layers/" and every per-remote mirror ref
// under "remotes/" to compute the reachable set (mirroring internal/
// server's fetch-side walk), then removes every on-disk object not in
// that set. Invariant S3 guarantees this never drops anything a ref still
// names; mirror refs must be included or a fetch followed by gc before
// the next pull would strip objects that fetch just imported.
func Collect(store *objstore.Store, refs *objstore.RefStore, opts Options) (Stats, error) {
	stats := Stats{}

	reachable := make(map[string]bool)
	layerRefs, err := refs.ListRefs("layers/")
	if err != nil {
		return stats, err
	}
	mirrorRefs, err := refs.ListRefs("remotes/")
	if err != nil {
		return stats, err
	}
	for _, e := range append(layerRefs, mirrorRefs...) {
		if err := walkReachable(store, e.CommitID, reachable); err != nil {
			return stats, err
		}
	}

	root := store.Root()
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		dir, name := filepath.Split(rel)
		shard := filepath.Clean(dir)
		if len(shard) != 2 || len(name) == 0 {
			return nil // not a sharded object file (e.g. stray tmp-* leftover)
		}
		hash := shard + name
		stats.ObjectsExamined++
		if reachable[hash] {
			return nil
		}
		info, statErr := d.Info()
		if statErr == nil {
			stats.SpaceSaved += info.Size()
		}
		stats.ObjectsRemoved = append(stats.ObjectsRemoved, hash)
		if !opts.DryRun {
			if rmErr := os.Remove(path); rmErr != nil {
				return rmErr
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	return stats, nil
}

func walkReachable(store *objstore.Store, commitHash string, seen map[string]bool) error {
	if commitHash == "" || seen[commitHash] {
		return nil
	}
	commit, err := store.ReadCommit(commitHash)
	if err != nil {
		return nil
	}
	seen[commitHash] = true
	if err := walkTree(store, commit.Tree, seen); err != nil {
		return err
	}
	for _, p := range commit.Parents {
		if err := walkReachable(store, p, seen); err != nil {
			return err
		}
	}
	return nil
}

func walkTree(store *objstore.Store, treeHash string, seen map[string]bool) error {
	if treeHash == "" || seen[treeHash] {
		return nil
	}
	seen[treeHash] = true
	entries, err := store.ReadTree(treeHash)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if seen[e.Hash] {
			continue
		}
		seen[e.Hash] = true
		if e.Kind == objstore.KindTree {
			if err := walkTree(store, e.Hash, seen); err != nil {
				return err
			}
		}
	}
	return nil
}
