package repair

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// findOrphanedJinmerge walks root for ".jinmerge" sidecars whose referenced
// file no longer exists, per spec.md §4.I's ".jinmerge lifecycle" check.
func findOrphanedJinmerge(root string) ([]Finding, error) {
	var findings []Finding
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".jin" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".jinmerge") {
			return nil
		}
		referenced := strings.TrimSuffix(path, ".jinmerge")
		if _, err := os.Stat(referenced); err != nil {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			findings = append(findings, Finding{
				Kind:   "orphaned-jinmerge",
				Detail: "sidecar's referenced file is missing: " + rel,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}
