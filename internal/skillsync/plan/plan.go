// Package plan diffs selected bundles against a destination root.
package plan

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/domain"
)

// Build returns one PlanItem per bundle, in input order. An item is a
// replace when anything already exists at its destination, otherwise a
// create. Nothing is written.
func Build(fsys afero.Fs, bundles []domain.BundleRecord, destRoot string) []domain.PlanItem {
	items := make([]domain.PlanItem, 0, len(bundles))
	for _, b := range bundles {
		dest := filepath.Join(destRoot, filepath.FromSlash(b.ID))
		action := domain.ActionCreate
		if exists(fsys, dest) {
			action = domain.ActionReplace
		}
		items = append(items, domain.PlanItem{
			BundleID:  b.ID,
			Action:    action,
			SourceDir: b.SourceDir,
			DestDir:   dest,
		})
	}
	return items
}

// Replacements counts the replace items in a plan.
func Replacements(items []domain.PlanItem) int {
	n := 0
	for _, item := range items {
		if item.Action == domain.ActionReplace {
			n++
		}
	}
	return n
}

// exists uses Lstat where available so a dangling symlink still counts.
func exists(fsys afero.Fs, path string) bool {
	if lst, ok := fsys.(afero.Lstater); ok {
		_, _, err := lst.LstatIfPossible(path)
		return err == nil
	}
	_, err := fsys.Stat(path)
	return err == nil
}
