// Package discovery finds skill bundles in a source tree.
package discovery

import (
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/domain"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/errors"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/logging"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/manifest"
)

const vcsDir = ".git"

// DiscoverSkills walks the tree rooted at root and returns the skill bundles
// it contains, non-system bundles first, then by id.
// A directory holding SKILL.md is a leaf: nothing beneath it is inspected.
// System bundles are dropped unless includeSystem is set.
func DiscoverSkills(fsys afero.Fs, root string, includeSystem bool) ([]domain.BundleRecord, error) {
	logger := logging.GetLogger("discovery")

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrNotFound, "invalid source root %s", root)
	}
	info, err := fsys.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return nil, errors.Newf(errors.ErrNotFound, "source root %s does not exist or is not a directory", absRoot).
			WithDetail("path", absRoot)
	}

	var skills []domain.BundleRecord
	stack := []string{absRoot}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if hasManifest(fsys, dir) {
			skill, err := buildRecord(fsys, absRoot, dir)
			if err != nil {
				return nil, err
			}
			if skill.IsSystem && !includeSystem {
				logger.Debug().Str("id", skill.ID).Msg("Skipping system skill")
				continue
			}
			skills = append(skills, skill)
			continue
		}

		entries, err := afero.ReadDir(fsys, dir)
		if err != nil {
			// Unreadable intermediate directories cannot hold bundles we could copy.
			logger.Warn().Err(err).Str("dir", dir).Msg("Skipping unreadable directory")
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() || entry.Name() == vcsDir {
				continue
			}
			stack = append(stack, filepath.Join(dir, entry.Name()))
		}
	}

	sortBundles(skills)
	logger.Debug().Int("count", len(skills)).Str("root", absRoot).Msg("Discovery finished")
	return skills, nil
}

func sortBundles(skills []domain.BundleRecord) {
	sort.SliceStable(skills, func(i, j int) bool {
		if skills[i].IsSystem != skills[j].IsSystem {
			return !skills[i].IsSystem
		}
		return skills[i].ID < skills[j].ID
	})
}

func buildRecord(fsys afero.Fs, root, dir string) (domain.BundleRecord, error) {
	manifestPath := filepath.Join(dir, domain.ManifestFile)
	if info, err := fsys.Stat(manifestPath); err == nil && info.IsDir() {
		return domain.BundleRecord{}, errors.Newf(errors.ErrManifestRead, "cannot read manifest %s: is a directory", manifestPath).
			WithDetail("path", manifestPath)
	}
	content, err := afero.ReadFile(fsys, manifestPath)
	if err != nil {
		return domain.BundleRecord{}, errors.Wrapf(err, errors.ErrManifestRead, "cannot read manifest %s", manifestPath).
			WithDetail("path", manifestPath)
	}

	id := bundleID(root, dir)
	md := manifest.Parse(string(content))

	name := md.Name
	if name == "" {
		name = filepath.Base(dir)
	}

	return domain.BundleRecord{
		ID:          id,
		DisplayName: name,
		Description: md.Description,
		SourceDir:   dir,
		IsSystem:    domain.IsSystemID(id),
	}, nil
}

// bundleID is dir relative to root with forward slashes. The root itself is
// identified by its base name.
func bundleID(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return filepath.Base(dir)
	}
	return path.Clean(filepath.ToSlash(rel))
}

func hasManifest(fsys afero.Fs, dir string) bool {
	_, err := fsys.Stat(filepath.Join(dir, domain.ManifestFile))
	return err == nil || !os.IsNotExist(err)
}
