// Package executor applies plan items to the filesystem, one at a time.
package executor

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/domain"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/errors"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/logging"
)

// Executor copies bundle trees into their destinations.
type Executor struct {
	fs     afero.Fs
	logger zerolog.Logger
}

// New returns an Executor operating on fsys
func New(fsys afero.Fs) *Executor {
	return &Executor{fs: fsys, logger: logging.GetLogger("executor")}
}

// Apply ensures the parent of item.DestDir exists, clears the destination
// for replacements, then copies the source tree over. Failures are reported
// in the returned entry, never as a panic or error.
func (e *Executor) Apply(item domain.PlanItem) domain.ExecutionEntry {
	done := logging.LogOperationStart(e.logger.With().Str("bundle", item.BundleID).Logger(), "apply")
	defer done()

	if err := e.apply(item); err != nil {
		e.logger.Error().Err(err).Str("bundle", item.BundleID).Str("dest", item.DestDir).Msg("Apply failed")
		return domain.ExecutionEntry{
			BundleID: item.BundleID,
			Status:   domain.StatusFailed,
			DestDir:  item.DestDir,
			Error:    err.Error(),
		}
	}

	status := domain.StatusCreated
	if item.Action == domain.ActionReplace {
		status = domain.StatusReplaced
	}
	e.logger.Info().Str("bundle", item.BundleID).Str("status", string(status)).Msg("Applied")
	return domain.ExecutionEntry{BundleID: item.BundleID, Status: status, DestDir: item.DestDir}
}

func (e *Executor) apply(item domain.PlanItem) error {
	parent := filepath.Dir(item.DestDir)
	if err := e.fs.MkdirAll(parent, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFilesystemOperation, "could not create %s", parent)
	}

	if item.Action == domain.ActionReplace {
		// RemoveAll treats a missing path as already clear.
		if err := e.fs.RemoveAll(item.DestDir); err != nil {
			return errors.Wrapf(err, errors.ErrFilesystemOperation, "could not remove %s", item.DestDir)
		}
	}

	if err := CopyTree(e.fs, item.SourceDir, item.DestDir); err != nil {
		return errors.Wrapf(err, errors.ErrFilesystemOperation, "could not copy %s to %s", item.SourceDir, item.DestDir)
	}
	return nil
}

// Skipped builds the entry for a replacement the operator declined.
func Skipped(item domain.PlanItem) domain.ExecutionEntry {
	return domain.ExecutionEntry{BundleID: item.BundleID, Status: domain.StatusSkipped, DestDir: item.DestDir}
}

type dirTimes struct {
	path    string
	modTime time.Time
}

// CopyTree copies src into dst recursively, overwriting existing files and
// keeping modification times. Symlinks are recreated when fsys supports them.
func CopyTree(fsys afero.Fs, src, dst string) error {
	var dirs []dirTimes

	err := afero.Walk(fsys, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			if err := fsys.MkdirAll(target, info.Mode().Perm()|0700); err != nil {
				return err
			}
			dirs = append(dirs, dirTimes{path: target, modTime: info.ModTime()})
			return nil
		case info.Mode()&os.ModeSymlink != 0:
			return copySymlink(fsys, path, target)
		default:
			return copyFile(fsys, path, target, info)
		}
	})
	if err != nil {
		return err
	}

	// Children are written after their parent, so restore parents last.
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := fsys.Chtimes(dirs[i].path, dirs[i].modTime, dirs[i].modTime); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(fsys afero.Fs, src, dst string, info os.FileInfo) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return fsys.Chtimes(dst, info.ModTime(), info.ModTime())
}

func copySymlink(fsys afero.Fs, src, dst string) error {
	reader, ok := fsys.(afero.LinkReader)
	if !ok {
		return &os.LinkError{Op: "readlink", Old: src, New: dst, Err: afero.ErrNoReadlink}
	}
	linker, ok := fsys.(afero.Linker)
	if !ok {
		return &os.LinkError{Op: "symlink", Old: src, New: dst, Err: afero.ErrNoSymlink}
	}
	link, err := reader.ReadlinkIfPossible(src)
	if err != nil {
		return err
	}
	if err := fsys.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return linker.SymlinkIfPossible(link, dst)
}
