package source

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/errors"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/logging"
)

// cloneFunc clones req into dir, which does not exist yet.
type cloneFunc func(ctx context.Context, req Request, dir string) error

// GitProvider shallow-clones remote repositories with go-git.
type GitProvider struct {
	// TempDir is the parent for clone directories; empty means os.TempDir.
	TempDir string

	clone  cloneFunc
	logger zerolog.Logger
}

// NewGitProvider returns a provider backed by go-git.
func NewGitProvider() *GitProvider {
	return &GitProvider{clone: plainClone, logger: logging.GetLogger("source")}
}

func (p *GitProvider) Retrieve(ctx context.Context, req Request) (*Source, error) {
	return retrieve(ctx, p.logger, p.TempDir, req, p.clone)
}

// plainClone tries the revision as a branch, then as a tag. An empty
// revision clones the remote HEAD.
func plainClone(ctx context.Context, req Request, dir string) error {
	refs := []plumbing.ReferenceName{""}
	if req.Revision != "" {
		refs = []plumbing.ReferenceName{
			plumbing.NewBranchReferenceName(req.Revision),
			plumbing.NewTagReferenceName(req.Revision),
		}
	}

	var firstErr error
	for _, ref := range refs {
		_, err := git.PlainCloneContext(ctx, dir, false, cloneOptions(req, ref))
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return rmErr
		}
	}
	return firstErr
}

// cloneOptions fetches a single commit of one ref and no tags, matching the
// git CLI backend's arguments.
func cloneOptions(req Request, ref plumbing.ReferenceName) *git.CloneOptions {
	return &git.CloneOptions{
		URL:           req.Locator,
		ReferenceName: ref,
		Depth:         1,
		SingleBranch:  true,
		Tags:          git.NoTags,
	}
}

// retrieve runs clone into a fresh temporary directory and checks the
// requested sub-path. The temporary directory is removed on every failure
// and by the returned Source's Release.
func retrieve(ctx context.Context, logger zerolog.Logger, tempDir string, req Request, clone cloneFunc) (*Source, error) {
	if err := requireLocator(req); err != nil {
		return nil, err
	}

	done := logging.LogOperationStart(logger.With().Str("locator", req.Locator).Str("revision", req.Revision).Logger(), "clone")
	defer done()

	base, err := os.MkdirTemp(tempDir, "skill-sync-")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrSourceUnavailable, "could not create clone directory")
	}
	release := func() {
		if err := os.RemoveAll(base); err != nil {
			logger.Warn().Err(err).Str("dir", base).Msg("Failed to remove clone directory")
			return
		}
		logger.Debug().Str("dir", base).Msg("Removed clone directory")
	}

	repoDir := filepath.Join(base, "repo")
	if err := clone(ctx, req, repoDir); err != nil {
		release()
		return nil, errors.Wrapf(err, errors.ErrSourceUnavailable, "could not retrieve %s", req.Locator).
			WithDetail("revision", req.Revision)
	}

	root, err := subDir(repoDir, req.SubPath)
	if err != nil {
		release()
		return nil, err
	}

	logger.Info().Str("root", root).Msg("Source retrieved")
	return NewSource(root, release), nil
}
