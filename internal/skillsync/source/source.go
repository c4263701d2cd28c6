// Package source materializes a skills tree on the local filesystem.
//
// A Provider resolves a Request to a local directory and hands back a Source
// whose Release removes whatever temporary state the retrieval created.
// Release is idempotent. Retrieval failures carry ErrSourceUnavailable when
// the locator could not be reached and ErrSourcePathMissing when the tree was
// fetched but lacks the requested sub-path.
package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/errors"
)

// Backend selects how remote repositories are cloned.
type Backend string

const (
	BackendGoGit Backend = "go-git"
	BackendExec  Backend = "exec"
)

// Request names the tree to retrieve.
type Request struct {
	Locator  string
	Revision string
	SubPath  string
}

// Source is a retrieved tree.
type Source struct {
	Root string

	once    sync.Once
	release func()
}

// NewSource wraps root with a release callback. release may be nil.
func NewSource(root string, release func()) *Source {
	return &Source{Root: root, release: release}
}

// Release frees the source's temporary resources. Only the first call has
// any effect.
func (s *Source) Release() {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// Provider retrieves source trees.
type Provider interface {
	Retrieve(ctx context.Context, req Request) (*Source, error)
}

// ForLocator picks a provider: existing local directories are used in place,
// anything else is cloned with the requested backend.
func ForLocator(locator string, backend Backend) Provider {
	if _, ok := localDir(locator); ok {
		return LocalProvider{}
	}
	if backend == BackendExec {
		return NewExecProvider(ExecuteCommand)
	}
	return NewGitProvider()
}

// LocalProvider serves a directory that already exists on disk.
type LocalProvider struct{}

func (LocalProvider) Retrieve(ctx context.Context, req Request) (*Source, error) {
	dir, ok := localDir(req.Locator)
	if !ok {
		return nil, errors.Newf(errors.ErrSourceUnavailable, "%s is not a local directory", req.Locator)
	}
	root, err := subDir(dir, req.SubPath)
	if err != nil {
		return nil, err
	}
	return NewSource(root, nil), nil
}

func localDir(locator string) (string, bool) {
	path := strings.TrimPrefix(locator, "file://")
	if path == "" {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	return abs, true
}

// subDir resolves subPath inside root and checks it is a directory.
func subDir(root, subPath string) (string, error) {
	dir := filepath.Join(root, filepath.FromSlash(subPath))
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", errors.Newf(errors.ErrSourcePathMissing, "path %q not found in source", subPath).
			WithDetail("subPath", subPath)
	}
	return dir, nil
}

func requireLocator(req Request) error {
	if strings.TrimSpace(req.Locator) == "" {
		return errors.New(errors.ErrSourceUnavailable, "no source repository configured")
	}
	return nil
}
