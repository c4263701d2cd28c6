package source

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/logging"
)

// ExecProvider clones with the git binary on PATH.
type ExecProvider struct {
	TempDir string

	run    CommandRunner
	logger zerolog.Logger
}

// NewExecProvider returns a provider that clones through run.
func NewExecProvider(run CommandRunner) *ExecProvider {
	return &ExecProvider{run: run, logger: logging.GetLogger("source")}
}

func (p *ExecProvider) Retrieve(ctx context.Context, req Request) (*Source, error) {
	return retrieve(ctx, p.logger, p.TempDir, req, func(ctx context.Context, req Request, dir string) error {
		args, err := BuildCloneCommand(req.Locator, req.Revision, dir)
		if err != nil {
			return err
		}
		_, err = p.run(ctx, "git", args)
		return err
	})
}
