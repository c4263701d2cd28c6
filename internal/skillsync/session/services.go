package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/discovery"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/errors"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/executor"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/logging"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/plan"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/source"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/target"
)

// Finalizer releases the source's temporary resources exactly once, no
// matter how many times the session ends or when the source arrives.
type Finalizer struct {
	mu       sync.Mutex
	done     bool
	releases []func()
}

// Register adds a release callback. After Finalize it runs immediately.
func (f *Finalizer) Register(release func()) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		release()
		return
	}
	f.releases = append(f.releases, release)
	f.mu.Unlock()
}

// Finalize runs every registered callback. Later calls do nothing.
func (f *Finalizer) Finalize() {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	releases := f.releases
	f.releases = nil
	f.mu.Unlock()

	for _, release := range releases {
		release()
	}
}

// Services performs the background work effects ask for.
type Services struct {
	FS            afero.Fs
	Provider      source.Provider
	Request       source.Request
	IncludeSystem bool
	Env           target.Env
	Finalizer     *Finalizer

	// mu guards closed; inflight counts Perform calls still running.
	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup

	executor *executor.Executor
	logger   zerolog.Logger
}

// NewServices wires the collaborators used by Perform.
func NewServices(fsys afero.Fs, provider source.Provider, req source.Request, env target.Env, includeSystem bool) *Services {
	return &Services{
		FS:            fsys,
		Provider:      provider,
		Request:       req,
		IncludeSystem: includeSystem,
		Env:           env,
		Finalizer:     &Finalizer{},
		executor:      executor.New(fsys),
		logger:        logging.GetLogger("session"),
	}
}

// Perform runs eff and returns the event that reports its outcome. Exit
// and nil effects produce no event, and so does any effect started after
// Close.
func (svc *Services) Perform(ctx context.Context, eff Effect) Event {
	svc.mu.Lock()
	if svc.closed {
		svc.mu.Unlock()
		svc.logger.Debug().Str("effect", fmt.Sprintf("%T", eff)).Msg("Dropping effect after close")
		return nil
	}
	svc.inflight.Add(1)
	svc.mu.Unlock()
	defer svc.inflight.Done()

	switch e := eff.(type) {
	case LoadSource:
		return svc.load(ctx)
	case BuildPlan:
		return svc.buildPlan(e)
	case ApplyItem:
		return Applied{Entry: svc.executor.Apply(e.Item)}
	}
	return nil
}

// Close refuses new effects, waits for running ones to return, then
// releases the source. A source retrieved by a task that was still running
// is released too. Close may be called more than once.
func (svc *Services) Close() {
	svc.mu.Lock()
	svc.closed = true
	svc.mu.Unlock()

	svc.inflight.Wait()
	svc.Finalizer.Finalize()
}

func (svc *Services) load(ctx context.Context) Event {
	done := logging.LogOperationStart(svc.logger, "load")
	defer done()

	src, err := svc.Provider.Retrieve(ctx, svc.Request)
	if err != nil {
		svc.logger.Error().Err(err).Str("locator", svc.Request.Locator).Msg("Source retrieval failed")
		return LoadFailed{Err: err}
	}
	svc.Finalizer.Register(src.Release)

	bundles, err := discovery.DiscoverSkills(svc.FS, src.Root, svc.IncludeSystem)
	if err != nil {
		svc.logger.Error().Err(err).Str("root", src.Root).Msg("Discovery failed")
		return LoadFailed{Err: err}
	}
	if len(bundles) == 0 {
		return LoadFailed{Err: errors.Newf(errors.ErrNoBundlesFound, "no skills found in %s", svc.describeSource())}
	}

	svc.logger.Info().Int("count", len(bundles)).Msg("Skills discovered")
	return Loaded{Bundles: bundles}
}

func (svc *Services) buildPlan(e BuildPlan) Event {
	destRoot, err := target.Resolve(e.Target, svc.Env)
	if err != nil {
		svc.logger.Error().Err(err).Str("target", e.Target.String()).Msg("Destination resolution failed")
		return PlanFailed{Err: err}
	}
	items := plan.Build(svc.FS, e.Bundles, destRoot)
	svc.logger.Info().
		Str("dest", destRoot).
		Int("items", len(items)).
		Int("replacements", plan.Replacements(items)).
		Msg("Plan built")
	return PlanReady{DestRoot: destRoot, Plan: items}
}

func (svc *Services) describeSource() string {
	desc := svc.Request.Locator
	if svc.Request.SubPath != "" {
		desc += " (" + svc.Request.SubPath + ")"
	}
	return desc
}
