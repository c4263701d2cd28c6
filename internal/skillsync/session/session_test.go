package session

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/domain"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/errors"
)

func records(ids ...string) []domain.BundleRecord {
	out := make([]domain.BundleRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.BundleRecord{ID: id, DisplayName: id, SourceDir: "/src/" + id, IsSystem: domain.IsSystemID(id)})
	}
	return out
}

func item(id string, action domain.Action) domain.PlanItem {
	return domain.PlanItem{BundleID: id, Action: action, SourceDir: "/src/" + id, DestDir: "/dest/" + id}
}

func ok(it domain.PlanItem) Applied {
	status := domain.StatusCreated
	if it.Action == domain.ActionReplace {
		status = domain.StatusReplaced
	}
	return Applied{Entry: domain.ExecutionEntry{BundleID: it.BundleID, Status: status, DestDir: it.DestDir}}
}

func failed(it domain.PlanItem) Applied {
	return Applied{Entry: domain.ExecutionEntry{BundleID: it.BundleID, Status: domain.StatusFailed, DestDir: it.DestDir, Error: "disk full"}}
}

var codex = domain.Target{Kind: domain.TargetCodex}

// loaded returns a session sitting in SelectBundles.
func loaded(t *testing.T, opts Options, ids ...string) *Session {
	t.Helper()
	s := New(opts)
	assert.Equal(t, LoadSource{}, s.Start())
	assert.Nil(t, s.Handle(Loaded{Bundles: records(ids...)}))
	require.Equal(t, StageSelectBundles, s.Stage())
	return s
}

// previewing drives a session to PlanPreview with the given plan.
func previewing(t *testing.T, opts Options, items ...domain.PlanItem) *Session {
	t.Helper()
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.BundleID)
	}
	opts.Target = &codex
	s := loaded(t, opts, ids...)
	s.Handle(ToggleAll{})
	eff := s.Handle(Confirm{})
	require.IsType(t, BuildPlan{}, eff)
	s.Handle(PlanReady{DestRoot: "/dest", Plan: items})
	require.Equal(t, StagePlanPreview, s.Stage())
	require.False(t, s.Preview().Pending)
	return s
}

func TestLoading(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := loaded(t, Options{}, "alpha", "beta")
		assert.Len(t, s.Selection().Bundles, 2)
		assert.Equal(t, 0, s.Selection().Count())
	})

	t.Run("failure is fatal", func(t *testing.T) {
		s := New(Options{})
		loadErr := errors.New(errors.ErrSourceUnavailable, "could not retrieve repo")
		assert.Nil(t, s.Handle(LoadFailed{Err: loadErr}))
		assert.Equal(t, StageFatal, s.Stage())
		assert.Equal(t, loadErr, s.Err())
	})

	t.Run("empty discovery is fatal", func(t *testing.T) {
		s := New(Options{})
		s.Handle(Loaded{})
		assert.Equal(t, StageFatal, s.Stage())
		assert.True(t, errors.HasCode(s.Err(), errors.ErrNoBundlesFound))
	})

	t.Run("decisions ignored", func(t *testing.T) {
		s := New(Options{})
		for _, ev := range []Event{Confirm{}, Toggle{ID: "alpha"}, Back{}, Quit{}, Acknowledge{}, Approve{}} {
			assert.Nil(t, s.Handle(ev))
			assert.Equal(t, StageLoading, s.Stage())
		}
		assert.False(t, s.AcceptsInput())
		assert.False(t, s.Finished())
	})

	t.Run("preselection", func(t *testing.T) {
		s := loaded(t, Options{Preselect: []string{"beta", "unknown"}}, "alpha", "beta")
		assert.Equal(t, 1, s.Selection().Count())
		assert.True(t, s.Selection().IsSelected("beta"))
	})
}

func TestSelectBundles(t *testing.T) {
	t.Run("confirm with nothing selected is a no-op", func(t *testing.T) {
		s := loaded(t, Options{}, "alpha")
		assert.Nil(t, s.Handle(Confirm{}))
		assert.Equal(t, StageSelectBundles, s.Stage())
	})

	t.Run("toggle", func(t *testing.T) {
		s := loaded(t, Options{}, "alpha", "beta")
		s.Handle(Toggle{ID: "beta"})
		s.Handle(Toggle{ID: "ghost"})
		assert.Equal(t, []domain.BundleRecord{records("beta")[0]}, s.Selection().Selected())
		s.Handle(Toggle{ID: "beta"})
		assert.Equal(t, 0, s.Selection().Count())
	})

	t.Run("toggle all", func(t *testing.T) {
		s := loaded(t, Options{}, "alpha", "beta")
		s.Handle(Toggle{ID: "alpha"})
		s.Handle(ToggleAll{})
		assert.Equal(t, 2, s.Selection().Count())
		s.Handle(ToggleAll{})
		assert.Equal(t, 0, s.Selection().Count())
	})

	t.Run("selected keeps discovery order", func(t *testing.T) {
		s := loaded(t, Options{}, "alpha", "beta", "gamma")
		s.Handle(Toggle{ID: "gamma"})
		s.Handle(Toggle{ID: "alpha"})
		assert.Equal(t, records("alpha", "gamma"), s.Selection().Selected())
	})

	t.Run("without target goes to SelectTarget", func(t *testing.T) {
		s := loaded(t, Options{}, "alpha")
		s.Handle(Toggle{ID: "alpha"})
		assert.Nil(t, s.Handle(Confirm{}))
		assert.Equal(t, StageSelectTarget, s.Stage())
	})

	t.Run("with preselected target builds plan", func(t *testing.T) {
		s := loaded(t, Options{Target: &codex}, "alpha", "beta")
		s.Handle(Toggle{ID: "beta"})
		eff := s.Handle(Confirm{})
		assert.Equal(t, BuildPlan{Bundles: records("beta"), Target: codex}, eff)
		assert.Equal(t, StagePlanPreview, s.Stage())
		assert.True(t, s.Preview().Pending)
		assert.False(t, s.AcceptsInput())
	})

	t.Run("quit", func(t *testing.T) {
		s := loaded(t, Options{}, "alpha")
		assert.Equal(t, Exit{Code: ExitOK}, s.Handle(Quit{}))
		assert.True(t, s.Finished())
		assert.Nil(t, s.Handle(Toggle{ID: "alpha"}))
	})
}

func TestSelectTarget(t *testing.T) {
	s := loaded(t, Options{}, "alpha")
	s.Handle(Toggle{ID: "alpha"})
	s.Handle(Confirm{})

	s.Handle(Back{})
	assert.Equal(t, StageSelectBundles, s.Stage())
	assert.True(t, s.Selection().IsSelected("alpha"), "selection survives going back")

	s.Handle(Confirm{})
	custom := domain.Target{Kind: domain.TargetCustom, Path: "/tmp/out"}
	eff := s.Handle(PickTarget{Target: custom})
	assert.Equal(t, BuildPlan{Bundles: records("alpha"), Target: custom}, eff)
	assert.Equal(t, StagePlanPreview, s.Stage())

	s.Handle(PlanFailed{Err: errors.New(errors.ErrDestinationResolution, "HOME is not set")})
	assert.Equal(t, StageFatal, s.Stage())
	assert.True(t, errors.HasCode(s.Err(), errors.ErrDestinationResolution))
	assert.Equal(t, Exit{Code: ExitFailure}, s.Handle(Acknowledge{}))
}

func TestPlanPreview_Back(t *testing.T) {
	t.Run("to SelectTarget", func(t *testing.T) {
		s := loaded(t, Options{}, "alpha")
		s.Handle(Toggle{ID: "alpha"})
		s.Handle(Confirm{})
		s.Handle(PickTarget{Target: codex})

		// Ignored while the plan is pending.
		assert.Nil(t, s.Handle(Back{}))
		assert.Equal(t, StagePlanPreview, s.Stage())

		s.Handle(PlanReady{DestRoot: "/dest", Plan: []domain.PlanItem{item("alpha", domain.ActionCreate)}})
		s.Handle(Back{})
		assert.Equal(t, StageSelectTarget, s.Stage())
		assert.Nil(t, s.Preview())
	})

	t.Run("to SelectBundles when target preselected", func(t *testing.T) {
		s := previewing(t, Options{}, item("alpha", domain.ActionCreate))
		s.Handle(Back{})
		assert.Equal(t, StageSelectBundles, s.Stage())
	})
}

func TestPlanPreview_ConfirmWithoutReplacements(t *testing.T) {
	a, b := item("alpha", domain.ActionCreate), item("beta", domain.ActionCreate)
	s := previewing(t, Options{Interactive: true}, a, b)

	assert.Equal(t, ApplyItem{Item: a}, s.Handle(Confirm{}))
	assert.Equal(t, StageExecuting, s.Stage())
	assert.Nil(t, s.Confirmation())

	assert.Equal(t, ApplyItem{Item: b}, s.Handle(ok(a)))
	assert.Nil(t, s.Handle(ok(b)))
	assert.Equal(t, StageSummary, s.Stage())
	assert.Equal(t, domain.Summary{Created: 2, TotalSelected: 2, DestinationRoot: "/dest"}, *s.Summary())
	assert.Equal(t, Exit{Code: ExitOK}, s.Handle(Acknowledge{}))
}

func TestPlanPreview_NonInteractiveRunsReplacements(t *testing.T) {
	a, b := item("alpha", domain.ActionCreate), item("beta", domain.ActionReplace)
	s := previewing(t, Options{Interactive: false}, a, b)

	assert.Equal(t, ApplyItem{Item: a}, s.Handle(Confirm{}))
	assert.Equal(t, ApplyItem{Item: b}, s.Handle(ok(a)))
	s.Handle(ok(b))

	require.Equal(t, StageSummary, s.Stage())
	assert.Equal(t, 1, s.Summary().Created)
	assert.Equal(t, 1, s.Summary().Replaced)
}

func TestConfirmOverwrite(t *testing.T) {
	a := item("alpha", domain.ActionCreate)
	b := item("beta", domain.ActionReplace)
	c := item("gamma", domain.ActionReplace)
	d := item("delta", domain.ActionReplace)

	t.Run("approve and skip one at a time", func(t *testing.T) {
		s := previewing(t, Options{Interactive: true}, a, b, c)
		assert.Nil(t, s.Handle(Confirm{}))
		require.Equal(t, StageConfirmOverwrite, s.Stage())
		assert.Equal(t, []domain.PlanItem{b, c}, s.Confirmation().Queue)

		current, _ := s.Confirmation().Current()
		assert.Equal(t, b, current)

		// Unrelated decisions are ignored.
		assert.Nil(t, s.Handle(Toggle{ID: "alpha"}))
		assert.Nil(t, s.Handle(Back{}))
		assert.Equal(t, StageConfirmOverwrite, s.Stage())

		assert.Nil(t, s.Handle(Skip{}))
		assert.Equal(t, StageConfirmOverwrite, s.Stage())

		eff := s.Handle(Approve{})
		assert.Equal(t, StageExecuting, s.Stage())
		assert.Equal(t, ApplyItem{Item: a}, eff)
		assert.False(t, s.Confirmation().Approved("beta"))
		assert.True(t, s.Confirmation().Approved("gamma"))

		// beta was declined, so it is skipped without execution.
		assert.Equal(t, ApplyItem{Item: c}, s.Handle(ok(a)))
		assert.Nil(t, s.Handle(ok(c)))

		require.Equal(t, StageSummary, s.Stage())
		statuses := []domain.EntryStatus{}
		for _, e := range s.Execution().Log {
			statuses = append(statuses, e.Status)
		}
		assert.Equal(t, []domain.EntryStatus{domain.StatusCreated, domain.StatusSkipped, domain.StatusReplaced}, statuses)
		assert.Equal(t, domain.Summary{Created: 1, Replaced: 1, Skipped: 1, TotalSelected: 3, DestinationRoot: "/dest"}, *s.Summary())
	})

	t.Run("approve all remaining", func(t *testing.T) {
		s := previewing(t, Options{Interactive: true}, b, c, d)
		s.Handle(Confirm{})
		s.Handle(Skip{})
		eff := s.Handle(ApproveAll{})
		assert.Equal(t, StageExecuting, s.Stage())
		// beta skipped, gamma first to run.
		assert.Equal(t, ApplyItem{Item: c}, eff)
		assert.Equal(t, []domain.ExecutionEntry{{BundleID: "beta", Status: domain.StatusSkipped, DestDir: "/dest/beta"}}, s.Execution().Log)
	})

	t.Run("all skipped finishes without execution", func(t *testing.T) {
		s := previewing(t, Options{Interactive: true}, b)
		s.Handle(Confirm{})
		assert.Nil(t, s.Handle(Skip{}))
		require.Equal(t, StageSummary, s.Stage())
		assert.Equal(t, 1, s.Summary().Skipped)
	})

	t.Run("quit before execution exits cleanly", func(t *testing.T) {
		s := previewing(t, Options{Interactive: true}, b)
		s.Handle(Confirm{})
		assert.Equal(t, Exit{Code: ExitOK}, s.Handle(Quit{}))
	})
}

func TestExecution_StopsAtFirstFailure(t *testing.T) {
	items := []domain.PlanItem{
		item("one", domain.ActionCreate),
		item("two", domain.ActionCreate),
		item("three", domain.ActionCreate),
		item("four", domain.ActionCreate),
	}
	s := previewing(t, Options{}, items...)

	assert.Equal(t, ApplyItem{Item: items[0]}, s.Handle(Confirm{}))
	assert.Equal(t, ApplyItem{Item: items[1]}, s.Handle(ok(items[0])))

	// Decisions are ignored while executing.
	assert.Nil(t, s.Handle(Quit{}))
	assert.Nil(t, s.Handle(Approve{}))
	assert.False(t, s.AcceptsInput())
	// A result for an item that is not running is ignored.
	assert.Nil(t, s.Handle(ok(items[3])))

	assert.Nil(t, s.Handle(failed(items[1])))
	require.Equal(t, StageSummary, s.Stage())

	log := s.Execution().Log
	require.Len(t, log, 2)
	assert.Equal(t, "one", log[0].BundleID)
	assert.Equal(t, "two", log[1].BundleID)
	assert.Equal(t, "disk full", log[1].Error)
	assert.Equal(t, domain.Summary{Created: 1, Failed: 1, TotalSelected: 4, DestinationRoot: "/dest"}, *s.Summary())

	assert.Equal(t, Exit{Code: ExitFailure}, s.Handle(Acknowledge{}))
	assert.Equal(t, ExitFailure, s.ExitCode())
}

func TestCancel(t *testing.T) {
	a := item("alpha", domain.ActionReplace)

	stages := map[string]func(t *testing.T) *Session{
		"Loading": func(t *testing.T) *Session { return New(Options{}) },
		"SelectBundles": func(t *testing.T) *Session {
			return loaded(t, Options{}, "alpha")
		},
		"SelectTarget": func(t *testing.T) *Session {
			s := loaded(t, Options{}, "alpha")
			s.Handle(ToggleAll{})
			s.Handle(Confirm{})
			return s
		},
		"PlanPreview": func(t *testing.T) *Session {
			return previewing(t, Options{Interactive: true}, a)
		},
		"ConfirmOverwrite": func(t *testing.T) *Session {
			s := previewing(t, Options{Interactive: true}, a)
			s.Handle(Confirm{})
			return s
		},
		"Executing": func(t *testing.T) *Session {
			s := previewing(t, Options{}, a)
			s.Handle(Confirm{})
			return s
		},
	}

	for name, setup := range stages {
		t.Run(name, func(t *testing.T) {
			s := setup(t)
			require.Equal(t, name, s.Stage().String())
			assert.Equal(t, Exit{Code: ExitCancelled}, s.Handle(Cancel{}))
			assert.True(t, s.Finished())
			assert.Equal(t, ExitCancelled, s.ExitCode())
			// Repeated signals do nothing.
			assert.Nil(t, s.Handle(Cancel{}))
		})
	}

	t.Run("terminal stages exit with their own code", func(t *testing.T) {
		s := New(Options{})
		s.Handle(LoadFailed{Err: stderrors.New("boom")})
		assert.Equal(t, Exit{Code: ExitFailure}, s.Handle(Cancel{}))
	})
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "ConfirmOverwrite", StageConfirmOverwrite.String())
	assert.Equal(t, "Unknown", Stage(99).String())
	assert.True(t, StageSummary.Terminal())
	assert.True(t, StageFatal.Terminal())
	assert.False(t, StageExecuting.Terminal())
}
