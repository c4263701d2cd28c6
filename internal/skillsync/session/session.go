// Package session implements the sync orchestrator: a finite state machine
// that sequences operator decisions with background work.
//
// The machine never performs I/O itself. Handle consumes one Event, updates
// the stage and its payload, and returns the Effect (if any) the runner must
// perform next. Runners feed the effect's outcome back as another Event, so
// no two transitions ever run at once.
//
//	Loading -> SelectBundles -> [SelectTarget] -> PlanPreview
//	        -> [ConfirmOverwrite] -> Executing -> Summary
//
// Loading failures and destination failures end in Fatal. Cancel is honored
// everywhere and exits with ExitCancelled.
package session

import (
	"github.com/jduncan-rva/skill-sync/internal/skillsync/domain"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/errors"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/executor"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/plan"
)

// Stage is the current state of a session
type Stage int

const (
	StageLoading Stage = iota
	StageSelectBundles
	StageSelectTarget
	StagePlanPreview
	StageConfirmOverwrite
	StageExecuting
	StageSummary
	StageFatal
)

var stageNames = map[Stage]string{
	StageLoading:          "Loading",
	StageSelectBundles:    "SelectBundles",
	StageSelectTarget:     "SelectTarget",
	StagePlanPreview:      "PlanPreview",
	StageConfirmOverwrite: "ConfirmOverwrite",
	StageExecuting:        "Executing",
	StageSummary:          "Summary",
	StageFatal:            "Fatal",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether the stage only waits for acknowledgment.
func (s Stage) Terminal() bool {
	return s == StageSummary || s == StageFatal
}

// Process exit codes.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitCancelled = 130
)

// Options configures a session.
type Options struct {
	// Interactive asks before each replacement. When false every
	// replacement is approved.
	Interactive bool
	// Target, when set, skips the SelectTarget stage.
	Target *domain.Target
	// Preselect lists bundle ids selected as soon as loading finishes.
	Preselect []string
}

// Selection is the SelectBundles payload. It survives navigation back from
// later stages.
type Selection struct {
	Bundles  []domain.BundleRecord
	selected map[string]bool
}

func newSelection(bundles []domain.BundleRecord, preselect []string) *Selection {
	s := &Selection{Bundles: bundles, selected: make(map[string]bool)}
	for _, id := range preselect {
		if s.index(id) >= 0 {
			s.selected[id] = true
		}
	}
	return s
}

func (s *Selection) index(id string) int {
	for i, b := range s.Bundles {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// IsSelected reports whether id is selected
func (s *Selection) IsSelected(id string) bool {
	return s.selected[id]
}

// Count returns the number of selected bundles
func (s *Selection) Count() int {
	return len(s.selected)
}

// Selected returns the selected bundles in discovery order.
func (s *Selection) Selected() []domain.BundleRecord {
	out := make([]domain.BundleRecord, 0, len(s.selected))
	for _, b := range s.Bundles {
		if s.selected[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

func (s *Selection) toggle(id string) {
	if s.index(id) < 0 {
		return
	}
	if s.selected[id] {
		delete(s.selected, id)
		return
	}
	s.selected[id] = true
}

func (s *Selection) toggleAll() {
	if len(s.selected) == len(s.Bundles) {
		s.selected = make(map[string]bool)
		return
	}
	for _, b := range s.Bundles {
		s.selected[b.ID] = true
	}
}

// Preview is the PlanPreview payload.
type Preview struct {
	Target   domain.Target
	DestRoot string
	Plan     []domain.PlanItem
	// Pending is true while the plan is being built.
	Pending bool
}

// Confirmation is the ConfirmOverwrite payload: the replace items in plan
// order and a cursor over them.
type Confirmation struct {
	Queue    []domain.PlanItem
	Cursor   int
	approved map[string]bool
}

// Current returns the item awaiting a decision.
func (c *Confirmation) Current() (domain.PlanItem, bool) {
	if c.Cursor >= len(c.Queue) {
		return domain.PlanItem{}, false
	}
	return c.Queue[c.Cursor], true
}

// Approved reports whether the replacement of id was approved
func (c *Confirmation) Approved(id string) bool {
	return c.approved[id]
}

// Execution is the Executing payload.
type Execution struct {
	Log []domain.ExecutionEntry
	// Current is the item whose result is awaited.
	Current *domain.PlanItem

	next     int
	approved map[string]bool
}

// Session is the orchestrator state. It is owned by a single runner and is
// not safe for concurrent use.
type Session struct {
	opts Options

	stage     Stage
	selection *Selection
	preview   *Preview
	confirm   *Confirmation
	exec      *Execution
	summary   *domain.Summary
	err       error

	finished bool
	exitCode int
}

// New returns a session in StageLoading
func New(opts Options) *Session {
	return &Session{opts: opts, stage: StageLoading}
}

func (s *Session) Stage() Stage                { return s.stage }
func (s *Session) Selection() *Selection       { return s.selection }
func (s *Session) Preview() *Preview           { return s.preview }
func (s *Session) Confirmation() *Confirmation { return s.confirm }
func (s *Session) Execution() *Execution       { return s.exec }
func (s *Session) Summary() *domain.Summary    { return s.summary }
func (s *Session) Err() error                  { return s.err }
func (s *Session) Finished() bool              { return s.finished }
func (s *Session) ExitCode() int               { return s.exitCode }
func (s *Session) Interactive() bool           { return s.opts.Interactive }

// TargetPreselected reports whether configuration fixed the destination.
func (s *Session) TargetPreselected() bool { return s.opts.Target != nil }

// AcceptsInput reports whether operator decisions are currently honored.
func (s *Session) AcceptsInput() bool {
	switch s.stage {
	case StageLoading, StageExecuting:
		return false
	case StagePlanPreview:
		return s.preview != nil && !s.preview.Pending
	}
	return !s.finished
}

// Start returns the effect that begins loading.
func (s *Session) Start() Effect {
	return LoadSource{}
}

// Handle advances the machine by one event. Events that do not apply to the
// current stage are ignored.
func (s *Session) Handle(ev Event) Effect {
	if s.finished {
		return nil
	}
	if _, ok := ev.(Cancel); ok {
		if s.stage.Terminal() {
			return s.exit(s.terminalCode())
		}
		return s.exit(ExitCancelled)
	}

	switch s.stage {
	case StageLoading:
		return s.onLoading(ev)
	case StageSelectBundles:
		return s.onSelectBundles(ev)
	case StageSelectTarget:
		return s.onSelectTarget(ev)
	case StagePlanPreview:
		return s.onPlanPreview(ev)
	case StageConfirmOverwrite:
		return s.onConfirmOverwrite(ev)
	case StageExecuting:
		return s.onExecuting(ev)
	case StageSummary, StageFatal:
		switch ev.(type) {
		case Acknowledge, Quit:
			return s.exit(s.terminalCode())
		}
	}
	return nil
}

func (s *Session) onLoading(ev Event) Effect {
	switch e := ev.(type) {
	case Loaded:
		if len(e.Bundles) == 0 {
			s.fail(errors.New(errors.ErrNoBundlesFound, "no skills found in source"))
			return nil
		}
		s.selection = newSelection(e.Bundles, s.opts.Preselect)
		s.stage = StageSelectBundles
	case LoadFailed:
		s.fail(e.Err)
	}
	return nil
}

func (s *Session) onSelectBundles(ev Event) Effect {
	switch e := ev.(type) {
	case Toggle:
		s.selection.toggle(e.ID)
	case ToggleAll:
		s.selection.toggleAll()
	case Confirm:
		if s.selection.Count() == 0 {
			return nil
		}
		if s.opts.Target != nil {
			return s.enterPreview(*s.opts.Target)
		}
		s.stage = StageSelectTarget
	case Quit:
		return s.exit(ExitOK)
	}
	return nil
}

func (s *Session) onSelectTarget(ev Event) Effect {
	switch e := ev.(type) {
	case PickTarget:
		return s.enterPreview(e.Target)
	case Back:
		s.stage = StageSelectBundles
	case Quit:
		return s.exit(ExitOK)
	}
	return nil
}

func (s *Session) enterPreview(t domain.Target) Effect {
	s.stage = StagePlanPreview
	s.preview = &Preview{Target: t, Pending: true}
	return BuildPlan{Bundles: s.selection.Selected(), Target: t}
}

func (s *Session) onPlanPreview(ev Event) Effect {
	if s.preview.Pending {
		switch e := ev.(type) {
		case PlanReady:
			s.preview.DestRoot = e.DestRoot
			s.preview.Plan = e.Plan
			s.preview.Pending = false
		case PlanFailed:
			s.fail(e.Err)
		}
		return nil
	}

	switch ev.(type) {
	case Back:
		s.preview = nil
		if s.opts.Target != nil {
			s.stage = StageSelectBundles
		} else {
			s.stage = StageSelectTarget
		}
	case Confirm:
		if !s.opts.Interactive || plan.Replacements(s.preview.Plan) == 0 {
			return s.startExecution()
		}
		s.confirm = &Confirmation{approved: make(map[string]bool)}
		for _, item := range s.preview.Plan {
			if item.Action == domain.ActionReplace {
				s.confirm.Queue = append(s.confirm.Queue, item)
			}
		}
		s.stage = StageConfirmOverwrite
	case Quit:
		return s.exit(ExitOK)
	}
	return nil
}

func (s *Session) onConfirmOverwrite(ev Event) Effect {
	c := s.confirm
	switch ev.(type) {
	case Approve:
		if item, ok := c.Current(); ok {
			c.approved[item.BundleID] = true
		}
		c.Cursor++
	case Skip:
		c.Cursor++
	case ApproveAll:
		for ; c.Cursor < len(c.Queue); c.Cursor++ {
			c.approved[c.Queue[c.Cursor].BundleID] = true
		}
	case Quit:
		return s.exit(ExitOK)
	default:
		return nil
	}

	if c.Cursor >= len(c.Queue) {
		return s.startExecution()
	}
	return nil
}

func (s *Session) startExecution() Effect {
	s.stage = StageExecuting
	s.exec = &Execution{approved: make(map[string]bool)}
	for _, item := range s.preview.Plan {
		if item.Action != domain.ActionReplace {
			continue
		}
		if !s.opts.Interactive || s.confirm == nil || s.confirm.approved[item.BundleID] {
			s.exec.approved[item.BundleID] = true
		}
	}
	return s.advance()
}

// advance records skips for declined replacements until it reaches the next
// executable item. With none left the session moves to Summary.
func (s *Session) advance() Effect {
	items := s.preview.Plan
	for s.exec.next < len(items) {
		item := items[s.exec.next]
		s.exec.next++
		if item.Action == domain.ActionReplace && !s.exec.approved[item.BundleID] {
			s.exec.Log = append(s.exec.Log, executor.Skipped(item))
			continue
		}
		s.exec.Current = &item
		return ApplyItem{Item: item}
	}
	s.finishExecution()
	return nil
}

func (s *Session) onExecuting(ev Event) Effect {
	e, ok := ev.(Applied)
	if !ok || s.exec.Current == nil || e.Entry.BundleID != s.exec.Current.BundleID {
		return nil
	}
	s.exec.Current = nil
	s.exec.Log = append(s.exec.Log, e.Entry)
	if e.Entry.Status == domain.StatusFailed {
		s.finishExecution()
		return nil
	}
	return s.advance()
}

func (s *Session) finishExecution() {
	summary := domain.Summarize(s.exec.Log, s.selection.Count(), s.preview.DestRoot)
	s.summary = &summary
	s.stage = StageSummary
}

func (s *Session) fail(err error) {
	s.err = err
	s.stage = StageFatal
}

func (s *Session) terminalCode() int {
	if s.stage == StageFatal {
		return ExitFailure
	}
	if s.summary != nil && s.summary.Failed > 0 {
		return ExitFailure
	}
	return ExitOK
}

func (s *Session) exit(code int) Effect {
	s.finished = true
	s.exitCode = code
	return Exit{Code: code}
}
