package session

import "github.com/jduncan-rva/skill-sync/internal/skillsync/domain"

// Event is an input to the state machine: an operator decision or the
// completion of a background task.
type Event interface {
	event()
}

// Background completions.
type (
	// Loaded reports a successful retrieval and discovery.
	Loaded struct{ Bundles []domain.BundleRecord }
	// LoadFailed reports any failure while loading.
	LoadFailed struct{ Err error }
	// PlanReady carries the plan built for the chosen destination.
	PlanReady struct {
		DestRoot string
		Plan     []domain.PlanItem
	}
	// PlanFailed reports a destination resolution failure.
	PlanFailed struct{ Err error }
	// Applied carries the result of one executed item.
	Applied struct{ Entry domain.ExecutionEntry }
)

// Operator decisions.
type (
	Toggle     struct{ ID string }
	ToggleAll  struct{}
	Confirm    struct{}
	Back       struct{}
	PickTarget struct{ Target domain.Target }
	Approve    struct{}
	Skip       struct{}
	ApproveAll struct{}
	// Acknowledge ends a session sitting in Summary or Fatal.
	Acknowledge struct{}
	// Quit ends the session before execution starts.
	Quit struct{}
	// Cancel is honored from every stage and exits with ExitCancelled.
	Cancel struct{}
)

func (Loaded) event()      {}
func (LoadFailed) event()  {}
func (PlanReady) event()   {}
func (PlanFailed) event()  {}
func (Applied) event()     {}
func (Toggle) event()      {}
func (ToggleAll) event()   {}
func (Confirm) event()     {}
func (Back) event()        {}
func (PickTarget) event()  {}
func (Approve) event()     {}
func (Skip) event()        {}
func (ApproveAll) event()  {}
func (Acknowledge) event() {}
func (Quit) event()        {}
func (Cancel) event()      {}

// Effect is work a transition asks its runner to perform. Every effect
// except Exit completes by feeding exactly one Event back into Handle.
type Effect interface {
	effect()
}

type (
	// LoadSource retrieves the source and discovers bundles.
	LoadSource struct{}
	// BuildPlan resolves Target and diffs Bundles against it.
	BuildPlan struct {
		Bundles []domain.BundleRecord
		Target  domain.Target
	}
	// ApplyItem runs the executor for one plan item.
	ApplyItem struct{ Item domain.PlanItem }
	// Exit ends the session; the runner releases resources and stops.
	Exit struct{ Code int }
)

func (LoadSource) effect() {}
func (BuildPlan) effect()  {}
func (ApplyItem) effect()  {}
func (Exit) effect()       {}
