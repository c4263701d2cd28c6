package domain

import "strings"

// ManifestFile marks a directory as a skill bundle.
const ManifestFile = "SKILL.md"

// SystemNamespace is the reserved id prefix for system bundles.
const SystemNamespace = ".system"

// BundleRecord represents a discovered skill bundle
type BundleRecord struct {
	ID          string // source-relative, forward slashes
	DisplayName string
	Description string
	SourceDir   string // absolute
	IsSystem    bool
}

// IsSystemID reports whether id lives under the .system namespace.
func IsSystemID(id string) bool {
	return id == SystemNamespace || strings.HasPrefix(id, SystemNamespace+"/")
}

// Action is the filesystem action planned for one bundle
type Action string

const (
	ActionCreate  Action = "create"
	ActionReplace Action = "replace"
)

// PlanItem is one planned filesystem action.
type PlanItem struct {
	BundleID  string
	Action    Action
	SourceDir string
	DestDir   string
}

// EntryStatus represents the outcome of applying a plan item
type EntryStatus string

const (
	StatusCreated  EntryStatus = "created"
	StatusReplaced EntryStatus = "replaced"
	StatusSkipped  EntryStatus = "skipped"
	StatusFailed   EntryStatus = "failed"
)

// ExecutionEntry records the outcome of one PlanItem. Error is set iff
// Status is StatusFailed.
type ExecutionEntry struct {
	BundleID string
	Status   EntryStatus
	DestDir  string
	Error    string
}

// Summary holds the counts of an execution log
type Summary struct {
	Created         int
	Replaced        int
	Skipped         int
	Failed          int
	TotalSelected   int
	DestinationRoot string
}

// Summarize aggregates an execution log.
func Summarize(log []ExecutionEntry, totalSelected int, destRoot string) Summary {
	s := Summary{TotalSelected: totalSelected, DestinationRoot: destRoot}
	for _, e := range log {
		switch e.Status {
		case StatusCreated:
			s.Created++
		case StatusReplaced:
			s.Replaced++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// TargetKind names a destination flavor
type TargetKind string

const (
	TargetCodex   TargetKind = "codex"
	TargetClaude  TargetKind = "claude"
	TargetProject TargetKind = "project"
	TargetCustom  TargetKind = "custom"
)

// Target is a destination choice. Path is only meaningful for TargetCustom.
type Target struct {
	Kind TargetKind
	Path string
}

func (t Target) String() string {
	if t.Kind == TargetCustom && t.Path != "" {
		return string(t.Kind) + ":" + t.Path
	}
	return string(t.Kind)
}
