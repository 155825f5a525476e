package model

// Decision is the verdict of a gate run.
type Decision string

const (
	DecisionUnknown Decision = "UNKNOWN"
	DecisionGo      Decision = "GO"
	DecisionNoGo    Decision = "NO_GO"
	DecisionPause   Decision = "PAUSE"
)

// IsTerminal reports whether d is one of GO, NO_GO or PAUSE.
func (d Decision) IsTerminal() bool {
	switch d {
	case DecisionGo, DecisionNoGo, DecisionPause:
		return true
	}
	return false
}

// ExitCode maps a decision to the process exit code used by CI callers.
func (d Decision) ExitCode() int {
	switch d {
	case DecisionGo:
		return 0
	case DecisionPause:
		return 1
	case DecisionNoGo:
		return 2
	default:
		return 3
	}
}

// TargetType distinguishes the two forms a gate target can take.
type TargetType string

const (
	TargetPullRequest TargetType = "pull_request"
	TargetBranchHead  TargetType = "branch_head"
)

// Top-level sections of the signals view. Evidence citations name one of
// these as their source.
const (
	SectionRepo     = "repo"
	SectionTarget   = "target"
	SectionActions  = "actions"
	SectionChecks   = "checks"
	SectionBlockers = "blockers"
)
