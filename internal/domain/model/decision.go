package model

import "time"

// EvidenceItem is a citation claiming that Value is stored at Path inside the
// signals view section named by Source.
type EvidenceItem struct {
	Source string `json:"source"`
	Path   string `json:"path"`
	Value  any    `json:"value"`
}

// JudgmentResult is what a judge proposes. It is untrusted until its evidence
// has been verified against the signals view.
type JudgmentResult struct {
	Decision         Decision       `json:"decision"`
	Reasons          []string       `json:"reasons"`
	Evidence         []EvidenceItem `json:"evidence"`
	PolicyViolations []string       `json:"policy_violations"`
	Confidence       float64        `json:"confidence"`
}

// DecisionRecord is the accumulated output of one gate run.
type DecisionRecord struct {
	Decision         Decision       `json:"decision"`
	Reasons          []string       `json:"reasons"`
	Evidence         []EvidenceItem `json:"evidence"`
	PolicyViolations []string       `json:"policy_violations"`
	Confidence       float64        `json:"confidence"`
}

// NewDecisionRecord returns an empty record with decision UNKNOWN.
func NewDecisionRecord() DecisionRecord {
	return DecisionRecord{
		Decision:         DecisionUnknown,
		Reasons:          []string{},
		Evidence:         []EvidenceItem{},
		PolicyViolations: []string{},
	}
}

// Clone returns a deep copy of the record's slices.
func (r DecisionRecord) Clone() DecisionRecord {
	out := r
	out.Reasons = append([]string{}, r.Reasons...)
	out.Evidence = append([]EvidenceItem{}, r.Evidence...)
	out.PolicyViolations = append([]string{}, r.PolicyViolations...)
	return out
}

// Evaluation is a finished gate run: the terminal record plus the inputs it was
// decided on. It is what gets rendered, summarized and persisted.
type Evaluation struct {
	ID            string
	Repo          string
	BaseBranch    string
	BlockerLabels []string
	Target        Target
	Snapshot      *Snapshot // nil when the target could not be resolved.
	Record        DecisionRecord
	Summary       string
	StartedAt     time.Time
	Duration      time.Duration
}

// LatestRun returns the snapshot's latest workflow run, if any.
func (e Evaluation) LatestRun() (WorkflowRun, bool) {
	if e.Snapshot == nil {
		return WorkflowRun{}, false
	}
	return e.Snapshot.LatestRun()
}

// CheckRunCount returns the number of check runs seen by the run.
func (e Evaluation) CheckRunCount() int {
	if e.Snapshot == nil {
		return 0
	}
	return e.Snapshot.CheckRunCount()
}

// BlockerCount returns the number of blocker issues seen by the run.
func (e Evaluation) BlockerCount() int {
	if e.Snapshot == nil {
		return 0
	}
	return e.Snapshot.BlockerCount()
}
