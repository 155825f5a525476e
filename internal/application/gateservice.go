// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
	"github.com/ericfisherdev/gatekeeper/internal/domain/port/driven"
)

// Stage is a state of the gate run state machine.
type Stage int

const (
	StageSelectTarget Stage = iota
	StageFetchSignals
	StageRedlineCheck
	StageJudgment
	StageSummarize
	StageReport
	StageTerminal
)

var stageNames = [...]string{
	StageSelectTarget: "select_target",
	StageFetchSignals: "fetch_signals",
	StageRedlineCheck: "redline_check",
	StageJudgment:     "judgment",
	StageSummarize:    "summarize",
	StageReport:       "report",
	StageTerminal:     "terminal",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Reasons and violations recorded by the orchestrator itself.
const (
	ReasonNoHeadCommit       = "No head commit could be determined."
	ReasonEvidenceFailed     = "Evidence verification failed."
	reasonSignalFetchFailure = "Signal collection failed: %s"
)

// GateRequest is the per-run configuration supplied by the caller.
type GateRequest struct {
	Repo             string
	BaseBranch       string
	BlockerLabels    []string
	PullRequestLabel string // Optional; only PRs carrying it are selected.
}

// GateService runs the release gate state machine. It holds no per-run state
// and may be used for concurrent runs if its collaborators allow it.
type GateService struct {
	source      driven.SignalSource
	judge       *SafeJudge
	store       driven.DecisionStore
	summarize   func(model.Evaluation) string
	minEvidence int
	now         func() time.Time
	newID       func() string
}

// GateOption configures optional GateService collaborators.
type GateOption func(*GateService)

// WithDecisionStore persists every finished evaluation in the Report stage.
func WithDecisionStore(store driven.DecisionStore) GateOption {
	return func(s *GateService) { s.store = store }
}

// WithMinEvidence requires GO and NO_GO judgments to cite at least n items.
func WithMinEvidence(n int) GateOption {
	return func(s *GateService) { s.minEvidence = n }
}

// WithSummarizer replaces the default markdown digest.
func WithSummarizer(fn func(model.Evaluation) string) GateOption {
	return func(s *GateService) { s.summarize = fn }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) GateOption {
	return func(s *GateService) { s.now = now }
}

// WithIDGenerator overrides run id generation, for tests.
func WithIDGenerator(fn func() string) GateOption {
	return func(s *GateService) { s.newID = fn }
}

// NewGateService creates a GateService. judge may be nil, in which case every
// run that reaches the judgment stage pauses.
func NewGateService(source driven.SignalSource, judge driven.Judge, opts ...GateOption) *GateService {
	s := &GateService{
		source:    source,
		judge:     NewSafeJudge(judge),
		summarize: BuildDigest,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// gateRun is the mutable state of a single run, threaded through every stage.
type gateRun struct {
	id               string
	req              GateRequest
	startedAt        time.Time
	target           model.Target
	snapshot         *model.Snapshot
	record           model.DecisionRecord
	awaitingJudgment bool
	eval             *model.Evaluation
}

// Evaluate runs the gate for one repository and returns the finished
// evaluation. Collaborator failures degrade the decision to PAUSE; the only
// error returned is the context's, in which case the run is abandoned and
// nothing is persisted.
func (s *GateService) Evaluate(ctx context.Context, req GateRequest) (*model.Evaluation, error) {
	run := &gateRun{
		id:        s.newID(),
		req:       req,
		startedAt: s.now(),
		target:    model.Target{BaseBranch: req.BaseBranch},
		record:    model.NewDecisionRecord(),
	}

	stage := StageSelectTarget
	for stage != StageTerminal {
		if err := ctx.Err(); err != nil {
			slog.Warn("gate run abandoned", "run_id", run.id, "stage", stage, "error", err)
			return nil, err
		}

		next, err := s.step(ctx, stage, run)
		if err != nil {
			return nil, err
		}
		slog.Debug("gate stage complete", "run_id", run.id, "stage", stage, "next", next)
		stage = next
	}

	slog.Info("gate decision",
		"run_id", run.id,
		"repo", req.Repo,
		"target", run.target.Describe(),
		"decision", run.record.Decision,
		"confidence", run.record.Confidence,
	)

	return run.eval, nil
}

// step executes one stage and returns the stage that follows it.
func (s *GateService) step(ctx context.Context, stage Stage, run *gateRun) (Stage, error) {
	switch stage {
	case StageSelectTarget:
		return s.selectTarget(ctx, run), nil
	case StageFetchSignals:
		return s.fetchSignals(ctx, run), nil
	case StageRedlineCheck:
		return s.redlineCheck(run), nil
	case StageJudgment:
		return s.judgment(ctx, run), nil
	case StageSummarize:
		return s.summarizeRun(run), nil
	case StageReport:
		return StageTerminal, s.report(ctx, run)
	default:
		return StageTerminal, fmt.Errorf("unknown gate stage %v", stage)
	}
}

func (s *GateService) selectTarget(ctx context.Context, run *gateRun) Stage {
	repo, base := run.req.Repo, run.req.BaseBranch

	pr, err := s.source.FetchOpenPullRequest(ctx, repo, base, run.req.PullRequestLabel)
	if err != nil {
		return s.pauseUnresolvedTarget(run, fmt.Errorf("looking up open pull request: %w", err))
	}
	if pr != nil {
		run.target = model.PullRequestTarget(*pr, base)
	} else {
		sha, err := s.source.FetchBranchHead(ctx, repo, base)
		if err != nil {
			return s.pauseUnresolvedTarget(run, fmt.Errorf("resolving head of %s: %w", base, err))
		}
		run.target = model.BranchHeadTarget(sha, base)
	}

	if run.target.HeadSHA() == "" {
		return s.pauseUnresolvedTarget(run, nil)
	}
	return StageFetchSignals
}

func (s *GateService) pauseUnresolvedTarget(run *gateRun, err error) Stage {
	run.record.Decision = model.DecisionPause
	run.record.Reasons = append(run.record.Reasons, ReasonNoHeadCommit)
	if err != nil {
		slog.Warn("target selection failed", "repo", run.req.Repo, "error", err)
		run.record.Reasons = append(run.record.Reasons, "Target selection failed: "+err.Error())
	}
	return StageSummarize
}

func (s *GateService) fetchSignals(ctx context.Context, run *gateRun) Stage {
	repo, sha := run.req.Repo, run.target.HeadSHA()

	latest, err := s.source.FetchLatestWorkflowRun(ctx, repo, sha)
	if err != nil {
		return s.pauseSignalFailure(run, "workflow runs", err)
	}
	checks, err := s.source.FetchCheckRuns(ctx, repo, sha)
	if err != nil {
		return s.pauseSignalFailure(run, "check runs", err)
	}
	blockers, err := s.source.FetchBlockers(ctx, repo, run.req.BlockerLabels)
	if err != nil {
		return s.pauseSignalFailure(run, "blocker issues", err)
	}

	snap := model.NewSnapshot(repo, run.target, latest, checks, blockers)
	run.snapshot = &snap
	return StageRedlineCheck
}

func (s *GateService) pauseSignalFailure(run *gateRun, source string, err error) Stage {
	slog.Warn("signal collection failed", "repo", run.req.Repo, "source", source, "error", err)
	run.record.Decision = model.DecisionPause
	run.record.Reasons = append(run.record.Reasons, fmt.Sprintf(reasonSignalFetchFailure, source))
	return StageSummarize
}

func (s *GateService) redlineCheck(run *gateRun) Stage {
	reasons := EvaluateRedlines(*run.snapshot)
	if len(reasons) > 0 {
		run.record.Decision = model.DecisionNoGo
		run.record.Reasons = append(run.record.Reasons, reasons...)
		run.awaitingJudgment = false
		return StageSummarize
	}

	run.awaitingJudgment = true
	return StageJudgment
}

func (s *GateService) judgment(ctx context.Context, run *gateRun) Stage {
	if !run.awaitingJudgment {
		return StageSummarize
	}
	run.awaitingJudgment = false

	// The judge gets its own copy; citations are checked against a fresh view
	// so edits made by the judge cannot ground its own evidence.
	result := s.judge.Judge(ctx, run.snapshot.View())

	accepted, violations := VerifyEvidence(result.Evidence, run.snapshot.View())
	if accepted && result.Decision != model.DecisionPause && len(result.Evidence) < s.minEvidence {
		accepted = false
		violations = append(violations, fmt.Sprintf(
			"evidence: %d citations provided, at least %d required", len(result.Evidence), s.minEvidence,
		))
	}

	if !accepted {
		slog.Warn("judgment evidence rejected",
			"run_id", run.id,
			"proposed", result.Decision,
			"violations", len(violations),
		)
		run.record.Decision = model.DecisionPause
		run.record.Reasons = append(run.record.Reasons, ReasonEvidenceFailed)
		run.record.PolicyViolations = append(run.record.PolicyViolations, violations...)
		run.record.Confidence = 0.0
		return StageSummarize
	}

	run.record.Decision = result.Decision
	run.record.Reasons = append(run.record.Reasons, result.Reasons...)
	run.record.Evidence = append([]model.EvidenceItem{}, result.Evidence...)
	run.record.PolicyViolations = append(run.record.PolicyViolations, result.PolicyViolations...)
	run.record.Confidence = result.Confidence
	return StageSummarize
}

func (s *GateService) summarizeRun(run *gateRun) Stage {
	eval := model.Evaluation{
		ID:            run.id,
		Repo:          run.req.Repo,
		BaseBranch:    run.req.BaseBranch,
		BlockerLabels: append([]string{}, run.req.BlockerLabels...),
		Target:        run.target,
		Snapshot:      run.snapshot,
		Record:        run.record.Clone(),
		StartedAt:     run.startedAt,
		Duration:      s.now().Sub(run.startedAt),
	}
	if s.summarize != nil {
		eval.Summary = s.summarize(eval)
	}
	run.eval = &eval
	return StageReport
}

func (s *GateService) report(ctx context.Context, run *gateRun) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, *run.eval); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		slog.Error("failed to persist gate decision", "run_id", run.id, "error", err)
	}
	return nil
}
