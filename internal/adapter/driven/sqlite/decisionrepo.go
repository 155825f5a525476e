package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
	"github.com/ericfisherdev/gatekeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DecisionStore = (*DecisionRepo)(nil)

// timeLayout is fixed-width so that started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// defaultListLimit applies when ListByRepo is called with a non-positive limit.
const defaultListLimit = 20

// DecisionRepo is the SQLite implementation of the DecisionStore port.
type DecisionRepo struct {
	db *DB
}

// NewDecisionRepo creates a new DecisionRepo backed by the given DB.
func NewDecisionRepo(db *DB) *DecisionRepo {
	return &DecisionRepo{db: db}
}

// targetRow is the JSON form of model.Target stored in the target column.
type targetRow struct {
	Type          model.TargetType      `json:"type"`
	PullRequest   *model.PullRequestRef `json:"pull_request,omitempty"`
	BranchHeadSHA string                `json:"branch_head_sha,omitempty"`
	BaseBranch    string                `json:"base_branch"`
}

// snapshotRow is the JSON form of model.Snapshot stored in the snapshot column.
type snapshotRow struct {
	LatestRun *model.WorkflowRun `json:"latest_run"`
	CheckRuns []model.CheckRun   `json:"check_runs"`
	Blockers  []model.Issue      `json:"blockers"`
}

// Save inserts an evaluation, replacing any earlier row with the same id.
// List-valued fields are serialized as JSON arrays in TEXT columns.
func (r *DecisionRepo) Save(ctx context.Context, eval model.Evaluation) error {
	const query = `
		INSERT INTO decision_runs (
			id, repo_full_name, base_branch, blocker_labels, target, snapshot,
			decision, confidence, reasons, evidence, policy_violations,
			summary, started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			repo_full_name = excluded.repo_full_name,
			base_branch = excluded.base_branch,
			blocker_labels = excluded.blocker_labels,
			target = excluded.target,
			snapshot = excluded.snapshot,
			decision = excluded.decision,
			confidence = excluded.confidence,
			reasons = excluded.reasons,
			evidence = excluded.evidence,
			policy_violations = excluded.policy_violations,
			summary = excluded.summary,
			started_at = excluded.started_at,
			duration_ms = excluded.duration_ms
	`

	rec := eval.Record.Clone()

	labelsJSON, err := marshalJSON(nonNil(eval.BlockerLabels))
	if err != nil {
		return fmt.Errorf("marshal blocker labels: %w", err)
	}
	targetJSON, err := marshalJSON(targetRow{
		Type:          eval.Target.Type(),
		PullRequest:   eval.Target.PullRequest,
		BranchHeadSHA: eval.Target.BranchHeadSHA,
		BaseBranch:    eval.Target.BaseBranch,
	})
	if err != nil {
		return fmt.Errorf("marshal target: %w", err)
	}

	var snapshotJSON sql.NullString
	if eval.Snapshot != nil {
		row := snapshotRow{
			CheckRuns: eval.Snapshot.CheckRuns(),
			Blockers:  eval.Snapshot.Blockers(),
		}
		if run, ok := eval.Snapshot.LatestRun(); ok {
			row.LatestRun = &run
		}
		s, err := marshalJSON(row)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		snapshotJSON = sql.NullString{String: s, Valid: true}
	}

	reasonsJSON, err := marshalJSON(rec.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	evidenceJSON, err := marshalJSON(rec.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	violationsJSON, err := marshalJSON(rec.PolicyViolations)
	if err != nil {
		return fmt.Errorf("marshal policy violations: %w", err)
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		eval.ID, eval.Repo, eval.BaseBranch, labelsJSON, targetJSON, snapshotJSON,
		string(rec.Decision), rec.Confidence, reasonsJSON, evidenceJSON, violationsJSON,
		eval.Summary, eval.StartedAt.UTC().Format(timeLayout), eval.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("save decision run %s: %w", eval.ID, err)
	}

	return nil
}

// GetByID retrieves a single evaluation. Returns nil, nil if it does not exist.
func (r *DecisionRepo) GetByID(ctx context.Context, id string) (*model.Evaluation, error) {
	query := selectColumns + ` WHERE id = ?`

	eval, err := scanEvaluation(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get decision run %s: %w", id, err)
	}

	return eval, nil
}

// ListByRepo returns up to limit evaluations for repoFullName, newest first.
// An empty repoFullName lists across all repositories.
func (r *DecisionRepo) ListByRepo(ctx context.Context, repoFullName string, limit int) ([]model.Evaluation, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := selectColumns + `
		WHERE (? = '' OR repo_full_name = ?)
		ORDER BY started_at DESC, seq DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoFullName, repoFullName, limit)
	if err != nil {
		return nil, fmt.Errorf("query decision runs: %w", err)
	}
	defer rows.Close()

	evals := []model.Evaluation{}
	for rows.Next() {
		eval, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision run: %w", err)
		}
		evals = append(evals, *eval)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision runs: %w", err)
	}

	return evals, nil
}

const selectColumns = `
	SELECT id, repo_full_name, base_branch, blocker_labels, target, snapshot,
	       decision, confidence, reasons, evidence, policy_violations,
	       summary, started_at, duration_ms
	FROM decision_runs`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(s scanner) (*model.Evaluation, error) {
	var eval model.Evaluation
	var labelsJSON, targetJSON, decision, reasonsJSON, evidenceJSON, violationsJSON, startedAt string
	var snapshotJSON sql.NullString
	var durationMs int64

	err := s.Scan(
		&eval.ID, &eval.Repo, &eval.BaseBranch, &labelsJSON, &targetJSON, &snapshotJSON,
		&decision, &eval.Record.Confidence, &reasonsJSON, &evidenceJSON, &violationsJSON,
		&eval.Summary, &startedAt, &durationMs,
	)
	if err != nil {
		return nil, err
	}

	eval.Record.Decision = model.Decision(decision)
	eval.Duration = time.Duration(durationMs) * time.Millisecond

	eval.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}

	if err := json.Unmarshal([]byte(labelsJSON), &eval.BlockerLabels); err != nil {
		return nil, fmt.Errorf("unmarshal blocker labels: %w", err)
	}
	if err := json.Unmarshal([]byte(reasonsJSON), &eval.Record.Reasons); err != nil {
		return nil, fmt.Errorf("unmarshal reasons: %w", err)
	}
	if err := json.Unmarshal([]byte(evidenceJSON), &eval.Record.Evidence); err != nil {
		return nil, fmt.Errorf("unmarshal evidence: %w", err)
	}
	if err := json.Unmarshal([]byte(violationsJSON), &eval.Record.PolicyViolations); err != nil {
		return nil, fmt.Errorf("unmarshal policy violations: %w", err)
	}

	var target targetRow
	if err := json.Unmarshal([]byte(targetJSON), &target); err != nil {
		return nil, fmt.Errorf("unmarshal target: %w", err)
	}
	if target.PullRequest != nil {
		eval.Target = model.PullRequestTarget(*target.PullRequest, target.BaseBranch)
	} else {
		eval.Target = model.BranchHeadTarget(target.BranchHeadSHA, target.BaseBranch)
	}

	if snapshotJSON.Valid {
		var row snapshotRow
		if err := json.Unmarshal([]byte(snapshotJSON.String), &row); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		snap := model.NewSnapshot(eval.Repo, eval.Target, row.LatestRun, row.CheckRuns, row.Blockers)
		eval.Snapshot = &snap
	}

	return &eval, nil
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
