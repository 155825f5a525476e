package application_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/gatekeeper/internal/application"
	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

func TestBuildDigest_Go(t *testing.T) {
	pr := model.PullRequestRef{Number: 7, HeadSHA: "abc", URL: "https://github.com/o/r/pull/7"}
	snap := model.NewSnapshot("o/r", model.PullRequestTarget(pr, "main"),
		&model.WorkflowRun{Status: "completed", Conclusion: "success", URL: "https://github.com/o/r/actions/runs/1"},
		[]model.CheckRun{{Name: "lint", Conclusion: "success"}},
		nil,
	)
	eval := model.Evaluation{
		Repo:     "o/r",
		Target:   snap.Target(),
		Snapshot: &snap,
		Record: model.DecisionRecord{
			Decision:   model.DecisionGo,
			Reasons:    []string{"CI green"},
			Confidence: 0.9,
		},
	}

	got := application.BuildDigest(eval)

	assert.Contains(t, got, "o/r (PR #7): decision **GO** (confidence 0.90).")
	assert.Contains(t, got, "- Latest workflow run: success\n")
	assert.Contains(t, got, "- lint: success\n")
	assert.Contains(t, got, "- Open blockers: 0\n")
	assert.Contains(t, got, "- CI green\n")
	assert.Contains(t, got, "- PR: https://github.com/o/r/pull/7")
	assert.Contains(t, got, "- Workflow: https://github.com/o/r/actions/runs/1")
	assert.Contains(t, got, "- Proceed with release per checklist.")
}

func TestBuildDigest_UnresolvedTarget(t *testing.T) {
	eval := model.Evaluation{
		Repo:   "o/r",
		Target: model.BranchHeadTarget("", "main"),
		Record: model.DecisionRecord{
			Decision:         model.DecisionPause,
			Reasons:          []string{application.ReasonNoHeadCommit},
			PolicyViolations: []string{"evidence[0]: missing/invalid path"},
		},
	}

	got := application.BuildDigest(eval)

	assert.Contains(t, got, "- Latest workflow run: (none found)")
	assert.Contains(t, got, "- (no check runs found)")
	assert.Contains(t, got, "- Policy violation: evidence[0]: missing/invalid path")
	assert.NotContains(t, got, "### Links")
	assert.Contains(t, got, "- Clarify missing signals")
}

func TestBuildDigest_CapsChecks(t *testing.T) {
	var checks []model.CheckRun
	for i := range 15 {
		checks = append(checks, model.CheckRun{Name: fmt.Sprintf("job-%02d", i), Conclusion: "failure"})
	}
	snap := model.NewSnapshot("o/r", model.BranchHeadTarget("abc", "main"), nil, checks, nil)
	eval := model.Evaluation{
		Repo:     "o/r",
		Target:   snap.Target(),
		Snapshot: &snap,
		Record:   model.DecisionRecord{Decision: model.DecisionNoGo},
	}

	got := application.BuildDigest(eval)

	assert.Contains(t, got, "- job-11: failure")
	assert.NotContains(t, got, "- job-12:")
	assert.Contains(t, got, "- ... and 3 more")
	assert.Contains(t, got, "- Triage failures")
	assert.Equal(t, got, application.BuildDigest(eval))
	assert.True(t, strings.HasPrefix(got, "### Overview"))
}
