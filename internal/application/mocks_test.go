package application_test

import (
	"context"
	"sync"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

// --- Mock implementations ---

type mockSignalSource struct {
	pr        *model.PullRequestRef
	prErr     error
	headSHA   string
	headErr   error
	latest    *model.WorkflowRun
	latestErr error
	checks    []model.CheckRun
	checksErr error
	blockers  []model.Issue
	blockErr  error

	mu           sync.Mutex
	blockerCalls [][]string
	fetchedSHAs  []string
}

func (m *mockSignalSource) FetchOpenPullRequest(_ context.Context, _, _, _ string) (*model.PullRequestRef, error) {
	return m.pr, m.prErr
}

func (m *mockSignalSource) FetchBranchHead(_ context.Context, _, _ string) (string, error) {
	return m.headSHA, m.headErr
}

func (m *mockSignalSource) FetchLatestWorkflowRun(_ context.Context, _, sha string) (*model.WorkflowRun, error) {
	m.mu.Lock()
	m.fetchedSHAs = append(m.fetchedSHAs, sha)
	m.mu.Unlock()
	return m.latest, m.latestErr
}

func (m *mockSignalSource) FetchCheckRuns(_ context.Context, _, _ string) ([]model.CheckRun, error) {
	return m.checks, m.checksErr
}

func (m *mockSignalSource) FetchBlockers(_ context.Context, _ string, labels []string) ([]model.Issue, error) {
	m.mu.Lock()
	m.blockerCalls = append(m.blockerCalls, labels)
	m.mu.Unlock()
	return m.blockers, m.blockErr
}

// cleanSource returns a source whose branch head passes every redline.
func cleanSource() *mockSignalSource {
	return &mockSignalSource{
		headSHA: "abc123",
		latest:  &model.WorkflowRun{Status: "completed", Conclusion: "success", URL: "https://github.com/o/r/actions/runs/1"},
		checks:  []model.CheckRun{{Name: "lint", Conclusion: "success", URL: "https://github.com/o/r/runs/2"}},
	}
}

type mockJudge struct {
	result model.JudgmentResult
	err    error
	calls  int
	views  []model.SignalsView
}

func (m *mockJudge) Judge(_ context.Context, view model.SignalsView) (model.JudgmentResult, error) {
	m.calls++
	m.views = append(m.views, view)
	return m.result, m.err
}

type mockDecisionStore struct {
	saved []model.Evaluation
	err   error
}

func (m *mockDecisionStore) Save(_ context.Context, eval model.Evaluation) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, eval)
	return nil
}

func (m *mockDecisionStore) GetByID(_ context.Context, _ string) (*model.Evaluation, error) {
	return nil, nil
}

func (m *mockDecisionStore) ListByRepo(_ context.Context, _ string, _ int) ([]model.Evaluation, error) {
	return m.saved, nil
}
