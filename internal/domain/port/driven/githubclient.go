package driven

import (
	"context"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

// SignalSource defines the driven port for reading release signals from a
// code host. "Nothing found" is reported as a nil/empty value, never as an error;
// errors are reserved for transport or permission failures.
type SignalSource interface {
	// FetchOpenPullRequest returns the most recently updated open pull request
	// against base. If label is non-empty only pull requests carrying it qualify.
	// Returns nil, nil when no pull request qualifies.
	FetchOpenPullRequest(ctx context.Context, repoFullName, base, label string) (*model.PullRequestRef, error)
	// FetchBranchHead returns the head commit SHA of branch, or "" if the branch does not exist.
	FetchBranchHead(ctx context.Context, repoFullName, branch string) (string, error)
	// FetchLatestWorkflowRun returns the latest Actions run for sha, or nil if there is none.
	FetchLatestWorkflowRun(ctx context.Context, repoFullName, sha string) (*model.WorkflowRun, error)
	// FetchCheckRuns returns all check runs for sha in the order the API lists them.
	FetchCheckRuns(ctx context.Context, repoFullName, sha string) ([]model.CheckRun, error)
	// FetchBlockers returns open issues carrying the given labels.
	FetchBlockers(ctx context.Context, repoFullName string, labels []string) ([]model.Issue, error)
}
