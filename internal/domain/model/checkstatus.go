package model

// WorkflowRun is the latest GitHub Actions run for a commit.
type WorkflowRun struct {
	Status     string // queued, in_progress, completed.
	Conclusion string // success, failure, cancelled, ... ("" while running).
	URL        string
}

// CheckRun represents an individual CI/CD check run from the GitHub Checks API.
type CheckRun struct {
	Name       string // Check run name (e.g., "build", "lint").
	Conclusion string // success, failure, neutral, cancelled, skipped, timed_out, action_required; "" when missing.
	URL        string // URL to the check run details page.
}

// Issue is an open issue matched by the blocker label filter.
type Issue struct {
	Title  string
	Labels []string
	URL    string
}
