package model

// Snapshot is the frozen set of facts about one commit used for one gate run.
// It is built once by the orchestrator and only read afterwards.
type Snapshot struct {
	repo      string
	target    Target
	latestRun *WorkflowRun
	checkRuns []CheckRun
	blockers  []Issue
}

// NewSnapshot copies its inputs so later changes by the caller cannot leak
// into a run. latestRun may be nil when no workflow run was found.
func NewSnapshot(repo string, target Target, latestRun *WorkflowRun, checkRuns []CheckRun, blockers []Issue) Snapshot {
	s := Snapshot{
		repo:      repo,
		target:    target,
		checkRuns: append([]CheckRun(nil), checkRuns...),
		blockers:  make([]Issue, 0, len(blockers)),
	}
	if target.PullRequest != nil {
		s.target = PullRequestTarget(*target.PullRequest, target.BaseBranch)
	}
	if latestRun != nil {
		run := *latestRun
		s.latestRun = &run
	}
	for _, b := range blockers {
		b.Labels = append([]string(nil), b.Labels...)
		s.blockers = append(s.blockers, b)
	}
	return s
}

// Repo returns the owner/name of the repository.
func (s Snapshot) Repo() string { return s.repo }

// Target returns the resolved target.
func (s Snapshot) Target() Target { return s.target }

// LatestRun returns the latest workflow run and whether one was found.
func (s Snapshot) LatestRun() (WorkflowRun, bool) {
	if s.latestRun == nil {
		return WorkflowRun{}, false
	}
	return *s.latestRun, true
}

// CheckRuns returns a copy of the check runs in discovery order.
func (s Snapshot) CheckRuns() []CheckRun {
	return append([]CheckRun(nil), s.checkRuns...)
}

// Blockers returns a copy of the open blocker issues.
func (s Snapshot) Blockers() []Issue {
	return append([]Issue(nil), s.blockers...)
}

// CheckRunCount returns the number of check runs.
func (s Snapshot) CheckRunCount() int { return len(s.checkRuns) }

// BlockerCount returns the number of open blocker issues.
func (s Snapshot) BlockerCount() int { return len(s.blockers) }

// SignalsView is the generic JSON-shaped tree handed to the judge and walked
// by the evidence verifier. Nodes are map[string]any, []any or scalars.
type SignalsView map[string]any

// View builds a fresh signals view restricted to repo, target, actions,
// checks and blockers. Missing conclusions appear as null.
func (s Snapshot) View() SignalsView {
	target := map[string]any{
		"type":        string(s.target.Type()),
		"number":      nil,
		"head_sha":    nullable(s.target.HeadSHA()),
		"base_branch": s.target.BaseBranch,
		"url":         nil,
	}
	if pr := s.target.PullRequest; pr != nil {
		target["number"] = pr.Number
		target["url"] = pr.URL
	}

	latest := map[string]any{}
	if s.latestRun != nil {
		latest["status"] = nullable(s.latestRun.Status)
		latest["conclusion"] = nullable(s.latestRun.Conclusion)
		latest["url"] = s.latestRun.URL
	}

	runs := make([]any, 0, len(s.checkRuns))
	for _, cr := range s.checkRuns {
		runs = append(runs, map[string]any{
			"name":       cr.Name,
			"conclusion": nullable(cr.Conclusion),
			"url":        cr.URL,
		})
	}

	blockers := make([]any, 0, len(s.blockers))
	for _, b := range s.blockers {
		labels := make([]any, 0, len(b.Labels))
		for _, l := range b.Labels {
			labels = append(labels, l)
		}
		blockers = append(blockers, map[string]any{
			"title":  b.Title,
			"labels": labels,
			"url":    b.URL,
		})
	}

	return SignalsView{
		SectionRepo:     s.repo,
		SectionTarget:   target,
		SectionActions:  map[string]any{"latest_run": latest},
		SectionChecks:   map[string]any{"runs": runs},
		SectionBlockers: blockers,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
