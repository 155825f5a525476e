package model

import "strconv"

// PullRequestRef identifies an open pull request selected as the release candidate.
type PullRequestRef struct {
	Number     int
	HeadSHA    string
	BaseBranch string
	URL        string
	Labels     []string
}

// Target is the commit a gate run decides on. Exactly one of PullRequest or
// BranchHeadSHA is set.
type Target struct {
	PullRequest   *PullRequestRef
	BranchHeadSHA string
	BaseBranch    string
}

// PullRequestTarget builds a target from an open pull request.
func PullRequestTarget(pr PullRequestRef, baseBranch string) Target {
	pr.Labels = append([]string(nil), pr.Labels...)
	return Target{PullRequest: &pr, BaseBranch: baseBranch}
}

// BranchHeadTarget builds a target from the head commit of a branch.
func BranchHeadTarget(sha, baseBranch string) Target {
	return Target{BranchHeadSHA: sha, BaseBranch: baseBranch}
}

// Type returns the form of the target.
func (t Target) Type() TargetType {
	if t.PullRequest != nil {
		return TargetPullRequest
	}
	return TargetBranchHead
}

// HeadSHA returns the commit id the target resolves to, or "" if none.
func (t Target) HeadSHA() string {
	if t.PullRequest != nil {
		return t.PullRequest.HeadSHA
	}
	return t.BranchHeadSHA
}

// Describe returns a short human label such as "PR #12" or "branch head (main)".
func (t Target) Describe() string {
	if t.PullRequest != nil {
		return "PR #" + strconv.Itoa(t.PullRequest.Number)
	}
	return "branch head (" + t.BaseBranch + ")"
}
