package application

import (
	"fmt"
	"strings"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

// maxDigestChecks caps how many check runs the digest lists individually.
const maxDigestChecks = 12

// BuildDigest renders a short, deterministic markdown digest of a finished
// evaluation for developers. It only uses facts present in the evaluation.
func BuildDigest(eval model.Evaluation) string {
	rec := eval.Record
	var b strings.Builder

	b.WriteString("### Overview\n\n")
	fmt.Fprintf(&b, "%s (%s): decision **%s** (confidence %.2f).\n", eval.Repo, eval.Target.Describe(), rec.Decision, rec.Confidence)

	b.WriteString("\n### Signals\n\n")
	if run, ok := eval.LatestRun(); ok {
		fmt.Fprintf(&b, "- Latest workflow run: %s\n", displayConclusion(run.Conclusion))
	} else {
		b.WriteString("- Latest workflow run: (none found)\n")
	}
	b.WriteString(checkLines(eval))
	fmt.Fprintf(&b, "- Open blockers: %d\n", eval.BlockerCount())

	b.WriteString("\n### Decision & Rationale\n\n")
	if len(rec.Reasons) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, r := range rec.Reasons {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	for _, v := range rec.PolicyViolations {
		fmt.Fprintf(&b, "- Policy violation: %s\n", v)
	}

	var links []string
	if pr := eval.Target.PullRequest; pr != nil && pr.URL != "" {
		links = append(links, "- PR: "+pr.URL)
	}
	if run, ok := eval.LatestRun(); ok && run.URL != "" {
		links = append(links, "- Workflow: "+run.URL)
	}
	if len(links) > 0 {
		b.WriteString("\n### Links\n\n")
		b.WriteString(strings.Join(links, "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\n### Next Steps\n\n")
	switch rec.Decision {
	case model.DecisionGo:
		b.WriteString("- Proceed with release per checklist.\n")
	case model.DecisionNoGo:
		b.WriteString("- Triage failures, re-run CI, clear blockers, re-evaluate.\n")
	default:
		b.WriteString("- Clarify missing signals or address flagged risks, then re-run.\n")
	}

	return b.String()
}

func checkLines(eval model.Evaluation) string {
	if eval.Snapshot == nil || eval.Snapshot.CheckRunCount() == 0 {
		return "- (no check runs found)\n"
	}

	runs := eval.Snapshot.CheckRuns()
	var b strings.Builder
	for _, cr := range runs[:min(len(runs), maxDigestChecks)] {
		fmt.Fprintf(&b, "- %s: %s\n", cr.Name, displayConclusion(cr.Conclusion))
	}
	if len(runs) > maxDigestChecks {
		fmt.Fprintf(&b, "- ... and %d more\n", len(runs)-maxDigestChecks)
	}
	return b.String()
}
