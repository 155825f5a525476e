package application

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

// maxListedFailedChecks caps how many failing checks a redline reason names.
const maxListedFailedChecks = 5

// EvaluateRedlines applies the deterministic block rules to a snapshot and
// returns one reason per violated rule. Every rule is checked; an empty result
// means the snapshot needs a judgment.
func EvaluateRedlines(snap model.Snapshot) []string {
	reasons := []string{}

	if run, ok := snap.LatestRun(); !ok {
		reasons = append(reasons, "Latest GitHub Actions workflow run is not 'success': no run found.")
	} else if run.Conclusion != "success" {
		reasons = append(reasons, fmt.Sprintf(
			"Latest GitHub Actions workflow run is not 'success': conclusion=%s.",
			displayConclusion(run.Conclusion),
		))
	}

	if failed := failedCheckRuns(snap.CheckRuns()); len(failed) > 0 {
		shown := failed[:min(len(failed), maxListedFailedChecks)]
		pairs := make([]string, 0, len(shown))
		for _, cr := range shown {
			pairs = append(pairs, cr.Name+"="+displayConclusion(cr.Conclusion))
		}
		reason := "One or more check runs failed: " + strings.Join(pairs, ", ")
		if extra := len(failed) - len(shown); extra > 0 {
			reason += fmt.Sprintf(" (and %d more)", extra)
		}
		reasons = append(reasons, reason)
	}

	if n := snap.BlockerCount(); n > 0 {
		reasons = append(reasons, fmt.Sprintf("Open blocker issues present: %d", n))
	}

	return reasons
}

// failedCheckRuns returns the check runs whose conclusion is not success,
// neutral or skipped (case-insensitive). A missing conclusion counts as failed.
func failedCheckRuns(runs []model.CheckRun) []model.CheckRun {
	fold := cases.Fold()
	var failed []model.CheckRun
	for _, cr := range runs {
		switch fold.String(cr.Conclusion) {
		case "success", "neutral", "skipped":
		default:
			failed = append(failed, cr)
		}
	}
	return failed
}

func displayConclusion(c string) string {
	if c == "" {
		return "none"
	}
	return c
}
