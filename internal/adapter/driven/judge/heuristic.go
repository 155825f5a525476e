package judge

import (
	"context"
	"fmt"
	"strings"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
	"github.com/ericfisherdev/gatekeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Judge = (*HeuristicJudge)(nil)

// maxCitedChecks caps how many check runs the heuristic judge cites.
const maxCitedChecks = 5

// HeuristicJudge is an offline, deterministic judge used when no remote
// endpoint is configured. It reads only the signals view and cites every
// fact it relies on, so its results always pass evidence verification.
type HeuristicJudge struct{}

// NewHeuristicJudge creates a HeuristicJudge.
func NewHeuristicJudge() *HeuristicJudge {
	return &HeuristicJudge{}
}

// Judge returns GO when the latest run succeeded, every cited check passed
// and no blockers are open; NO_GO when any of those facts contradicts it; and
// PAUSE when there are no check runs to look at.
func (h *HeuristicJudge) Judge(_ context.Context, view model.SignalsView) (model.JudgmentResult, error) {
	res := model.JudgmentResult{
		Reasons:          []string{},
		Evidence:         []model.EvidenceItem{},
		PolicyViolations: []string{},
	}

	actions, _ := view[model.SectionActions].(map[string]any)
	latest, _ := actions["latest_run"].(map[string]any)
	conclusion := latest["conclusion"]
	res.Evidence = append(res.Evidence, model.EvidenceItem{
		Source: model.SectionActions,
		Path:   "latest_run.conclusion",
		Value:  conclusion,
	})
	runOK := conclusion == "success"
	if !runOK {
		res.Reasons = append(res.Reasons, fmt.Sprintf("Latest workflow run concluded %v.", displayValue(conclusion)))
	}

	checks, _ := view[model.SectionChecks].(map[string]any)
	runs, _ := checks["runs"].([]any)
	checksOK := true
	for i, r := range runs[:min(len(runs), maxCitedChecks)] {
		run, _ := r.(map[string]any)
		c := run["conclusion"]
		res.Evidence = append(res.Evidence, model.EvidenceItem{
			Source: model.SectionChecks,
			Path:   fmt.Sprintf("runs[%d].conclusion", i),
			Value:  c,
		})
		if !passingCheck(c) {
			checksOK = false
			res.Reasons = append(res.Reasons, fmt.Sprintf("Check %v concluded %v.", run["name"], displayValue(c)))
		}
	}

	blockers, _ := view[model.SectionBlockers].([]any)
	res.Evidence = append(res.Evidence, model.EvidenceItem{
		Source: model.SectionBlockers,
		Path:   "",
		Value:  blockers,
	})
	blockersOK := len(blockers) == 0
	if !blockersOK {
		res.Reasons = append(res.Reasons, fmt.Sprintf("%d open blocker issue(s).", len(blockers)))
	}

	switch {
	case !runOK || !checksOK || !blockersOK:
		res.Decision = model.DecisionNoGo
		res.Confidence = 0.8
	case len(runs) == 0:
		res.Decision = model.DecisionPause
		res.Confidence = 0.4
		res.Reasons = append(res.Reasons, "No check runs reported for the target commit.")
	default:
		res.Decision = model.DecisionGo
		res.Confidence = 0.7
		res.Reasons = append(res.Reasons, "Latest workflow run succeeded, checks passed and no blockers are open.")
	}

	return res, nil
}

func passingCheck(conclusion any) bool {
	s, ok := conclusion.(string)
	if !ok {
		return false
	}
	for _, pass := range []string{"success", "neutral", "skipped"} {
		if strings.EqualFold(s, pass) {
			return true
		}
	}
	return false
}

func displayValue(v any) any {
	if v == nil {
		return "none"
	}
	return v
}
