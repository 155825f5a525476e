package httphandler

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// RunGateRequest is the JSON body for the run gate endpoint. Omitted fields
// fall back to the server's configured defaults.
type RunGateRequest struct {
	Repo             string   `json:"repo"`
	BaseBranch       string   `json:"base_branch,omitempty"`
	BlockerLabels    []string `json:"blocker_labels,omitempty"`
	PullRequestLabel *string  `json:"pull_request_label,omitempty"`
}

// DecisionResponse is the JSON representation of a gate evaluation.
type DecisionResponse struct {
	ID               string               `json:"id"`
	Repo             string               `json:"repo"`
	BaseBranch       string               `json:"base_branch"`
	BlockerLabels    []string             `json:"blocker_labels"`
	Target           TargetResponse       `json:"target"`
	Decision         string               `json:"decision"`
	Confidence       float64              `json:"confidence"`
	Reasons          []string             `json:"reasons"`
	Evidence         []model.EvidenceItem `json:"evidence"`
	PolicyViolations []string             `json:"policy_violations"`
	LatestRun        *WorkflowRunResponse `json:"latest_run"`
	ChecksCount      int                  `json:"checks_count"`
	BlockersCount    int                  `json:"blockers_count"`
	Summary          string               `json:"summary"`
	StartedAt        string               `json:"started_at"`
	ElapsedSec       float64              `json:"elapsed_sec"`
}

// TargetResponse is the JSON representation of the evaluated commit.
type TargetResponse struct {
	Type       string `json:"type"`
	Number     int    `json:"number,omitempty"`
	HeadSHA    string `json:"head_sha"`
	BaseBranch string `json:"base_branch"`
	URL        string `json:"url,omitempty"`
}

// WorkflowRunResponse is the JSON representation of the latest workflow run.
type WorkflowRunResponse struct {
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	URL        string `json:"url"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toDecisionResponse converts an evaluation to its JSON response representation.
// List fields are always non-nil so they encode as [] rather than null.
func toDecisionResponse(eval model.Evaluation) DecisionResponse {
	rec := eval.Record.Clone()

	labels := eval.BlockerLabels
	if labels == nil {
		labels = []string{}
	}

	target := TargetResponse{
		Type:       string(eval.Target.Type()),
		HeadSHA:    eval.Target.HeadSHA(),
		BaseBranch: eval.Target.BaseBranch,
	}
	if pr := eval.Target.PullRequest; pr != nil {
		target.Number = pr.Number
		target.URL = pr.URL
	}

	var latest *WorkflowRunResponse
	if run, ok := eval.LatestRun(); ok {
		latest = &WorkflowRunResponse{Status: run.Status, Conclusion: run.Conclusion, URL: run.URL}
	}

	return DecisionResponse{
		ID:               eval.ID,
		Repo:             eval.Repo,
		BaseBranch:       eval.BaseBranch,
		BlockerLabels:    labels,
		Target:           target,
		Decision:         string(rec.Decision),
		Confidence:       rec.Confidence,
		Reasons:          rec.Reasons,
		Evidence:         rec.Evidence,
		PolicyViolations: rec.PolicyViolations,
		LatestRun:        latest,
		ChecksCount:      eval.CheckRunCount(),
		BlockersCount:    eval.BlockerCount(),
		Summary:          eval.Summary,
		StartedAt:        eval.StartedAt.UTC().Format(time.RFC3339),
		ElapsedSec:       math.Round(eval.Duration.Seconds()*100) / 100,
	}
}
