// Package judge provides implementations of the Judge port: a remote HTTP
// judge and an offline heuristic judge.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
	"github.com/ericfisherdev/gatekeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Judge = (*HTTPJudge)(nil)

// DefaultTimeout bounds a single judge call when none is configured.
const DefaultTimeout = 60 * time.Second

// maxResponseBytes caps how much of a judge response is read.
const maxResponseBytes = 1 << 20

// HTTPJudge asks a remote service for a decision. It POSTs the signals view
// and the configured model id as JSON and expects a structured judgment back.
type HTTPJudge struct {
	client   *http.Client
	endpoint string
	token    string
	model    string
	timeout  time.Duration
}

// NewHTTPJudge creates an HTTPJudge. A non-positive timeout uses DefaultTimeout.
func NewHTTPJudge(endpoint, token, modelID string, timeout time.Duration) *HTTPJudge {
	return NewHTTPJudgeWithClient(&http.Client{}, endpoint, token, modelID, timeout)
}

// NewHTTPJudgeWithClient creates an HTTPJudge using the given http.Client.
// This constructor is intended for testing with an httptest server.
func NewHTTPJudgeWithClient(client *http.Client, endpoint, token, modelID string, timeout time.Duration) *HTTPJudge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPJudge{
		client:   client,
		endpoint: endpoint,
		token:    token,
		model:    modelID,
		timeout:  timeout,
	}
}

// judgeRequest is the JSON body sent to the judge endpoint.
type judgeRequest struct {
	Model   string            `json:"model,omitempty"`
	Signals model.SignalsView `json:"signals"`
}

// judgeResponse is the expected response shape. Pointer fields distinguish
// "absent" from zero values.
type judgeResponse struct {
	Decision         *string              `json:"decision"`
	Reasons          []string             `json:"reasons"`
	Evidence         []model.EvidenceItem `json:"evidence"`
	PolicyViolations []string             `json:"policy_violations"`
	Confidence       *float64             `json:"confidence"`
}

// Judge posts view to the endpoint. Responses that cannot be decoded, or that
// lack a decision or confidence, return an error wrapping
// driven.ErrMalformedJudgment.
func (j *HTTPJudge) Judge(ctx context.Context, view model.SignalsView) (model.JudgmentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	body, err := json.Marshal(judgeRequest{Model: j.model, Signals: view})
	if err != nil {
		return model.JudgmentResult{}, fmt.Errorf("marshal judge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.JudgmentResult{}, fmt.Errorf("create judge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if j.token != "" {
		req.Header.Set("Authorization", "Bearer "+j.token)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return model.JudgmentResult{}, fmt.Errorf("call judge endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.JudgmentResult{}, fmt.Errorf("read judge response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.JudgmentResult{}, fmt.Errorf("judge endpoint returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out judgeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return model.JudgmentResult{}, fmt.Errorf("%w: %v", driven.ErrMalformedJudgment, err)
	}
	if out.Decision == nil {
		return model.JudgmentResult{}, fmt.Errorf("%w: missing decision", driven.ErrMalformedJudgment)
	}
	if out.Confidence == nil {
		return model.JudgmentResult{}, fmt.Errorf("%w: missing confidence", driven.ErrMalformedJudgment)
	}

	return model.JudgmentResult{
		Decision:         model.Decision(*out.Decision),
		Reasons:          out.Reasons,
		Evidence:         out.Evidence,
		PolicyViolations: out.PolicyViolations,
		Confidence:       *out.Confidence,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
