package application_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/gatekeeper/internal/application"
	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
	"github.com/ericfisherdev/gatekeeper/internal/domain/port/driven"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestSafeJudge_ErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: fmt.Errorf("calling judge: %w", context.DeadlineExceeded), want: "Judge error: Timeout"},
		{name: "net timeout", err: timeoutError{}, want: "Judge error: Timeout"},
		{name: "canceled", err: context.Canceled, want: "Judge error: Canceled"},
		{name: "malformed", err: fmt.Errorf("%w: unexpected EOF", driven.ErrMalformedJudgment), want: "Judge error: MalformedOutput"},
		{name: "other", err: errors.New("401 unauthorized"), want: "Judge error: AdapterError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sj := application.NewSafeJudge(driven.JudgeFunc(func(context.Context, model.SignalsView) (model.JudgmentResult, error) {
				return model.JudgmentResult{Decision: model.DecisionGo, Confidence: 1}, tt.err
			}))

			got := sj.Judge(context.Background(), testView())

			assert.Equal(t, model.DecisionPause, got.Decision)
			assert.Equal(t, []string{tt.want}, got.Reasons)
			assert.Equal(t, []string{application.StructuredOutputError}, got.PolicyViolations)
			assert.Empty(t, got.Evidence)
			assert.Equal(t, 0.0, got.Confidence)
		})
	}
}

func TestSafeJudge_RecoversPanic(t *testing.T) {
	sj := application.NewSafeJudge(driven.JudgeFunc(func(context.Context, model.SignalsView) (model.JudgmentResult, error) {
		panic("boom")
	}))

	got := sj.Judge(context.Background(), testView())
	assert.Equal(t, []string{"Judge error: Panic"}, got.Reasons)
	assert.Equal(t, model.DecisionPause, got.Decision)
}

func TestSafeJudge_RejectsMalformedResults(t *testing.T) {
	results := map[string]model.JudgmentResult{
		"unknown decision":   {Decision: model.DecisionUnknown, Confidence: 0.5},
		"invented decision":  {Decision: "SHIP_IT", Confidence: 0.5},
		"confidence too big": {Decision: model.DecisionGo, Confidence: 1.5},
		"negative":           {Decision: model.DecisionGo, Confidence: -0.1},
		"nan":                {Decision: model.DecisionGo, Confidence: math.NaN()},
	}

	for name, res := range results {
		t.Run(name, func(t *testing.T) {
			sj := application.NewSafeJudge(driven.JudgeFunc(func(context.Context, model.SignalsView) (model.JudgmentResult, error) {
				return res, nil
			}))
			got := sj.Judge(context.Background(), testView())
			assert.Equal(t, []string{"Judge error: MalformedOutput"}, got.Reasons)
		})
	}
}

func TestSafeJudge_PassesValidResultThrough(t *testing.T) {
	want := model.JudgmentResult{
		Decision:   model.DecisionNoGo,
		Reasons:    []string{"risky migration"},
		Evidence:   []model.EvidenceItem{{Source: "repo", Path: "repo", Value: "o/r"}},
		Confidence: 0.4,
	}
	sj := application.NewSafeJudge(driven.JudgeFunc(func(context.Context, model.SignalsView) (model.JudgmentResult, error) {
		return want, nil
	}))

	got := sj.Judge(context.Background(), testView())

	require.NotNil(t, got.PolicyViolations)
	assert.Empty(t, got.PolicyViolations)
	want.PolicyViolations = []string{}
	assert.Equal(t, want, got)
}
