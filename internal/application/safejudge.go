package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
	"github.com/ericfisherdev/gatekeeper/internal/domain/port/driven"
)

// StructuredOutputError is the policy violation tag attached to every
// judgment replaced by the safe default.
const StructuredOutputError = "STRUCTURED_OUTPUT_ERROR"

// Judge error kinds reported in the safe default's reason.
const (
	judgeErrTimeout   = "Timeout"
	judgeErrCanceled  = "Canceled"
	judgeErrMalformed = "MalformedOutput"
	judgeErrPanic     = "Panic"
	judgeErrAdapter   = "AdapterError"
	judgeErrNoJudge   = "NoJudgeConfigured"
)

// SafeJudge wraps an untrusted judge so that errors, panics, timeouts and
// malformed results all turn into a PAUSE judgment instead of failing the run.
type SafeJudge struct {
	judge driven.Judge
}

// NewSafeJudge wraps j. A nil j yields the safe default on every call.
func NewSafeJudge(j driven.Judge) *SafeJudge {
	return &SafeJudge{judge: j}
}

// Judge never fails; see SafeJudge.
func (s *SafeJudge) Judge(ctx context.Context, view model.SignalsView) (result model.JudgmentResult) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("judge panicked", "panic", v)
			result = safeDefaultJudgment(judgeErrPanic)
		}
	}()

	if s.judge == nil {
		return safeDefaultJudgment(judgeErrNoJudge)
	}

	res, err := s.judge.Judge(ctx, view)
	if err != nil {
		kind := judgeErrorKind(err)
		slog.Warn("judge failed", "kind", kind, "error", err)
		return safeDefaultJudgment(kind)
	}

	if err := validateJudgment(res); err != nil {
		slog.Warn("judge returned malformed result", "error", err)
		return safeDefaultJudgment(judgeErrMalformed)
	}

	if res.Reasons == nil {
		res.Reasons = []string{}
	}
	if res.Evidence == nil {
		res.Evidence = []model.EvidenceItem{}
	}
	if res.PolicyViolations == nil {
		res.PolicyViolations = []string{}
	}
	return res
}

func safeDefaultJudgment(kind string) model.JudgmentResult {
	return model.JudgmentResult{
		Decision:         model.DecisionPause,
		Reasons:          []string{"Judge error: " + kind},
		Evidence:         []model.EvidenceItem{},
		PolicyViolations: []string{StructuredOutputError},
		Confidence:       0.0,
	}
}

func validateJudgment(res model.JudgmentResult) error {
	if !res.Decision.IsTerminal() {
		return fmt.Errorf("decision %q is not one of GO, NO_GO, PAUSE", res.Decision)
	}
	if math.IsNaN(res.Confidence) || res.Confidence < 0 || res.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", res.Confidence)
	}
	return nil
}

func judgeErrorKind(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return judgeErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return judgeErrTimeout
	case errors.Is(err, context.Canceled):
		return judgeErrCanceled
	case errors.Is(err, driven.ErrMalformedJudgment):
		return judgeErrMalformed
	default:
		return judgeErrAdapter
	}
}
