package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

// Judge proposes a release decision from a signals view. Implementations are
// untrusted: the caller verifies every evidence citation before adopting the
// result.
type Judge interface {
	Judge(ctx context.Context, view model.SignalsView) (model.JudgmentResult, error)
}

// JudgeFunc adapts a plain function to the Judge interface.
type JudgeFunc func(ctx context.Context, view model.SignalsView) (model.JudgmentResult, error)

// Judge calls f.
func (f JudgeFunc) Judge(ctx context.Context, view model.SignalsView) (model.JudgmentResult, error) {
	return f(ctx, view)
}

// ErrMalformedJudgment is returned (wrapped) by judges whose response could not
// be decoded into a JudgmentResult.
var ErrMalformedJudgment = errors.New("malformed judgment")
