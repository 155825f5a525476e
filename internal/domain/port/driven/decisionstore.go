package driven

import (
	"context"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

// DecisionStore persists finished gate evaluations.
type DecisionStore interface {
	Save(ctx context.Context, eval model.Evaluation) error
	// GetByID returns nil, nil if no evaluation with that id exists.
	GetByID(ctx context.Context, id string) (*model.Evaluation, error)
	// ListByRepo returns the most recent evaluations for a repository, newest first.
	// An empty repoFullName lists across all repositories.
	ListByRepo(ctx context.Context, repoFullName string, limit int) ([]model.Evaluation, error)
}
