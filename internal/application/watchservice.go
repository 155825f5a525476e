package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

// Evaluator runs a single gate evaluation. *GateService satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, req GateRequest) (*model.Evaluation, error)
}

// refreshRequest represents an on-demand evaluation.
type refreshRequest struct {
	req  GateRequest
	done chan refreshResult
}

type refreshResult struct {
	eval *model.Evaluation
	err  error
}

// WatchService re-evaluates a fixed set of repositories on an interval and
// serves on-demand evaluations through the same loop, so at most one gate
// run is in flight at a time.
type WatchService struct {
	gate      Evaluator
	watched   []GateRequest
	interval  time.Duration
	refreshCh chan refreshRequest

	mu     sync.RWMutex
	latest map[string]*model.Evaluation
}

// NewWatchService creates a WatchService. An interval of zero or an empty
// watch list disables periodic evaluation; Refresh still works.
func NewWatchService(gate Evaluator, watched []GateRequest, interval time.Duration) *WatchService {
	return &WatchService{
		gate:      gate,
		watched:   watched,
		interval:  interval,
		refreshCh: make(chan refreshRequest),
		latest:    make(map[string]*model.Evaluation),
	}
}

// Start runs an immediate evaluation of every watched repository, then
// repeats on the configured interval while serving refresh requests. Start
// blocks until the context is canceled.
func (s *WatchService) Start(ctx context.Context) {
	var tick <-chan time.Time
	if s.interval > 0 && len(s.watched) > 0 {
		s.evaluateAll(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch service stopped")
			return
		case <-tick:
			s.evaluateAll(ctx)
		case r := <-s.refreshCh:
			eval, err := s.evaluate(ctx, r.req)
			r.done <- refreshResult{eval: eval, err: err}
		}
	}
}

// Refresh evaluates req immediately, bypassing the interval. It blocks until
// the evaluation completes or the context is canceled.
func (s *WatchService) Refresh(ctx context.Context, req GateRequest) (*model.Evaluation, error) {
	done := make(chan refreshResult, 1)

	select {
	case s.refreshCh <- refreshRequest{req: req, done: done}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-done:
		return res.eval, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Latest returns the most recent evaluation recorded for repo.
func (s *WatchService) Latest(repo string) (*model.Evaluation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eval, ok := s.latest[repo]
	return eval, ok
}

func (s *WatchService) evaluateAll(ctx context.Context) {
	start := time.Now()

	var failures int
	for _, req := range s.watched {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.evaluate(ctx, req); err != nil {
			failures++
		}
	}

	slog.Info("watch cycle complete",
		"repos", len(s.watched),
		"errors", failures,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

func (s *WatchService) evaluate(ctx context.Context, req GateRequest) (*model.Evaluation, error) {
	eval, err := s.gate.Evaluate(ctx, req)
	if err != nil {
		slog.Error("gate evaluation failed", "repo", req.Repo, "error", err)
		return nil, err
	}

	s.mu.Lock()
	prev, seen := s.latest[req.Repo]
	s.latest[req.Repo] = eval
	s.mu.Unlock()

	if seen && prev.Record.Decision != eval.Record.Decision {
		slog.Info("gate decision changed",
			"repo", req.Repo,
			"from", prev.Record.Decision,
			"to", eval.Record.Decision,
		)
	}
	return eval, nil
}
