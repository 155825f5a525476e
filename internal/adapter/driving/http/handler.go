package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ericfisherdev/gatekeeper/internal/adapter/driving/web"
	"github.com/ericfisherdev/gatekeeper/internal/application"
	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
	"github.com/ericfisherdev/gatekeeper/internal/domain/port/driven"
)

// maxListLimit caps the limit query parameter of the list endpoint.
const maxListLimit = 200

// GateRunner runs gate evaluations on demand and remembers the latest result
// per repository. *application.WatchService satisfies it.
type GateRunner interface {
	Refresh(ctx context.Context, req application.GateRequest) (*model.Evaluation, error)
	Latest(repo string) (*model.Evaluation, bool)
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	runner   GateRunner
	store    driven.DecisionStore
	defaults application.GateRequest
	logger   *slog.Logger
}

// NewHandler creates a Handler. defaults supplies the base branch, blocker
// labels and PR label used when a run request omits them.
func NewHandler(runner GateRunner, store driven.DecisionStore, defaults application.GateRequest, logger *slog.Logger) *Handler {
	return &Handler{
		runner:   runner,
		store:    store,
		defaults: defaults,
		logger:   logger,
	}
}

// NewRouter creates an http.Handler with all routes registered and wrapped
// with request id, logging and recovery middleware.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware(logger))
	// Recovery innermost so panics are caught before logging.
	r.Use(recoveryMiddleware(logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/decisions", h.RunGate)
		r.Get("/decisions", h.ListDecisions)
		r.Get("/decisions/{id}", h.GetDecision)
		r.Get("/decisions/{id}/digest", h.GetDigest)
		r.Get("/repos/{owner}/{name}/latest", h.LatestDecision)
	})

	return r
}

// RunGate evaluates a repository synchronously and returns the decision.
func (h *Handler) RunGate(w http.ResponseWriter, r *http.Request) {
	var body RunGateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	repo, err := model.NormalizeRepo(body.Repo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid repository: expected owner/repo or a GitHub URL")
		return
	}

	req := h.defaults
	req.Repo = repo
	if body.BaseBranch != "" {
		req.BaseBranch = body.BaseBranch
	}
	if body.BlockerLabels != nil {
		labels, ok := cleanLabels(body.BlockerLabels)
		if !ok {
			writeError(w, http.StatusBadRequest, "blocker_labels must name at least one non-empty label")
			return
		}
		req.BlockerLabels = labels
	}
	if body.PullRequestLabel != nil {
		req.PullRequestLabel = *body.PullRequestLabel
	}

	eval, err := h.runner.Refresh(r.Context(), req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusServiceUnavailable, "gate run abandoned")
			return
		}
		h.logger.Error("gate run failed", "repo", repo, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toDecisionResponse(*eval))
}

// ListDecisions returns stored evaluations, newest first, optionally filtered
// by the repo query parameter.
func (h *Handler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")
	if repo != "" {
		normalized, err := model.NormalizeRepo(repo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid repository")
			return
		}
		repo = normalized
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxListLimit {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	evals, err := h.store.ListByRepo(r.Context(), repo, limit)
	if err != nil {
		h.logger.Error("failed to list decisions", "repo", repo, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]DecisionResponse, 0, len(evals))
	for _, e := range evals {
		resp = append(resp, toDecisionResponse(e))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetDecision returns a single stored evaluation by id.
func (h *Handler) GetDecision(w http.ResponseWriter, r *http.Request) {
	eval, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toDecisionResponse(*eval))
}

// GetDigest returns a stored evaluation's digest as a sanitized HTML page.
func (h *Handler) GetDigest(w http.ResponseWriter, r *http.Request) {
	eval, ok := h.lookup(w, r)
	if !ok {
		return
	}

	page, err := web.DigestPage(*eval)
	if err != nil {
		h.logger.Error("failed to render digest", "id", eval.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

// LatestDecision returns the most recent evaluation of a repository made by
// this process, falling back to stored history.
func (h *Handler) LatestDecision(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")

	if eval, ok := h.runner.Latest(repo); ok {
		writeJSON(w, http.StatusOK, toDecisionResponse(*eval))
		return
	}

	evals, err := h.store.ListByRepo(r.Context(), repo, 1)
	if err != nil {
		h.logger.Error("failed to load latest decision", "repo", repo, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if len(evals) == 0 {
		writeError(w, http.StatusNotFound, "no decision recorded for repository")
		return
	}

	writeJSON(w, http.StatusOK, toDecisionResponse(evals[0]))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*model.Evaluation, bool) {
	id := chi.URLParam(r, "id")

	eval, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get decision", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if eval == nil {
		writeError(w, http.StatusNotFound, "decision not found")
		return nil, false
	}

	return eval, true
}

// cleanLabels trims labels and rejects a filter that is empty or contains a
// blank label. An empty filter would match every open issue.
func cleanLabels(raw []string) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	labels := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			return nil, false
		}
		labels = append(labels, l)
	}
	return labels, true
}
