package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/gatekeeper/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/gatekeeper/internal/adapter/driving/http"
	"github.com/ericfisherdev/gatekeeper/internal/application"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the gate API and re-evaluate watched repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd.Context())
		},
	}
}

func (a *app) runServe(ctx context.Context) error {
	// 1. Load configuration and policy.
	cfg, policy, err := a.loadSettings(slog.LevelInfo)
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"watch_repos", cfg.WatchRepos,
		"watch_interval", cfg.WatchInterval,
	)

	// 2. Open database (dual reader/writer with WAL mode, migrations applied).
	db, err := a.openStore(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 3. Wire the gate.
	store := sqliteadapter.NewDecisionRepo(db)
	gate := application.NewGateService(
		a.newSource(cfg),
		a.newJudge(cfg, cfg.JudgeModel),
		application.WithDecisionStore(store),
		application.WithMinEvidence(policy.MinEvidence),
	)

	defaults := application.GateRequest{
		BaseBranch:       policy.BaseBranch,
		BlockerLabels:    policy.BlockerLabels,
		PullRequestLabel: policy.PullRequestLabel,
	}

	watched := make([]application.GateRequest, 0, len(cfg.WatchRepos))
	for _, repo := range cfg.WatchRepos {
		req := defaults
		req.Repo = repo
		watched = append(watched, req)
	}

	// 4. Start the watch loop. It also serializes API-triggered runs.
	watchSvc := application.NewWatchService(gate, watched, cfg.WatchInterval)
	go watchSvc.Start(ctx)

	// 5. HTTP API.
	handler := httphandler.NewRouter(httphandler.NewHandler(watchSvc, store, defaults, slog.Default()), slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// A gate run can wait on the judge for its full timeout.
		WriteTimeout: cfg.JudgeTimeout + time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	slog.Info("gatekeeper started", "listen_addr", cfg.ListenAddr, "watched", len(watched))

	// 6. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	// 7. Graceful shutdown with 10s timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
