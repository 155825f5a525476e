package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/gatekeeper/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/gatekeeper/internal/adapter/driving/cli"
	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

func historyCmd(a *app) *cobra.Command {
	var repo string
	var limit int

	c := &cobra.Command{
		Use:   "history",
		Short: "List recorded gate decisions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			if repo != "" {
				normalized, err := model.NormalizeRepo(repo)
				if err != nil {
					return err
				}
				repo = normalized
			}

			cfg, _, err := a.loadSettings(slog.LevelWarn)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := a.openStore(ctx, cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := db.Close(); closeErr != nil {
					slog.Error("error closing database", "error", closeErr)
				}
			}()

			evals, err := sqliteadapter.NewDecisionRepo(db).ListByRepo(ctx, repo, limit)
			if err != nil {
				return err
			}

			return cli.RenderHistory(cmd.OutOrStdout(), evals)
		},
	}

	c.Flags().StringVar(&repo, "repo", "", "only list decisions for this repository")
	c.Flags().IntVar(&limit, "limit", 20, "maximum number of decisions to list")

	return c
}
