package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/gatekeeper/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/gatekeeper/internal/adapter/driving/cli"
	"github.com/ericfisherdev/gatekeeper/internal/application"
	"github.com/ericfisherdev/gatekeeper/internal/config"
	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

type checkOptions struct {
	repo          string
	baseBranch    string
	blockerLabels string
	prLabel       string
	format        string
	model         string
	minEvidence   int
	noStore       bool
}

func checkCmd(a *app) *cobra.Command {
	var opts checkOptions

	c := &cobra.Command{
		Use:   "check",
		Short: "Evaluate the release gate once and exit with the decision's code",
		Long: "Evaluate the release gate for one repository and print the report.\n" +
			"Exit codes: GO 0, PAUSE 1, NO_GO 2, anything else 3.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCheck(cmd, opts)
		},
	}

	f := c.Flags()
	f.StringVar(&opts.repo, "repo", "", "repository as owner/name or GitHub URL (defaults to GITHUB_REPOSITORY)")
	f.StringVar(&opts.baseBranch, "base-branch", config.DefaultBaseBranch, "release base branch")
	f.StringVar(&opts.blockerLabels, "blocker-labels", "release-blocker,P1", "comma separated labels an open issue must all carry to block")
	f.StringVar(&opts.prLabel, "pr-label", "", "only consider open pull requests carrying this label")
	f.StringVar(&opts.format, "format", string(cli.FormatPretty), "report format: pretty, md, json or html")
	f.StringVar(&opts.model, "model", "", "judge model id (overrides GATEKEEPER_JUDGE_MODEL)")
	f.IntVar(&opts.minEvidence, "min-evidence", 0, "minimum evidence citations for GO and NO_GO judgments")
	f.BoolVar(&opts.noStore, "no-store", false, "do not record the decision in the history database")

	return c
}

func (a *app) runCheck(cmd *cobra.Command, opts checkOptions) error {
	format, err := cli.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, policy, err := a.loadSettings(slog.LevelWarn)
	if err != nil {
		return err
	}

	rawRepo := opts.repo
	if rawRepo == "" {
		rawRepo = os.Getenv("GITHUB_REPOSITORY")
	}
	if rawRepo == "" {
		return errors.New("no repository given: pass --repo or set GITHUB_REPOSITORY")
	}
	repo, err := model.NormalizeRepo(rawRepo)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	req := application.GateRequest{
		Repo:             repo,
		BaseBranch:       policy.BaseBranch,
		BlockerLabels:    policy.BlockerLabels,
		PullRequestLabel: policy.PullRequestLabel,
	}
	if flags.Changed("base-branch") {
		req.BaseBranch = opts.baseBranch
	}
	if flags.Changed("blocker-labels") {
		// An empty filter would match every open issue.
		labels := config.SplitList(opts.blockerLabels)
		if len(labels) == 0 {
			return errors.New("--blocker-labels must name at least one label")
		}
		req.BlockerLabels = labels
	}
	if flags.Changed("pr-label") {
		req.PullRequestLabel = opts.prLabel
	}

	minEvidence := policy.MinEvidence
	if flags.Changed("min-evidence") {
		if opts.minEvidence < 0 {
			return fmt.Errorf("--min-evidence must not be negative, got %d", opts.minEvidence)
		}
		minEvidence = opts.minEvidence
	}

	modelID := cfg.JudgeModel
	if opts.model != "" {
		modelID = opts.model
	}

	gateOpts := []application.GateOption{application.WithMinEvidence(minEvidence)}

	ctx := cmd.Context()
	if !opts.noStore {
		db, err := a.openStore(ctx, cfg.DBPath)
		if err != nil {
			slog.Warn("decision history unavailable, continuing without it", "path", cfg.DBPath, "error", err)
		} else {
			defer func() {
				if closeErr := db.Close(); closeErr != nil {
					slog.Error("error closing database", "error", closeErr)
				}
			}()
			gateOpts = append(gateOpts, application.WithDecisionStore(sqliteadapter.NewDecisionRepo(db)))
		}
	}

	gate := application.NewGateService(a.newSource(cfg), a.newJudge(cfg, modelID), gateOpts...)

	eval, err := gate.Evaluate(ctx, req)
	if err != nil {
		return fmt.Errorf("gate run abandoned: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := cli.Render(out, *eval, format); err != nil {
		return err
	}
	if format == cli.FormatPretty || format == cli.FormatMarkdown {
		fmt.Fprintf(out, "\n(Elapsed: %.2fs)\n", cli.ElapsedSeconds(*eval))
	}

	if code := eval.Record.Decision.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}
