package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/gatekeeper/internal/adapter/driven/github"
	judgeadapter "github.com/ericfisherdev/gatekeeper/internal/adapter/driven/judge"
	sqliteadapter "github.com/ericfisherdev/gatekeeper/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/gatekeeper/internal/config"
	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
	"github.com/ericfisherdev/gatekeeper/internal/domain/port/driven"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, newApp(), os.Args[1:])
	stop()
	os.Exit(code)
}

// exitError carries a process exit code out of a command without printing
// anything further.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// execute runs the root command and maps its outcome to an exit code. Usage
// and configuration errors use the same code as an UNKNOWN decision.
func execute(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	fmt.Fprintln(a.stderr, "error:", err)
	return model.DecisionUnknown.ExitCode()
}

// app holds the process-level dependencies of every command. Tests replace
// the factories to run commands against fakes.
type app struct {
	stdout io.Writer
	stderr io.Writer

	policyPath string

	newSource func(cfg *config.Config) driven.SignalSource
	newJudge  func(cfg *config.Config, modelID string) driven.Judge
	openStore func(ctx context.Context, path string) (*sqliteadapter.DB, error)
}

func newApp() *app {
	return &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		newSource: func(cfg *config.Config) driven.SignalSource {
			return githubadapter.NewClient(cfg.GitHubToken)
		},
		newJudge:  newJudge,
		openStore: sqliteadapter.Open,
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gatekeeper",
		Short:         "Release gate for GitHub repositories",
		Long:          "gatekeeper decides GO, NO_GO or PAUSE for a release from CI status, checks and blocker issues.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&a.policyPath, "policy", "", "path to a YAML gate policy (overrides GATEKEEPER_POLICY_PATH)")

	cmd.AddCommand(checkCmd(a))
	cmd.AddCommand(serveCmd(a))
	cmd.AddCommand(historyCmd(a))

	return cmd
}

// loadSettings loads the environment configuration and the gate policy, and
// installs the default logger on stderr.
func (a *app) loadSettings(defaultLevel slog.Level) (*config.Config, config.Policy, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Policy{}, err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(defaultLevel),
	})))

	path := cfg.PolicyPath
	if a.policyPath != "" {
		path = a.policyPath
	}

	policy, err := config.LoadPolicy(path)
	if err != nil {
		return nil, config.Policy{}, err
	}
	if path != "" {
		slog.Info("gate policy loaded", "path", path)
	}

	return cfg, policy, nil
}

func newJudge(cfg *config.Config, modelID string) driven.Judge {
	if !cfg.HasJudgeEndpoint() {
		slog.Info("no judge endpoint configured, using heuristic judge")
		return judgeadapter.NewHeuristicJudge()
	}

	slog.Info("using http judge", "endpoint", cfg.JudgeURL, "model", modelID, "timeout", cfg.JudgeTimeout)
	return judgeadapter.NewHTTPJudge(cfg.JudgeURL, cfg.JudgeToken, modelID, cfg.JudgeTimeout)
}
