// Package config loads application configuration from environment variables
// and the optional YAML gate policy.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

// DefaultListenAddr is the API address used when GATEKEEPER_LISTEN_ADDR is unset.
const DefaultListenAddr = "127.0.0.1:8080"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken   string
	JudgeURL      string
	JudgeToken    string
	JudgeModel    string
	JudgeTimeout  time.Duration
	DBPath        string
	ListenAddr    string
	PolicyPath    string
	LogLevel      string
	WatchRepos    []string
	WatchInterval time.Duration
}

// HasJudgeEndpoint reports whether a remote judge is configured. Without one
// the composition root falls back to the offline heuristic judge.
func (c *Config) HasJudgeEndpoint() bool {
	return c.JudgeURL != ""
}

// SlogLevel returns the configured log level, or fallback when none is set.
func (c *Config) SlogLevel(fallback slog.Level) slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// Load reads configuration from environment variables and returns a validated Config.
// The GitHub token is optional (GATEKEEPER_GITHUB_TOKEN, falling back to GITHUB_TOKEN);
// without it requests are unauthenticated and heavily rate limited.
// Optional variables with defaults: GATEKEEPER_JUDGE_TIMEOUT (60s),
// GATEKEEPER_DB_PATH (gatekeeper.db), GATEKEEPER_LISTEN_ADDR (127.0.0.1:8080),
// GATEKEEPER_WATCH_INTERVAL (5m).
func Load() (*Config, error) {
	token := os.Getenv("GATEKEEPER_GITHUB_TOKEN")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	judgeTimeout, err := durationEnv("GATEKEEPER_JUDGE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	watchInterval, err := durationEnv("GATEKEEPER_WATCH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	dbPath := "gatekeeper.db"
	if v, ok := os.LookupEnv("GATEKEEPER_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	listenAddr := DefaultListenAddr
	if v, ok := os.LookupEnv("GATEKEEPER_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	logLevel := strings.ToLower(strings.TrimSpace(os.Getenv("GATEKEEPER_LOG_LEVEL")))
	switch logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("GATEKEEPER_LOG_LEVEL has invalid level %q: want debug, info, warn or error", logLevel)
	}

	watchRepos := []string{}
	for _, raw := range SplitList(os.Getenv("GATEKEEPER_WATCH_REPOS")) {
		repo, err := model.NormalizeRepo(raw)
		if err != nil {
			return nil, fmt.Errorf("GATEKEEPER_WATCH_REPOS: %w", err)
		}
		watchRepos = append(watchRepos, repo)
	}

	return &Config{
		GitHubToken:   token,
		JudgeURL:      os.Getenv("GATEKEEPER_JUDGE_URL"),
		JudgeToken:    os.Getenv("GATEKEEPER_JUDGE_TOKEN"),
		JudgeModel:    os.Getenv("GATEKEEPER_JUDGE_MODEL"),
		JudgeTimeout:  judgeTimeout,
		DBPath:        dbPath,
		ListenAddr:    listenAddr,
		PolicyPath:    os.Getenv("GATEKEEPER_POLICY_PATH"),
		LogLevel:      logLevel,
		WatchRepos:    watchRepos,
		WatchInterval: watchInterval,
	}, nil
}

// SplitList splits a comma separated list, trimming whitespace and dropping
// empty entries. It never returns nil.
func SplitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}
