package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultBaseBranch is the release branch used when no policy sets one.
const DefaultBaseBranch = "main"

// DefaultBlockerLabels is the default blocker label filter.
var DefaultBlockerLabels = []string{"release-blocker", "P1"}

// Policy holds the per-deployment gate defaults. Command-line flags and API
// request fields override it.
type Policy struct {
	BaseBranch       string   `yaml:"base_branch"`
	BlockerLabels    []string `yaml:"blocker_labels"`
	PullRequestLabel string   `yaml:"pull_request_label"`
	MinEvidence      int      `yaml:"min_evidence"`
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		BaseBranch:    DefaultBaseBranch,
		BlockerLabels: append([]string{}, DefaultBlockerLabels...),
	}
}

// LoadPolicy reads a YAML policy file. ${VAR} references are expanded from the
// environment before parsing. Keys absent from the file keep their defaults.
// An empty path returns DefaultPolicy.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path) // #nosec G304 -- operator-provided policy path.
	if err != nil {
		return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	if err := yaml.Unmarshal([]byte(expanded), &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}

	return p, p.Validate()
}

// Validate checks the policy for values the gate cannot run with.
func (p Policy) Validate() error {
	if strings.TrimSpace(p.BaseBranch) == "" {
		return fmt.Errorf("base_branch is required")
	}
	if p.MinEvidence < 0 {
		return fmt.Errorf("min_evidence must not be negative, got %d", p.MinEvidence)
	}
	if len(p.BlockerLabels) == 0 {
		return fmt.Errorf("blocker_labels must name at least one label")
	}
	for _, label := range p.BlockerLabels {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("blocker_labels must not contain empty labels")
		}
	}
	return nil
}
