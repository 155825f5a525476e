// Package cli renders gate evaluations as terminal, markdown, JSON or HTML reports.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ericfisherdev/gatekeeper/internal/adapter/driving/web"
	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

// Format selects the report renderer.
type Format string

const (
	FormatPretty   Format = "pretty"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// Formats lists the accepted report formats in help-text order.
var Formats = []Format{FormatPretty, FormatMarkdown, FormatJSON, FormatHTML}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want one of pretty, md, json, html)", s)
}

// Render writes eval to w in the given format.
func Render(w io.Writer, eval model.Evaluation, format Format) error {
	switch format {
	case FormatPretty:
		return renderPretty(w, eval)
	case FormatMarkdown:
		_, err := io.WriteString(w, renderMarkdown(eval))
		return err
	case FormatJSON:
		return renderJSON(w, eval)
	case FormatHTML:
		page, err := web.DigestPage(eval)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, page)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// ElapsedSeconds rounds the run duration to two decimals.
func ElapsedSeconds(eval model.Evaluation) float64 {
	return math.Round(eval.Duration.Seconds()*100) / 100
}

func renderPretty(w io.Writer, eval model.Evaluation) error {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	label := r.NewStyle().Bold(true)
	decision := r.NewStyle().Bold(true).Foreground(decisionColor(eval.Record.Decision))
	muted := r.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))

	rec := eval.Record
	var lines []string
	lines = append(lines, title.Render("=== Release Gatekeeper ==="))
	lines = append(lines, label.Render("Repo:")+" "+eval.Repo)
	lines = append(lines, label.Render("Decision:")+" "+decision.Render(decisionName(rec.Decision)))
	lines = append(lines, label.Render("Confidence:")+" "+formatConfidence(rec.Confidence))

	lines = append(lines, label.Render("Reasons:"))
	for _, reason := range rec.Reasons {
		lines = append(lines, " - "+reason)
	}
	if len(rec.Evidence) > 0 {
		lines = append(lines, label.Render("Evidence:"))
		for _, e := range rec.Evidence {
			lines = append(lines, " - "+formatEvidence(e))
		}
	}
	if len(rec.PolicyViolations) > 0 {
		lines = append(lines, label.Render("Policy violations:"))
		for _, v := range rec.PolicyViolations {
			lines = append(lines, " - "+v)
		}
	}

	lines = append(lines, label.Render("Target:")+" "+eval.Target.Describe())
	if pr := eval.Target.PullRequest; pr != nil {
		lines = append(lines, label.Render("PR:")+" "+fmt.Sprintf("#%d %s", pr.Number, pr.URL))
	}
	if run, ok := eval.LatestRun(); ok {
		lines = append(lines, label.Render("Latest run:")+" "+formatRun(run))
	}
	lines = append(lines, label.Render("Checks (count):")+fmt.Sprintf(" %d", eval.CheckRunCount()))
	lines = append(lines, label.Render("Blockers (count):")+fmt.Sprintf(" %d", eval.BlockerCount()))

	if eval.Summary != "" {
		lines = append(lines, "", muted.Render("---"), label.Render("Developer Digest:"), "", eval.Summary)
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func renderMarkdown(eval model.Evaluation) string {
	rec := eval.Record
	var b strings.Builder

	b.WriteString("# Release Gatekeeper\n\n")
	fmt.Fprintf(&b, "- **Repo:** `%s`\n", eval.Repo)
	fmt.Fprintf(&b, "- **Decision:** **%s**\n", decisionName(rec.Decision))
	fmt.Fprintf(&b, "- **Confidence:** %s\n", formatConfidence(rec.Confidence))

	b.WriteString("\n## Reasons\n")
	for _, reason := range rec.Reasons {
		fmt.Fprintf(&b, "- %s\n", reason)
	}
	if len(rec.Evidence) > 0 {
		b.WriteString("\n## Evidence\n")
		for _, e := range rec.Evidence {
			fmt.Fprintf(&b, "- `%s`\n", formatEvidence(e))
		}
	}
	if len(rec.PolicyViolations) > 0 {
		b.WriteString("\n## Policy violations\n")
		for _, v := range rec.PolicyViolations {
			fmt.Fprintf(&b, "- %s\n", v)
		}
	}
	if pr := eval.Target.PullRequest; pr != nil {
		b.WriteString("\n## PR\n")
		fmt.Fprintf(&b, "- [#%d](%s) head `%s`\n", pr.Number, pr.URL, pr.HeadSHA)
	}
	if run, ok := eval.LatestRun(); ok {
		b.WriteString("\n## Latest run\n")
		fmt.Fprintf(&b, "- `%s`\n", formatRun(run))
	}

	b.WriteString("\n## Counts\n")
	fmt.Fprintf(&b, "- Checks: %d\n", eval.CheckRunCount())
	fmt.Fprintf(&b, "- Blockers: %d\n", eval.BlockerCount())

	if eval.Summary != "" {
		b.WriteString("\n---\n\n## Developer Digest\n\n")
		b.WriteString(eval.Summary)
		if !strings.HasSuffix(eval.Summary, "\n") {
			b.WriteString("\n")
		}
	}

	return b.String()
}

// jsonReport is the stable machine-readable report subset.
type jsonReport struct {
	Repo             string               `json:"repo"`
	Decision         string               `json:"decision"`
	Confidence       float64              `json:"confidence"`
	Reasons          []string             `json:"reasons"`
	Evidence         []model.EvidenceItem `json:"evidence"`
	PolicyViolations []string             `json:"policy_violations"`
	PR               *jsonPullRequest     `json:"pr"`
	LatestRun        *jsonRun             `json:"latest_run"`
	ChecksCount      int                  `json:"checks_count"`
	BlockersCount    int                  `json:"blockers_count"`
	ElapsedSec       float64              `json:"elapsed_sec"`
}

type jsonPullRequest struct {
	Number     int      `json:"number"`
	HeadSHA    string   `json:"head_sha"`
	BaseBranch string   `json:"base_branch"`
	URL        string   `json:"url"`
	Labels     []string `json:"labels"`
}

type jsonRun struct {
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	URL        string `json:"url"`
}

func renderJSON(w io.Writer, eval model.Evaluation) error {
	rec := eval.Record.Clone()
	report := jsonReport{
		Repo:             eval.Repo,
		Decision:         decisionName(rec.Decision),
		Confidence:       rec.Confidence,
		Reasons:          rec.Reasons,
		Evidence:         rec.Evidence,
		PolicyViolations: rec.PolicyViolations,
		ChecksCount:      eval.CheckRunCount(),
		BlockersCount:    eval.BlockerCount(),
		ElapsedSec:       ElapsedSeconds(eval),
	}
	if pr := eval.Target.PullRequest; pr != nil {
		labels := pr.Labels
		if labels == nil {
			labels = []string{}
		}
		report.PR = &jsonPullRequest{
			Number:     pr.Number,
			HeadSHA:    pr.HeadSHA,
			BaseBranch: pr.BaseBranch,
			URL:        pr.URL,
			Labels:     labels,
		}
	}
	if run, ok := eval.LatestRun(); ok {
		report.LatestRun = &jsonRun{Status: run.Status, Conclusion: run.Conclusion, URL: run.URL}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

func decisionName(d model.Decision) string {
	if d == "" {
		return string(model.DecisionUnknown)
	}
	return string(d)
}

func decisionColor(d model.Decision) lipgloss.Color {
	switch d {
	case model.DecisionGo:
		return lipgloss.Color("#1A7F37")
	case model.DecisionNoGo:
		return lipgloss.Color("#CF222E")
	case model.DecisionPause:
		return lipgloss.Color("#9A6700")
	default:
		return lipgloss.Color("#57606A")
	}
}

func formatConfidence(c float64) string {
	return fmt.Sprintf("%.2f", c)
}

func formatEvidence(e model.EvidenceItem) string {
	ref := e.Source
	if e.Path != "" {
		ref += "." + e.Path
	}
	return fmt.Sprintf("%s = %s", ref, formatValue(e.Value))
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func formatRun(run model.WorkflowRun) string {
	s := run.Status
	if run.Conclusion != "" {
		s += "/" + run.Conclusion
	}
	if run.URL != "" {
		s += " " + run.URL
	}
	return s
}
