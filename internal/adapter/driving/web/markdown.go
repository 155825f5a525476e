// Package web renders gate decision digests as sanitized HTML.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// RenderMarkdown converts a markdown string to sanitized HTML.
// Returns empty string for empty input.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

var pageTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
.badge { display: inline-block; padding: .2rem .6rem; border-radius: .3rem; color: #fff; font-weight: 600; }
.decision-go { background: #1a7f37; }
.decision-no-go { background: #cf222e; }
.decision-pause { background: #9a6700; }
.decision-unknown { background: #57606a; }
</style>
</head>
<body>
<h1>{{.Title}} <span class="badge {{.BadgeClass}}">{{.Decision}}</span></h1>
{{.Body}}
</body>
</html>
`))

type pageData struct {
	Title      string
	Decision   string
	BadgeClass string
	Body       template.HTML
}

// DigestPage renders an evaluation's markdown digest as a standalone HTML
// document headed by the repository and a decision badge.
func DigestPage(eval model.Evaluation) (string, error) {
	decision := string(eval.Record.Decision)
	if decision == "" {
		decision = string(model.DecisionUnknown)
	}

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		Title:      "Release gate: " + eval.Repo,
		Decision:   decision,
		BadgeClass: "decision-" + strings.ReplaceAll(strings.ToLower(decision), "_", "-"),
		// RenderMarkdown output is already sanitized.
		Body: template.HTML(RenderMarkdown(eval.Summary)),
	})
	if err != nil {
		return "", fmt.Errorf("render digest page: %w", err)
	}

	return buf.String(), nil
}
