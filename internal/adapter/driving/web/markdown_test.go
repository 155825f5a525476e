package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

func TestRenderMarkdown_EmptyInput(t *testing.T) {
	assert.Equal(t, "", RenderMarkdown(""))
}

func TestRenderMarkdown_DigestSections(t *testing.T) {
	result := RenderMarkdown("### Overview\n\no/r (PR #7): decision **GO** (confidence 0.90).\n\n- lint: success\n")

	assert.Contains(t, result, "<h3")
	assert.Contains(t, result, "Overview")
	assert.Contains(t, result, "<strong>GO</strong>")
	assert.Contains(t, result, "<li>lint: success</li>")
}

func TestRenderMarkdown_Link(t *testing.T) {
	result := RenderMarkdown("- PR: [#7](https://github.com/o/r/pull/7)")
	assert.Contains(t, result, `<a href="https://github.com/o/r/pull/7"`)
}

func TestRenderMarkdown_AutolinksBareURLs(t *testing.T) {
	result := RenderMarkdown("- Workflow: https://github.com/o/r/actions/runs/1")
	assert.Contains(t, result, `href="https://github.com/o/r/actions/runs/1"`)
}

func TestRenderMarkdown_SanitizesScript(t *testing.T) {
	// Check names and reasons come from external systems.
	result := RenderMarkdown("- evil: <script>alert(\"xss\")</script>\n- <img src=x onerror=alert(1)>")
	assert.NotContains(t, result, "<script>")
	assert.NotContains(t, result, "onerror")
}

func TestDigestPage(t *testing.T) {
	page, err := DigestPage(model.Evaluation{
		Repo:    "o/r",
		Record:  model.DecisionRecord{Decision: model.DecisionNoGo},
		Summary: "### Overview\n\n<script>x()</script> blocked\n",
	})
	require.NoError(t, err)

	assert.Contains(t, page, "<!DOCTYPE html>")
	assert.Contains(t, page, "<title>Release gate: o/r</title>")
	assert.Contains(t, page, `class="badge decision-no-go"`)
	assert.Contains(t, page, "NO_GO")
	assert.Contains(t, page, "blocked")
	assert.NotContains(t, page, "<script>")
}

func TestDigestPage_EscapesTitle(t *testing.T) {
	page, err := DigestPage(model.Evaluation{Repo: "<b>o</b>/r"})
	require.NoError(t, err)

	assert.Contains(t, page, "&lt;b&gt;o&lt;/b&gt;/r")
	assert.Contains(t, page, "UNKNOWN")
}
