package application_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/gatekeeper/internal/application"
	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

func testView() model.SignalsView {
	pr := model.PullRequestRef{Number: 42, HeadSHA: "deadbeef", BaseBranch: "main", URL: "https://github.com/o/r/pull/42"}
	snap := model.NewSnapshot("o/r", model.PullRequestTarget(pr, "main"),
		&model.WorkflowRun{Status: "completed", Conclusion: "success", URL: "https://run/1"},
		[]model.CheckRun{
			{Name: "lint", Conclusion: "success", URL: "https://check/1"},
			{Name: "e2e", Conclusion: "", URL: "https://check/2"},
		},
		[]model.Issue{{Title: "data loss", Labels: []string{"release-blocker", "P1"}, URL: "https://issue/9"}},
	)
	return snap.View()
}

func TestNormalizeEvidencePath(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		source string
		want   string
		ok     bool
	}{
		{name: "already rooted", raw: "actions.latest_run.conclusion", source: "actions", want: "actions.latest_run.conclusion", ok: true},
		{name: "prefix added", raw: "latest_run.conclusion", source: "actions", want: "actions.latest_run.conclusion", ok: true},
		{name: "brackets rewritten", raw: "runs[0].conclusion", source: "checks", want: "checks.runs.0.conclusion", ok: true},
		{name: "rooted brackets", raw: "checks.runs[1].name", source: "checks", want: "checks.runs.1.name", ok: true},
		{name: "surrounding whitespace", raw: "  checks.runs.0  ", source: "checks", want: "checks.runs.0", ok: true},
		{name: "bare section", raw: "target", source: "target", want: "target", ok: true},
		{name: "empty blockers path", raw: "", source: "blockers", want: "blockers", ok: true},
		{name: "list literal blockers path", raw: "[]", source: "blockers", want: "blockers", ok: true},
		{name: "blockers[] placeholder", raw: "blockers[]", source: "blockers", want: "blockers", ok: true},
		{name: "indexed blocker", raw: "blockers[0].title", source: "blockers", want: "blockers.0.title", ok: true},
		{name: "stray blocker path collapses", raw: "open_issues", source: "blockers", want: "blockers", ok: true},
		{name: "unknown source untouched", raw: "repo", source: "repo", want: "repo", ok: true},
		{name: "empty path for checks", raw: "", source: "checks", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := application.NormalizeEvidencePath(tt.raw, tt.source)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePath(t *testing.T) {
	view := testView()

	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{path: "repo", want: "o/r", found: true},
		{path: "target.number", want: 42, found: true},
		{path: "actions.latest_run.conclusion", want: "success", found: true},
		{path: "checks.runs.0.name", want: "lint", found: true},
		{path: "checks.runs.1.conclusion", want: nil, found: true},
		{path: "blockers.0.labels.1", want: "P1", found: true},
		{path: "checks.runs.2.name", found: false},
		{path: "checks.runs.-1.name", found: false},
		{path: "checks.runs.first.name", found: false},
		{path: "checks.runs.+0.name", found: false},
		{path: "actions.latest_run.conclusion.value", found: false},
		{path: "actions.nope", found: false},
		{path: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, found := application.ResolvePath(view, tt.path)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResolvePath_WholeSections(t *testing.T) {
	view := testView()

	blockers, found := application.ResolvePath(view, "blockers")
	require.True(t, found)
	assert.Len(t, blockers, 1)

	runs, found := application.ResolvePath(view, "checks.runs")
	require.True(t, found)
	assert.Len(t, runs, 2)
}

// Every leaf reachable in the view resolves to the stored value, through both
// dot and bracket index notation.
func TestResolvePath_RoundTripAllLeaves(t *testing.T) {
	view := testView()

	var walk func(prefix, bracket string, node any)
	walk = func(prefix, bracket string, node any) {
		switch n := node.(type) {
		case map[string]any:
			for k, v := range n {
				walk(join(prefix, k), join(bracket, k), v)
			}
		case []any:
			for i, v := range n {
				idx := strconv.Itoa(i)
				walk(prefix+"."+idx, bracket+"["+idx+"]", v)
			}
		default:
			got, found := application.ResolvePath(view, prefix)
			require.True(t, found, prefix)
			assert.Equal(t, n, got, prefix)

			normalized, ok := application.NormalizeEvidencePath(bracket, "")
			require.True(t, ok)
			viaBracket, found := application.ResolvePath(view, normalized)
			require.True(t, found, bracket)
			assert.Equal(t, n, viaBracket, bracket)
		}
	}
	for k, v := range view {
		walk(k, k, v)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func TestVerifyEvidence_Accepts(t *testing.T) {
	view := testView()

	ok, violations := application.VerifyEvidence([]model.EvidenceItem{
		{Source: "actions", Path: "latest_run.conclusion", Value: "success"},
		{Source: "checks", Path: "runs[0].conclusion", Value: "success"},
		{Source: "checks", Path: "checks.runs.1.conclusion", Value: nil},
		{Source: "target", Path: "number", Value: float64(42)},
		{Source: "target", Path: "number", Value: "42"},
		{Source: "blockers", Path: "blockers.0.title", Value: "data loss"},
		{Source: "blockers", Path: "blockers.0.labels", Value: []any{"release-blocker", "P1"}},
	}, view)

	assert.True(t, ok)
	assert.Empty(t, violations)
}

func TestVerifyEvidence_EmptyIsAccepted(t *testing.T) {
	ok, violations := application.VerifyEvidence(nil, testView())
	assert.True(t, ok)
	assert.Empty(t, violations)
}

func TestVerifyEvidence_EmptyBlockerList(t *testing.T) {
	view := model.NewSnapshot("o/r", model.BranchHeadTarget("abc", "main"), successRun, nil, nil).View()

	ok, violations := application.VerifyEvidence([]model.EvidenceItem{
		{Source: "blockers", Path: "", Value: []any{}},
		{Source: "blockers", Path: "blockers", Value: "[]"},
	}, view)

	assert.True(t, ok)
	assert.Empty(t, violations)
}

func TestVerifyEvidence_Rejects(t *testing.T) {
	tests := []struct {
		name string
		item model.EvidenceItem
		want string
	}{
		{
			name: "value mismatch",
			item: model.EvidenceItem{Source: "checks", Path: "runs.0.conclusion", Value: "failure"},
			want: `evidence[0]: value mismatch at 'checks.runs.0.conclusion': actual="success" claimed="failure"`,
		},
		{
			name: "path not found",
			item: model.EvidenceItem{Source: "checks", Path: "runs[5].conclusion", Value: "success"},
			want: "evidence[0]: path 'runs[5].conclusion' -> 'checks.runs.5.conclusion' not found",
		},
		{
			name: "missing path",
			item: model.EvidenceItem{Source: "actions", Path: "", Value: "success"},
			want: "evidence[0]: missing/invalid path",
		},
		{
			name: "numeric mismatch",
			item: model.EvidenceItem{Source: "target", Path: "number", Value: float64(41)},
			want: "evidence[0]: value mismatch at 'target.number': actual=42 claimed=41",
		},
		{
			name: "blocker count claimed as empty",
			item: model.EvidenceItem{Source: "blockers", Path: "[]", Value: []any{}},
			want: `evidence[0]: value mismatch at 'blockers': actual=[{"labels":["release-blocker","P1"],"title":"data loss","url":"https://issue/9"}] claimed=[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, violations := application.VerifyEvidence([]model.EvidenceItem{tt.item}, testView())
			assert.False(t, ok)
			assert.Equal(t, []string{tt.want}, violations)
		})
	}
}

func TestVerifyEvidence_ReportsEveryBadItem(t *testing.T) {
	ok, violations := application.VerifyEvidence([]model.EvidenceItem{
		{Source: "actions", Path: "latest_run.conclusion", Value: "success"},
		{Source: "actions", Path: "latest_run.status", Value: "queued"},
		{Source: "checks", Path: "runs.9", Value: "x"},
	}, testView())

	assert.False(t, ok)
	require.Len(t, violations, 2)
	assert.Contains(t, violations[0], "evidence[1]: value mismatch")
	assert.Contains(t, violations[1], "evidence[2]: path")
}

func TestVerifyEvidence_EmptyStringIsNotNull(t *testing.T) {
	view := model.NewSnapshot("o/r", model.BranchHeadTarget("abc", "main"), successRun, nil, nil).View()

	ok, violations := application.VerifyEvidence([]model.EvidenceItem{
		{Source: "target", Path: "number", Value: ""},
	}, view)

	assert.False(t, ok)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "value mismatch at 'target.number'")
}

func TestVerifyEvidence_LooseEquality(t *testing.T) {
	view := model.SignalsView{
		"flags": map[string]any{"draft": true, "count": 0, "missing": nil, "blank": ""},
	}

	tests := []struct {
		name    string
		path    string
		claimed any
		ok      bool
	}{
		{name: "bool vs capitalized string", path: "flags.draft", claimed: "True", ok: true},
		{name: "bool vs string", path: "flags.draft", claimed: "true", ok: true},
		{name: "bool mismatch", path: "flags.draft", claimed: false, ok: false},
		{name: "int vs string", path: "flags.count", claimed: "0", ok: true},
		{name: "int vs float", path: "flags.count", claimed: float64(0), ok: true},
		{name: "null vs None", path: "flags.missing", claimed: "None", ok: true},
		{name: "null vs value", path: "flags.missing", claimed: "failure", ok: false},
		{name: "null vs empty string", path: "flags.missing", claimed: "", ok: false},
		{name: "empty string vs nil", path: "flags.blank", claimed: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, _ := application.VerifyEvidence([]model.EvidenceItem{{Source: "flags", Path: tt.path, Value: tt.claimed}}, view)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
