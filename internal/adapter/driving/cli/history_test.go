package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

func TestRenderHistory(t *testing.T) {
	pause := model.Evaluation{
		ID:     "run-2",
		Repo:   "o/r",
		Target: model.BranchHeadTarget("", "main"),
		Record: model.DecisionRecord{Decision: model.DecisionPause, Confidence: 0},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, []model.Evaluation{pause, noGoEvaluation()}))

	out := buf.String()
	assert.Contains(t, out, "DECISION")
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "branch head (main)")
	assert.Contains(t, out, "PAUSE")
	assert.Contains(t, out, "run-9")
	assert.Contains(t, out, "PR #42")
	assert.Contains(t, out, "NO_GO")
	assert.Contains(t, out, "2026-03-01 08:00:00")
	assert.Contains(t, out, "2.35s")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("run-2")), bytes.Index(buf.Bytes(), []byte("run-9")))
}

func TestRenderHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, nil))
	assert.Equal(t, "No decisions recorded.\n", buf.String())
}
