package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

// RenderHistory writes stored evaluations as a table, newest first as given.
func RenderHistory(w io.Writer, evals []model.Evaluation) error {
	if len(evals) == 0 {
		_, err := io.WriteString(w, "No decisions recorded.\n")
		return err
	}

	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("STARTED", "REPO", "TARGET", "DECISION", "CONF", "ELAPSED", "ID").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 3 && row >= 0 && row < len(evals) {
				return cell.Foreground(decisionColor(evals[row].Record.Decision))
			}
			return cell
		})

	for _, e := range evals {
		t.Row(
			e.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			e.Repo,
			e.Target.Describe(),
			decisionName(e.Record.Decision),
			formatConfidence(e.Record.Confidence),
			fmt.Sprintf("%.2fs", ElapsedSeconds(e)),
			e.ID,
		)
	}

	_, err := io.WriteString(w, t.String()+"\n")
	return err
}
