package cli

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
)

// NewStyledTable creates a lipgloss table with the default queued styling.
func NewStyledTable(headers ...string) *ltable.Table {
	t := DefaultPalette
	header := lipgloss.NewStyle().Bold(true).Foreground(t.Orange).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(t.Muted).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return header
			}
			return cell
		})
}

// SimpleTable renders headers and rows as a styled table.
func SimpleTable(headers []string, rows [][]string) string {
	return NewStyledTable(headers...).Rows(rows...).Render()
}
