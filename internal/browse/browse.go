// Package browse is the read-only terminal browser over an open catalog.
// It loads every family up front and navigates in memory; nothing here
// writes through the catalog.
package browse

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/schemakeep/schemakeep/internal/catalog"
)

// Run loads the catalog contents and drives the browser until the user
// quits.
func Run(ctx context.Context, cat *catalog.Catalog) error {
	tables, err := cat.Tables(ctx)
	if err != nil {
		return fmt.Errorf("loading tables: %w", err)
	}
	indexes, err := cat.Indexes(ctx)
	if err != nil {
		return fmt.Errorf("loading indexes: %w", err)
	}
	datatypes, err := cat.DataTypes(ctx)
	if err != nil {
		return fmt.Errorf("loading datatypes: %w", err)
	}

	m := NewModel(cat.Backend(), tables, indexes, datatypes)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running catalog browser: %w", err)
	}
	return nil
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).BorderStyle(lipgloss.DoubleBorder()).BorderBottom(true).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	summaryStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-1] + "…"
}

func formatTuples(t float64) string {
	if t <= 0 {
		return "-"
	}
	if t >= 1_000_000 {
		return fmt.Sprintf("%.1fM", t/1_000_000)
	}
	if t >= 1_000 {
		return fmt.Sprintf("%.1fK", t/1_000)
	}
	return fmt.Sprintf("%.0f", t)
}
