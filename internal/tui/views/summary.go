package views

import (
	"strings"

	"acsync/internal/core"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SummaryDismissedMsg is sent when the user closes the summary
type SummaryDismissedMsg struct{}

// Summary shows the report of a finished run
type Summary struct {
	snap core.Snapshot
}

// NewSummary creates a summary view for a finished run
func NewSummary(snap core.Snapshot) Summary {
	return Summary{snap: snap}
}

// Text returns the plain report
func (s Summary) Text() string {
	return core.Summary(s.snap)
}

// Init implements tea.Model
func (s Summary) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s Summary) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter", "esc", " ":
			return s, func() tea.Msg { return SummaryDismissedMsg{} }
		}
	}
	return s, nil
}

// View implements tea.Model
func (s Summary) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	okStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("82"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	output := titleStyle.Render("Summary") + "\n"

	lines := strings.Split(strings.TrimRight(s.Text(), "\n"), "\n")
	output += okStyle.Render(lines[0]) + "\n"
	for _, line := range lines[1:] {
		output += errorStyle.Render(line) + "\n"
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	output += helpStyle.Render("enter: back to the mod list")

	return output
}
