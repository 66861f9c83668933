package views

import (
	"fmt"

	"acsync/internal/core"
	"acsync/internal/domain"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// CancelInstallMsg asks the app to stop the run after the current mod
type CancelInstallMsg struct{}

// Progress shows a running install. It never touches the pipeline; the app
// feeds it snapshots.
type Progress struct {
	snap       core.Snapshot
	bar        progress.Model
	spinner    spinner.Model
	cancelling bool
	width      int
}

// NewProgress creates a progress view for a run of total mods
func NewProgress(total int) Progress {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Progress{
		snap:    core.Snapshot{Total: total},
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(60)),
		spinner: s,
		width:   80,
	}
}

// WithSnapshot returns the view showing snap
func (p Progress) WithSnapshot(snap core.Snapshot) Progress {
	p.snap = snap
	return p
}

// Snapshot returns the state being shown
func (p Progress) Snapshot() core.Snapshot {
	return p.snap
}

// Cancelling reports whether the user asked to stop
func (p Progress) Cancelling() bool {
	return p.cancelling
}

// Init implements tea.Model
func (p Progress) Init() tea.Cmd {
	return p.spinner.Tick
}

// Update implements tea.Model
func (p Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			if p.cancelling || p.snap.Finished {
				return p, nil
			}
			p.cancelling = true
			return p, func() tea.Msg { return CancelInstallMsg{} }
		}
		return p, nil

	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.bar.Width = min(msg.Width-4, 80)
		return p, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	}

	return p, nil
}

// View implements tea.Model
func (p Progress) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	output := titleStyle.Render("Installing") + "\n"

	text := p.snap.Text
	if text == "" {
		text = "Starting..."
	}
	output += p.spinner.View() + " " + text + "\n\n"
	output += p.bar.ViewAs(p.snap.Fraction()) + "\n"

	if p.snap.Stage == domain.StageDownloading && p.snap.DownloadTotal > 0 {
		output += infoStyle.Render(fmt.Sprintf("%s of %s",
			formatMB(p.snap.Downloaded), formatMB(p.snap.DownloadTotal))) + "\n"
	}

	output += infoStyle.Render(fmt.Sprintf("%d installed, %d failed, %d of %d started",
		len(p.snap.Successful), len(p.snap.Errors), p.snap.Attempted, p.snap.Total)) + "\n"

	for _, e := range p.snap.Errors {
		output += errorStyle.Render("✗ "+e) + "\n"
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	if p.cancelling {
		output += helpStyle.Render("Stopping after the current mod...")
	} else {
		output += helpStyle.Render("esc: stop after the current mod")
	}

	return output
}

func formatMB(n int64) string {
	return fmt.Sprintf("%.1fM", float64(n)/1024/1024)
}
