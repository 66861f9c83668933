package views

import (
	"fmt"

	"acsync/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ForgetModMsg is sent to drop a mod from the installed record
type ForgetModMsg struct {
	Checksum string
}

// Installed is the installed record view
type Installed struct {
	mods     []domain.InstalledMod
	names    map[string]string // checksum -> filename, when the catalog knows it
	selected int
	width    int
	height   int
}

// NewInstalled creates a new installed mods view
func NewInstalled(mods []domain.InstalledMod, names map[string]string) Installed {
	return Installed{
		mods:   mods,
		names:  names,
		width:  80,
		height: 24,
	}
}

// Selected returns the currently selected index
func (m Installed) Selected() int {
	return m.selected
}

// ModCount returns the number of installed mods
func (m Installed) ModCount() int {
	return len(m.mods)
}

// SelectedMod returns the currently selected mod
func (m Installed) SelectedMod() *domain.InstalledMod {
	if len(m.mods) == 0 || m.selected >= len(m.mods) {
		return nil
	}
	return &m.mods[m.selected]
}

// Init implements tea.Model
func (m Installed) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Installed) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	return m, nil
}

func (m Installed) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.mods) == 0 {
		return m, nil
	}

	switch msg.String() {
	case "up":
		m.selected--
		if m.selected < 0 {
			m.selected = len(m.mods) - 1
		}
		return m, nil

	case "down":
		m.selected++
		if m.selected >= len(m.mods) {
			m.selected = 0
		}
		return m, nil

	case "d", "delete":
		mod := m.SelectedMod()
		if mod != nil {
			return m, func() tea.Msg {
				return ForgetModMsg{Checksum: mod.Checksum}
			}
		}
		return m, nil

	case "home", "g":
		m.selected = 0
		return m, nil

	case "end", "G":
		m.selected = len(m.mods) - 1
		return m, nil
	}

	return m, nil
}

// View implements tea.Model
func (m Installed) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	itemStyle := lipgloss.NewStyle().
		PaddingLeft(2)

	selectedStyle := lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(lipgloss.Color("205")).
		Bold(true)

	output := titleStyle.Render("Installed Mods") + "\n"

	if len(m.mods) == 0 {
		output += itemStyle.Render("No mods installed yet.") + "\n\n"
		output += infoStyle.Render("Pick mods in [1] and press enter to install them.") + "\n"
		return output
	}

	output += infoStyle.Render(fmt.Sprintf("%d mods:", len(m.mods))) + "\n\n"

	for i, mod := range m.mods {
		cursor := "  "
		style := itemStyle
		if i == m.selected {
			cursor = "▸ "
			style = selectedStyle
		}

		name := m.names[mod.Checksum]
		if name == "" {
			name = "(not in catalog)"
		}
		line := fmt.Sprintf("%s%-40s %s  %s", cursor, name, mod.Checksum, mod.InstalledAt.Format("2006-01-02"))
		output += style.Render(line) + "\n"
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	output += helpStyle.Render("↑/↓: navigate  d: forget (allows reinstall)")

	return output
}
