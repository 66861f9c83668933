package views

import (
	"fmt"

	"acsync/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SettingsData holds the current settings values
type SettingsData struct {
	InstallPath     string
	Server          string
	PlacementMethod domain.PlacementMethod
	Keybindings     string
}

// SettingsChangedMsg is sent when settings are modified
type SettingsChangedMsg struct {
	Settings SettingsData
}

// settingItem represents a single setting
type settingItem struct {
	name        string
	description string
	options     []string
	current     int
}

// Settings is the settings view. Install path and server are shown read-only;
// they are set from the command line.
type Settings struct {
	settings SettingsData
	items    []settingItem
	selected int
	width    int
	height   int
}

// NewSettings creates a new settings view
func NewSettings(settings SettingsData) Settings {
	keybindingsIdx := 0
	if settings.Keybindings == "standard" {
		keybindingsIdx = 1
	}

	items := []settingItem{
		{
			name:        "Placement",
			description: "How extracted files are put into the game directory",
			options:     []string{"move", "copy"},
			current:     int(settings.PlacementMethod),
		},
		{
			name:        "Keybindings",
			description: "Keyboard navigation style",
			options:     []string{"vim", "standard"},
			current:     keybindingsIdx,
		},
	}

	return Settings{
		settings: settings,
		items:    items,
		width:    80,
		height:   24,
	}
}

// Selected returns the currently selected setting index
func (s Settings) Selected() int {
	return s.selected
}

// CurrentSettings returns the current settings values
func (s Settings) CurrentSettings() SettingsData {
	return s.settings
}

// Init implements tea.Model
func (s Settings) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s Settings) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		return s, nil
	}

	return s, nil
}

func (s Settings) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up":
		s.selected--
		if s.selected < 0 {
			s.selected = len(s.items) - 1
		}
		return s, nil

	case "down":
		s.selected++
		if s.selected >= len(s.items) {
			s.selected = 0
		}
		return s, nil

	case "enter", " ", "right", "l":
		return s.cycle(1)

	case "left", "h":
		return s.cycle(-1)
	}

	return s, nil
}

func (s Settings) cycle(step int) (tea.Model, tea.Cmd) {
	items := append([]settingItem(nil), s.items...)
	item := &items[s.selected]
	item.current = (item.current + step + len(item.options)) % len(item.options)
	s.items = items

	s.settings.PlacementMethod = domain.PlacementMethod(s.items[0].current)
	s.settings.Keybindings = s.items[1].options[s.items[1].current]

	settings := s.settings
	return s, func() tea.Msg {
		return SettingsChangedMsg{Settings: settings}
	}
}

// View implements tea.Model
func (s Settings) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	itemStyle := lipgloss.NewStyle().
		PaddingLeft(2)

	selectedStyle := lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(lipgloss.Color("205")).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		PaddingLeft(4)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("82"))

	optionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	selectedOptionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	output := titleStyle.Render("Settings") + "\n\n"

	installPath := s.settings.InstallPath
	if installPath == "" {
		installPath = "(not set, run 'acsync path <dir>')"
	}
	output += itemStyle.Render("Game directory: "+valueStyle.Render(installPath)) + "\n"
	output += itemStyle.Render("Server: "+valueStyle.Render(s.settings.Server)) + "\n\n"

	for i, item := range s.items {
		cursor := "  "
		style := itemStyle

		if i == s.selected {
			cursor = "▸ "
			style = selectedStyle
		}

		line := fmt.Sprintf("%s%s: %s", cursor, item.name, valueStyle.Render(item.options[item.current]))
		output += style.Render(line) + "\n"
		output += descStyle.Render(item.description) + "\n"

		if i == s.selected {
			optionsLine := "    Options: "
			for j, opt := range item.options {
				if j == item.current {
					optionsLine += selectedOptionStyle.Render("[" + opt + "]")
				} else {
					optionsLine += optionStyle.Render(" " + opt + " ")
				}
			}
			output += optionsLine + "\n"
		}

		output += "\n"
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	output += helpStyle.Render("↑/↓: navigate  ←/→ or enter: change value")

	return output
}
