package views

import (
	"fmt"

	"acsync/internal/core"
	"acsync/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InstallRequestMsg is sent when the user confirms the checklist
type InstallRequestMsg struct {
	Selected []domain.ModDescriptor
}

// Checklist is the catalog view: one row per mod, checked rows get installed
type Checklist struct {
	entries  []core.CatalogEntry
	checked  []bool
	selected int
	width    int
	height   int
}

// NewChecklist creates a checklist over entries. Installed mods start checked.
func NewChecklist(entries []core.CatalogEntry) Checklist {
	checked := make([]bool, len(entries))
	for i, e := range entries {
		checked[i] = e.Installed
	}
	return Checklist{
		entries: entries,
		checked: checked,
		width:   80,
		height:  24,
	}
}

// Selected returns the cursor position
func (c Checklist) Selected() int {
	return c.selected
}

// Len returns the number of rows
func (c Checklist) Len() int {
	return len(c.entries)
}

// IsChecked reports whether row i is checked
func (c Checklist) IsChecked(i int) bool {
	return i >= 0 && i < len(c.checked) && c.checked[i]
}

// Pending returns the checked mods that are not installed yet, in catalog order
func (c Checklist) Pending() []domain.ModDescriptor {
	var out []domain.ModDescriptor
	for i, e := range c.entries {
		if c.checked[i] && !e.Installed {
			out = append(out, e.ModDescriptor)
		}
	}
	return out
}

// Init implements tea.Model
func (c Checklist) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (c Checklist) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return c.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		return c, nil
	}

	return c, nil
}

func (c Checklist) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(c.entries) == 0 {
		return c, nil
	}

	switch msg.String() {
	case "up":
		c.selected--
		if c.selected < 0 {
			c.selected = len(c.entries) - 1
		}
		return c, nil

	case "down":
		c.selected++
		if c.selected >= len(c.entries) {
			c.selected = 0
		}
		return c, nil

	case "home", "g":
		c.selected = 0
		return c, nil

	case "end", "G":
		c.selected = len(c.entries) - 1
		return c, nil

	case " ":
		// Installed mods stay checked; use forget to reinstall them.
		if !c.entries[c.selected].Installed {
			c.checked = toggled(c.checked, c.selected)
		}
		return c, nil

	case "a":
		c.checked = c.allChecked()
		return c, nil

	case "enter":
		pending := c.Pending()
		if len(pending) == 0 {
			return c, nil
		}
		return c, func() tea.Msg {
			return InstallRequestMsg{Selected: pending}
		}
	}

	return c, nil
}

// toggled copies checked so earlier models keep their state
func toggled(checked []bool, i int) []bool {
	out := append([]bool(nil), checked...)
	out[i] = !out[i]
	return out
}

// allChecked checks every row, or unchecks the pending ones when all are checked already
func (c Checklist) allChecked() []bool {
	all := true
	for _, v := range c.checked {
		all = all && v
	}
	out := make([]bool, len(c.checked))
	for i, e := range c.entries {
		out[i] = !all || e.Installed
	}
	return out
}

// View implements tea.Model
func (c Checklist) View() string {
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

	installedStyle := lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(lipgloss.Color("241"))

	output := titleStyle.Render("Mods") + "\n"

	if len(c.entries) == 0 {
		output += itemStyle.Render("The server has no mods.") + "\n"
		return output
	}

	pending := c.Pending()
	var pendingSize uint64
	for _, m := range pending {
		pendingSize += m.Size
	}
	output += infoStyle.Render(fmt.Sprintf("%d mods, %d selected (%dM)",
		len(c.entries), len(pending), pendingSize/1024/1024)) + "\n\n"

	for i, e := range c.entries {
		cursor := "  "
		style := itemStyle

		if i == c.selected {
			cursor = "▸ "
			style = selectedStyle
		} else if e.Installed {
			style = installedStyle
		}

		box := "[ ]"
		if c.checked[i] {
			box = "[✓]"
		}

		line := fmt.Sprintf("%s%s %-40s %6s", cursor, box, e.Filename, fmt.Sprintf("%dM", e.SizeMB()))
		if e.Installed {
			line += "  installed"
		}
		output += style.Render(line) + "\n"
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	output += helpStyle.Render("↑/↓: navigate  space: toggle  a: all  enter: install")

	return output
}
