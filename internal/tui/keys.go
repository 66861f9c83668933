package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines keybindings for the TUI
type KeyMap struct {
	mode string
}

// NewKeyMap creates a new keymap for the given mode
func NewKeyMap(mode string) *KeyMap {
	if mode == "" {
		mode = "vim"
	}
	return &KeyMap{mode: mode}
}

// Mode returns the current keybinding mode
func (k *KeyMap) Mode() string {
	return k.mode
}

// IsUp returns true if the key is an "up" navigation key
func (k *KeyMap) IsUp(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyUp {
		return true
	}
	return k.mode == "vim" && msg.String() == "k"
}

// IsDown returns true if the key is a "down" navigation key
func (k *KeyMap) IsDown(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyDown {
		return true
	}
	return k.mode == "vim" && msg.String() == "j"
}

// IsQuit returns true if the key is a quit key
func (k *KeyMap) IsQuit(msg tea.KeyMsg) bool {
	return msg.String() == "q" || msg.Type == tea.KeyCtrlC
}

// IsHelp returns true if the key should show help
func (k *KeyMap) IsHelp(msg tea.KeyMsg) bool {
	return msg.String() == "?"
}

// IsRefresh returns true if the key reloads the mod list
func (k *KeyMap) IsRefresh(msg tea.KeyMsg) bool {
	return msg.String() == "r"
}

// NavigationHelp returns help text for navigation keys
func (k *KeyMap) NavigationHelp() string {
	if k.mode == "vim" {
		return "j/k: navigate"
	}
	return "↑/↓: navigate"
}

// FullHelp returns complete help text
func (k *KeyMap) FullHelp() string {
	if k.mode == "vim" {
		return `Navigation:
  j/k     Move down/up
  g/G     Go to first/last item
  1/2/3   Mods, installed, settings

Actions:
  space   Check/uncheck a mod
  a       Check/uncheck all
  enter   Install checked mods
  esc     Stop a running install
  d       Forget an installed mod
  r       Refresh the mod list
  ?       Help
  q       Quit`
	}

	return `Navigation:
  ↑/↓     Move up/down
  Home    Go to first item
  End     Go to last item
  1/2/3   Mods, installed, settings

Actions:
  Space   Check/uncheck a mod
  a       Check/uncheck all
  Enter   Install checked mods
  Esc     Stop a running install
  Delete  Forget an installed mod
  r       Refresh the mod list
  ?       Help
  q       Quit`
}
