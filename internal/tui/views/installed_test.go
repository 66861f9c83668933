package views_test

import (
	"testing"
	"time"

	"acsync/internal/domain"
	"acsync/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstalled_InitialState(t *testing.T) {
	model := views.NewInstalled(nil, nil)

	assert.Equal(t, 0, model.Selected())
	assert.Nil(t, model.SelectedMod())
	assert.Contains(t, model.View(), "No mods installed yet.")
}

func TestInstalled_WithMods(t *testing.T) {
	mods := []domain.InstalledMod{
		{Checksum: "a", InstalledAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Checksum: "b", InstalledAt: time.Now()},
	}

	model := views.NewInstalled(mods, map[string]string{"a": "ks_car.zip"})

	assert.Equal(t, 2, model.ModCount())
	view := model.View()
	assert.Contains(t, view, "ks_car.zip")
	assert.Contains(t, view, "2024-03-01")
	assert.Contains(t, view, "(not in catalog)")
}

func TestInstalled_Navigate(t *testing.T) {
	mods := []domain.InstalledMod{{Checksum: "a"}, {Checksum: "b"}}
	model := views.NewInstalled(mods, nil)

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	updated := newModel.(views.Installed)
	assert.Equal(t, 1, updated.Selected())

	newModel, _ = updated.Update(tea.KeyMsg{Type: tea.KeyDown})
	updated = newModel.(views.Installed)
	assert.Equal(t, 0, updated.Selected(), "wraps around")
}

func TestInstalled_Forget(t *testing.T) {
	mods := []domain.InstalledMod{{Checksum: "a"}, {Checksum: "b"}}
	model := views.NewInstalled(mods, nil)

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := newModel.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.NotNil(t, cmd)

	msg, ok := cmd().(views.ForgetModMsg)
	require.True(t, ok)
	assert.Equal(t, "b", msg.Checksum)
}
