package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"acsync/internal/core"
	"acsync/internal/domain"
	"acsync/internal/storage/config"
	"acsync/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// pollInterval is how often a running install is sampled
const pollInterval = 100 * time.Millisecond

// ViewType represents different screens in the TUI
type ViewType int

const (
	ViewMods ViewType = iota
	ViewInstalled
	ViewSettings
	ViewProgress
	ViewSummary
)

// Backend is the part of core.Service the TUI drives
type Backend interface {
	Catalog(ctx context.Context) ([]core.CatalogEntry, error)
	InstallPath() (string, error)
	NewInstall(selected []domain.ModDescriptor) (*core.Pipeline, error)
	RecordResults(status *core.Status) error
	Installed() ([]domain.InstalledMod, error)
	Forget(checksum string) error
	Config() *config.Config
	Server() string
	SaveSettings(method domain.PlacementMethod, keybindings string) error
}

// NavigateMsg is sent to change views
type NavigateMsg struct {
	View ViewType
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// CatalogLoadedMsg carries a fresh catalog
type CatalogLoadedMsg struct {
	Entries []core.CatalogEntry
}

// InstalledLoadedMsg carries the installed record
type InstalledLoadedMsg struct {
	Mods []domain.InstalledMod
}

// TickMsg asks the app to sample the running install
type TickMsg time.Time

// App is the main TUI application model
type App struct {
	backend     Backend
	keys        *KeyMap
	currentView ViewType
	width       int
	height      int
	err         error
	help        bool

	// Sub-models for each view
	checklist tea.Model
	installed tea.Model
	settings  tea.Model
	progress  views.Progress
	summary   views.Summary

	names    map[string]string // checksum -> filename from the last catalog
	pipeline *core.Pipeline
	cancel   context.CancelFunc
}

// NewApp creates a new TUI application. backend may be nil, which leaves every
// view empty.
func NewApp(backend Backend) App {
	mode := ""
	if backend != nil && backend.Config() != nil {
		mode = backend.Config().Keybindings
	}
	return App{
		backend:     backend,
		keys:        NewKeyMap(mode),
		currentView: ViewMods,
		width:       80,
		height:      24,
		names:       map[string]string{},
	}
}

// CurrentView returns the current view type
func (a App) CurrentView() ViewType {
	return a.currentView
}

// Err returns the last error shown to the user
func (a App) Err() error {
	return a.err
}

// Installing reports whether an install is running
func (a App) Installing() bool {
	return a.pipeline != nil
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	return a.loadCatalog()
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.progress = forward(a.progress, msg)
		return a, nil

	case NavigateMsg:
		return a.navigate(msg.View)

	case ErrorMsg:
		a.err = msg.Err
		return a, nil

	case CatalogLoadedMsg:
		a.err = nil
		a.names = make(map[string]string, len(msg.Entries))
		for _, e := range msg.Entries {
			a.names[e.Checksum] = e.Filename
		}
		a.checklist = views.NewChecklist(msg.Entries)
		return a, nil

	case InstalledLoadedMsg:
		a.installed = views.NewInstalled(msg.Mods, a.names)
		return a, nil

	case views.InstallRequestMsg:
		return a.startInstall(msg.Selected)

	case views.CancelInstallMsg:
		if a.cancel != nil {
			a.cancel()
		}
		return a, nil

	case TickMsg:
		return a.poll()

	case views.SummaryDismissedMsg:
		a.currentView = ViewMods
		return a, a.loadCatalog()

	case views.ForgetModMsg:
		return a, a.forget(msg.Checksum)

	case views.SettingsChangedMsg:
		a.keys = NewKeyMap(msg.Settings.Keybindings)
		if a.backend == nil {
			return a, nil
		}
		if err := a.backend.SaveSettings(msg.Settings.PlacementMethod, msg.Settings.Keybindings); err != nil {
			a.err = err
		}
		return a, nil
	}

	// Delegate to current view's model
	return a.updateCurrentView(msg)
}

func (a App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The run owns the keyboard until it is finished; q must not abandon it.
	if a.currentView == ViewProgress {
		return a.updateCurrentView(msg)
	}

	if a.help {
		a.help = false
		return a, nil
	}

	switch {
	case a.keys.IsQuit(msg):
		return a, tea.Quit
	case a.keys.IsHelp(msg):
		a.help = true
		return a, nil
	case a.keys.IsUp(msg):
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case a.keys.IsDown(msg):
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case msg.String() == "1":
		return a.navigate(ViewMods)
	case msg.String() == "2":
		return a.navigate(ViewInstalled)
	case msg.String() == "3":
		return a.navigate(ViewSettings)
	case a.keys.IsRefresh(msg) && a.currentView == ViewMods:
		return a, a.loadCatalog()
	}

	return a.updateCurrentView(msg)
}

func (a App) navigate(view ViewType) (tea.Model, tea.Cmd) {
	if a.currentView == ViewProgress {
		return a, nil
	}
	a.currentView = view
	switch view {
	case ViewInstalled:
		return a, a.loadInstalled()
	case ViewSettings:
		a.settings = views.NewSettings(a.settingsData())
	}
	return a, nil
}

func (a App) updateCurrentView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.currentView {
	case ViewMods:
		if a.checklist != nil {
			a.checklist, cmd = a.checklist.Update(msg)
		}
	case ViewInstalled:
		if a.installed != nil {
			a.installed, cmd = a.installed.Update(msg)
		}
	case ViewSettings:
		if a.settings != nil {
			a.settings, cmd = a.settings.Update(msg)
		}
	case ViewProgress:
		var m tea.Model
		m, cmd = a.progress.Update(msg)
		a.progress = m.(views.Progress)
	case ViewSummary:
		_, cmd = a.summary.Update(msg)
	}
	return a, cmd
}

func (a App) startInstall(selected []domain.ModDescriptor) (tea.Model, tea.Cmd) {
	if a.backend == nil {
		a.err = errors.New("not connected")
		return a, nil
	}
	root, err := a.backend.InstallPath()
	if err != nil {
		a.err = fmt.Errorf("%w (set it with 'acsync path <dir>')", err)
		return a, nil
	}
	pipeline, err := a.backend.NewInstall(selected)
	if err != nil {
		a.err = err
		return a, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	pipeline.Start(ctx, root)

	a.err = nil
	a.pipeline = pipeline
	a.cancel = cancel
	a.progress = views.NewProgress(pipeline.Status().Snapshot().Total)
	a.currentView = ViewProgress
	return a, tea.Batch(a.progress.Init(), tick())
}

// poll samples the running install, switching to the summary once it has finished
func (a App) poll() (tea.Model, tea.Cmd) {
	if a.pipeline == nil {
		return a, nil
	}

	snap := a.pipeline.Status().Snapshot()
	a.progress = a.progress.WithSnapshot(snap)
	if !snap.Finished {
		return a, tick()
	}

	if err := a.backend.RecordResults(a.pipeline.Status()); err != nil {
		a.err = fmt.Errorf("saving installed mods: %w", err)
	}
	a.cancel()
	a.pipeline = nil
	a.cancel = nil
	a.summary = views.NewSummary(snap)
	a.currentView = ViewSummary
	return a, nil
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (a App) loadCatalog() tea.Cmd {
	if a.backend == nil {
		return nil
	}
	backend := a.backend
	return func() tea.Msg {
		entries, err := backend.Catalog(context.Background())
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return CatalogLoadedMsg{Entries: entries}
	}
}

func (a App) loadInstalled() tea.Cmd {
	if a.backend == nil {
		return nil
	}
	backend := a.backend
	return func() tea.Msg {
		mods, err := backend.Installed()
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return InstalledLoadedMsg{Mods: mods}
	}
}

func (a App) forget(checksum string) tea.Cmd {
	if a.backend == nil {
		return nil
	}
	backend := a.backend
	return tea.Sequence(
		func() tea.Msg {
			if err := backend.Forget(checksum); err != nil {
				return ErrorMsg{Err: err}
			}
			return nil
		},
		a.loadInstalled(),
		a.loadCatalog(),
	)
}

func (a App) settingsData() views.SettingsData {
	if a.backend == nil {
		return views.SettingsData{Keybindings: a.keys.Mode()}
	}
	cfg := a.backend.Config()
	return views.SettingsData{
		InstallPath:     cfg.InstallPath,
		Server:          a.backend.Server(),
		PlacementMethod: cfg.PlacementMethod,
		Keybindings:     cfg.Keybindings,
	}
}

func forward(p views.Progress, msg tea.Msg) views.Progress {
	m, _ := p.Update(msg)
	return m.(views.Progress)
}

// View implements tea.Model
func (a App) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	tabStyle := lipgloss.NewStyle().
		Padding(0, 2)

	activeTabStyle := tabStyle.
		Bold(true).
		Foreground(lipgloss.Color("205")).
		Underline(true)

	inactiveTabStyle := tabStyle.
		Foreground(lipgloss.Color("241"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	header := titleStyle.Render("acsync")

	tabs := []struct {
		name string
		view ViewType
	}{
		{"[1] Mods", ViewMods},
		{"[2] Installed", ViewInstalled},
		{"[3] Settings", ViewSettings},
	}

	var tabBar string
	for _, tab := range tabs {
		active := tab.view == a.currentView ||
			(tab.view == ViewMods && (a.currentView == ViewProgress || a.currentView == ViewSummary))
		if active {
			tabBar += activeTabStyle.Render(tab.name)
		} else {
			tabBar += inactiveTabStyle.Render(tab.name)
		}
	}

	content := a.renderCurrentView()
	if a.help {
		content = a.keys.FullHelp() + "\n\nPress any key to close."
	}

	if a.err != nil {
		content += "\n\n" + errorStyle.Render(fmt.Sprintf("Error: %v", a.err))
		if core.IsAuthError(a.err) {
			content += "\n" + errorStyle.Render("Run 'acsync login' and start again.")
		}
	}

	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	footer := footerStyle.Render("q: quit  ?: help  " + a.keys.NavigationHelp())
	if a.currentView == ViewProgress {
		footer = footerStyle.Render("installing...")
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", header, tabBar, content, footer)
}

func (a App) renderCurrentView() string {
	switch a.currentView {
	case ViewMods:
		if a.checklist != nil {
			return a.checklist.View()
		}
		return "Mods\n\nLoading the mod list..."

	case ViewInstalled:
		if a.installed != nil {
			return a.installed.View()
		}
		return "Installed Mods\n\nNo mods installed yet."

	case ViewSettings:
		if a.settings != nil {
			return a.settings.View()
		}
		return views.NewSettings(a.settingsData()).View()

	case ViewProgress:
		return a.progress.View()

	case ViewSummary:
		return a.summary.View()

	default:
		return "Unknown view"
	}
}

// Run starts the TUI application
func Run(backend Backend) error {
	app := NewApp(backend)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
