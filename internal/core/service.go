package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"acsync/internal/catalog"
	"acsync/internal/domain"
	"acsync/internal/logging"
	"acsync/internal/placement"
	"acsync/internal/storage/config"
	"acsync/internal/storage/db"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the core service
type ServiceConfig struct {
	ConfigDir string // Directory for configuration files
	DataDir   string // Directory for database and persistent data
	ServerURL string // Overrides the configured server when set
	Getenv    func(string) string
}

// CatalogEntry is a catalog mod with its local install state
type CatalogEntry struct {
	domain.ModDescriptor
	Installed bool
}

// Service is the main orchestrator for mod management operations
type Service struct {
	config  *config.Config
	db      *db.DB
	catalog *catalog.Client
	logger  zerolog.Logger

	configDir string
	dataDir   string
}

// NewService creates a new core service instance
func NewService(cfg ServiceConfig) (*Service, error) {
	appConfig, err := config.Load(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	getenv := cfg.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	appConfig.ApplyEnv(getenv)
	if cfg.ServerURL != "" {
		appConfig.ServerURL = cfg.ServerURL
	}

	client, err := catalog.NewClient(appConfig.ServerURL)
	if err != nil {
		return nil, err
	}

	database, err := db.New(filepath.Join(cfg.DataDir, db.FileName))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &Service{
		config:    appConfig,
		db:        database,
		catalog:   client,
		logger:    logging.L("service"),
		configDir: cfg.ConfigDir,
		dataDir:   cfg.DataDir,
	}, nil
}

// Close releases resources held by the service
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Config returns the loaded configuration
func (s *Service) Config() *config.Config {
	return s.config
}

// ConfigDir returns the configuration directory
func (s *Service) ConfigDir() string {
	return s.configDir
}

// Server returns the mod server address in use
func (s *Service) Server() string {
	return s.catalog.BaseURL()
}

// Login opens a session with explicit credentials and saves them for later runs
func (s *Service) Login(ctx context.Context, login, password string) error {
	if err := s.catalog.Login(ctx, login, password); err != nil {
		return err
	}
	if err := s.db.SaveCredentials(s.Server(), login, password); err != nil {
		return err
	}
	if s.config.Login != login {
		s.config.Login = login
		if err := s.config.Save(s.configDir); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to remember login name")
		}
	}
	return nil
}

// Connect opens a session with the credentials from the environment or, failing
// that, the ones saved by Login. It returns domain.ErrAuthRequired if there are none.
func (s *Service) Connect(ctx context.Context) error {
	if s.config.Login != "" && s.config.Password != "" {
		return s.catalog.Login(ctx, s.config.Login, s.config.Password)
	}

	creds, err := s.db.GetCredentials(s.Server())
	if err != nil {
		return err
	}
	if creds == nil {
		return fmt.Errorf("%w: run 'acsync login' first", domain.ErrAuthRequired)
	}
	return s.catalog.Login(ctx, creds.Login, creds.Password)
}

// Logout forgets the saved credentials for the current server
func (s *Service) Logout() error {
	return s.db.DeleteCredentials(s.Server())
}

// SavedLogin returns the saved login name for the current server, or ""
func (s *Service) SavedLogin() (string, error) {
	creds, err := s.db.GetCredentials(s.Server())
	if err != nil || creds == nil {
		return "", err
	}
	return creds.Login, nil
}

// Catalog fetches the mod list and marks what is already installed.
// The session must be open.
func (s *Service) Catalog(ctx context.Context) ([]CatalogEntry, error) {
	mods, err := s.catalog.Mods(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}

	entries := make([]CatalogEntry, 0, len(mods))
	for _, m := range mods {
		installed, err := s.db.IsInstalled(m.Checksum)
		if err != nil {
			return nil, err
		}
		entries = append(entries, CatalogEntry{ModDescriptor: m, Installed: installed})
	}
	return entries, nil
}

// InstallPath returns the validated installation root
func (s *Service) InstallPath() (string, error) {
	return config.ValidateInstallPath(s.config.InstallPath)
}

// SetInstallPath validates path and saves it to the config file
func (s *Service) SetInstallPath(path string) (string, error) {
	abs, err := config.ValidateInstallPath(path)
	if err != nil {
		return "", err
	}
	s.config.InstallPath = abs
	if err := s.config.Save(s.configDir); err != nil {
		return "", err
	}
	return abs, nil
}

// SaveSettings updates the placement method and keybindings and writes the config file
func (s *Service) SaveSettings(method domain.PlacementMethod, keybindings string) error {
	s.config.PlacementMethod = method
	s.config.Keybindings = keybindings
	return s.config.Save(s.configDir)
}

// NewInstall builds the task list for selected and returns a pipeline ready to start.
// Mods already installed are left out.
func (s *Service) NewInstall(selected []domain.ModDescriptor) (*Pipeline, error) {
	tasks, err := BuildTaskList(selected, s.db)
	if err != nil {
		return nil, err
	}

	scratch := s.config.ScratchDir
	if scratch != "" {
		if err := os.MkdirAll(scratch, 0755); err != nil {
			s.logger.Warn().Err(err).Str("scratchDir", scratch).Msg("Cannot create scratch dir")
		}
	}

	return NewPipeline(tasks, PipelineOptions{
		Fetcher:     NewDownloader(s.catalog.HTTPClient(), s.catalog.DownloadBase()),
		Unpacker:    NewExtractor(scratch),
		Resolver:    NewResolver(),
		Placer:      placement.NewExecutor(placement.NewMover(s.config.PlacementMethod)),
		ScratchRoot: scratch,
	}), nil
}

// RecordResults marks the successful mods of a finished run as installed
func (s *Service) RecordResults(status *Status) error {
	return RecordResults(status, s.db)
}

// Forget removes checksum from the installed record so it can be installed again
func (s *Service) Forget(checksum string) error {
	return s.db.UnmarkInstalled(checksum)
}

// Installed lists the installed record
func (s *Service) Installed() ([]domain.InstalledMod, error) {
	return s.db.ListInstalled()
}

// IsAuthError reports whether err means the user has to log in (again)
func IsAuthError(err error) bool {
	return errors.Is(err, domain.ErrAuthRequired) || errors.Is(err, domain.ErrAuthFailed)
}
