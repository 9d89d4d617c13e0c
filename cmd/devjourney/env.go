package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"devjourney/internal/catalog"
	"devjourney/internal/config"
	"devjourney/internal/journey"
	"devjourney/internal/paths"
	"devjourney/internal/slogutil"
	"devjourney/internal/storage"

	"github.com/spf13/cobra"
)

// appEnv holds what every command needs: home, config and logger.
type appEnv struct {
	home    string
	cfg     *config.Config
	logger  *slog.Logger
	factory *slogutil.LoggerFactory
}

// loadEnv resolves the home directory, loads and validates the config and
// builds the CLI logger. Callers must Close the result.
func loadEnv(cmd *cobra.Command) (*appEnv, error) {
	home := homeFlag
	if home == "" {
		h, err := paths.GetHome()
		if err != nil {
			return nil, err
		}
		home = h
	}
	if expanded, err := paths.ExpandHome(home); err == nil {
		home = expanded
	}

	cfg, err := config.LoadConfig(home)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cliSet := verboseFlag > 0 || quietFlag
	factory := slogutil.NewLoggerFactory(cfg, slogutil.LevelFromVerbosity(verboseFlag, quietFlag), cliSet)
	logger := factory.CLILogger(cmd.ErrOrStderr())
	logger.Debug("Loaded configuration", "home", home, "journeyDir", cfg.JourneyDir, "catalogDir", cfg.CatalogDir)

	return &appEnv{home: home, cfg: cfg, logger: logger, factory: factory}, nil
}

func (e *appEnv) Close() {
	_ = e.factory.Close()
}

// loadCatalog returns the built-in catalogs merged with the extension directory.
func (e *appEnv) loadCatalog() (*catalog.Catalog, error) {
	return catalog.Load(e.cfg.CatalogDir, e.logger)
}

func (e *appEnv) journeyStore() *journey.Store {
	return journey.NewStore(e.cfg.JourneyDir, e.logger)
}

// openArchive opens the report archive. The returned func closes it.
func (e *appEnv) openArchive() (*storage.Archive, func(), error) {
	db, err := storage.Open(e.cfg.Archive.Path, e.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}
	archive, err := storage.NewArchive(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return archive, func() {
		_ = archive.Close()
		_ = db.Close()
	}, nil
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
