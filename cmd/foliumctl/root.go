package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/foliumapp/folium-server/internal/config"
	"github.com/foliumapp/folium-server/internal/logger"
	"github.com/foliumapp/folium-server/internal/media/pages"
	"github.com/foliumapp/folium-server/internal/service"
	"github.com/foliumapp/folium-server/internal/store/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "foliumctl",
	Short: "Maintenance commands for a Folium installation",
	Long: `foliumctl runs one-shot operations against a Folium data directory:
importing metadata documents and probing page dimensions, without the
daemon running.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (overrides FOLIUM_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr while running")
}

// app bundles the wired services a command needs.
type app struct {
	metadata *service.MetadataService
	importer *service.ImporterService
}

// setupApp loads configuration and wires the services.
// The returned cleanup closes the database.
func setupApp() (*app, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = io.Discard
	if verbose {
		out = os.Stderr
	}
	log := logger.New(logger.Config{
		Writer:      out,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	db, err := sqlite.Open(cfg.DatabasePath(), log.Logger)
	if err != nil {
		return nil, nil, err
	}

	storage, err := pages.NewStorage(cfg.Directories.Images)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	metadata := service.NewMetadataService(db, storage, cfg, log.Logger)
	importer := service.NewImporterService(db, metadata, log.Logger)

	cleanup := func() {
		if err := db.Close(); err != nil {
			slog.Warn("failed to close database", "error", err)
		}
	}

	return &app{metadata: metadata, importer: importer}, cleanup, nil
}
