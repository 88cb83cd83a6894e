package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vbonduro/phototasks/internal/config"
	"github.com/vbonduro/phototasks/internal/db"
	"github.com/vbonduro/phototasks/internal/geocode"
	"github.com/vbonduro/phototasks/internal/geocode/nominatim"
	"github.com/vbonduro/phototasks/internal/logging"
	"github.com/vbonduro/phototasks/internal/photostore/local"
	"github.com/vbonduro/phototasks/internal/service"
	"github.com/vbonduro/phototasks/internal/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "phototasks",
		Short:         "Photo and location task tracker",
		Long:          `phototasks keeps per-user tasks, each with a photo and the place it was taken.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("addr", "", "Listen address (overrides LISTEN_ADDR)")
	root.PersistentFlags().String("db", "", "SQLite database path (overrides DB_PATH)")
	root.PersistentFlags().String("photos", "", "Photo directory (overrides PHOTO_LOCAL_PATH)")

	root.AddCommand(newServeCmd(), newListCmd(), newResetCmd())
	return root
}

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	database *sql.DB
	photos   *local.LocalPhotoStore
	tasks    *service.TaskService
	cleanup  func()
}

func (a *app) Close() {
	if err := a.database.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}
	a.cleanup()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cmd, cfg)

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("open database: %w", err)
	}

	photos, err := local.NewLocalPhotoStore(cfg.PhotoPath)
	if err != nil {
		_ = database.Close()
		cleanup()
		return nil, fmt.Errorf("initialize photo store: %w", err)
	}

	tasks := service.NewTaskService(store.NewKVStore(database), photos, newGeocoder(cfg, logger), logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		database: database,
		photos:   photos,
		tasks:    tasks,
		cleanup:  cleanup,
	}, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.ListenAddr = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DBPath = v
	}
	if v, _ := cmd.Flags().GetString("photos"); v != "" {
		cfg.PhotoPath = v
	}
}

func newGeocoder(cfg *config.Config, logger *slog.Logger) geocode.Geocoder {
	switch cfg.GeocoderBackend {
	case "nominatim":
		logger.Info("using Nominatim geocoder", "host", cfg.NominatimHost)
		return nominatim.NewNominatimGeocoder(cfg.NominatimHost, cfg.GeocoderUserAgent)
	case "", "none":
		logger.Info("reverse geocoding disabled")
		return nil
	default:
		logger.Warn("unknown geocoder backend, reverse geocoding disabled", "backend", cfg.GeocoderBackend)
		return nil
	}
}
