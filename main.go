// Package main provides the entry point for the Starmap desktop application.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"starmap/internal/app"
	"starmap/internal/config"
	"starmap/internal/logging"
	"starmap/internal/metrics"
	"starmap/internal/universe"
	"starmap/internal/version"
	"starmap/ui/mainwindow"
	"starmap/ui/prefs"
)

const appID = "net.starmap.desktop"

func main() {
	var configPath, logLevel string

	rootCmd := &cobra.Command{
		Use:     "starmap <dataset.jsonl>",
		Short:   "Interactive star map",
		Version: version.String(),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			return run(cfg, args[0])
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "config file (default "+config.Path()+")")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, datasetPath string) error {
	log := logging.NewConsole(cfg.Log.Level, nil)
	log.Info().Str("version", version.Version).Msg("starting starmap")

	data, err := universe.LoadFile(datasetPath)
	if err != nil {
		return fmt.Errorf("load dataset %s: %w", datasetPath, err)
	}
	log.Info().Int("systems", len(data.Entities)).Int("edges", len(data.Edges)).Msg("dataset loaded")

	m := metrics.New()
	serveMetrics(cfg.Metrics.Addr, m, log)

	session := app.NewSession(data, app.OptionsFromConfig(cfg), app.DepsFromConfig(cfg, log, m))

	a := fyneapp.NewWithID(appID)
	a.Settings().SetTheme(&app.StarmapTheme{})
	win := mainwindow.New(a, session, data, prefs.Load(config.Dir()))
	win.ShowAndRun()
	return nil
}

// serveMetrics exposes the metrics handler on addr in the background. An
// empty addr disables it.
func serveMetrics(addr string, m *metrics.Metrics, log zerolog.Logger) {
	if addr == "" {
		return
	}
	go func() {
		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Handle("/metrics", m.Handler())
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := http.ListenAndServe(addr, r); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics listener stopped")
		}
	}()
}
