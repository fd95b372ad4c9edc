package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"starmap/internal/app"
	"starmap/internal/cluster"
	"starmap/internal/config"
	"starmap/internal/headless"
	"starmap/internal/httpapi"
	"starmap/internal/logging"
	"starmap/internal/metrics"
	"starmap/internal/universe"
	"starmap/internal/version"
	"starmap/pkg/geometry"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	dataPath   string
	logLevel   string
}

// env is everything a subcommand needs once flags are parsed.
type env struct {
	cfg      *config.Config
	log      zerolog.Logger
	metrics  *metrics.Metrics
	opts     app.Options
	deps     app.Deps
	renderer *headless.Renderer
}

func (g *globals) load(jsonLogs bool) (*env, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.dataPath == "" {
		return nil, errors.New("--data is required")
	}

	log := logging.NewConsole(cfg.Log.Level, os.Stderr)
	if jsonLogs {
		log = logging.New(cfg.Log.Level, os.Stderr)
	}

	data, err := universe.LoadFile(g.dataPath)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", g.dataPath, err)
	}
	log.Debug().Int("systems", len(data.Entities)).Int("edges", len(data.Edges)).Msg("dataset loaded")

	m := metrics.New()
	e := &env{
		cfg:     cfg,
		log:     log,
		metrics: m,
		opts:    app.OptionsFromConfig(cfg),
		deps:    app.DepsFromConfig(cfg, log, m),
	}
	e.renderer = headless.New(data, e.opts, e.deps)
	return e, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:          "maprender",
		Short:        "Render star maps without a window",
		Version:      version.String(),
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default "+config.Path()+")")
	root.PersistentFlags().StringVar(&g.dataPath, "data", "", "dataset file (line-delimited JSON)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		renderCmd(g),
		systemCmd(g),
		pickCmd(g),
		searchCmd(g),
		serveCmd(g),
	)
	return root
}

// viewFlags are the map scene flags shared by render and pick.
type viewFlags struct {
	width  int
	height int
	zoom   float64
	mode   string
	focus  int64
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.width, "width", 1024, "image width in pixels")
	cmd.Flags().IntVar(&f.height, "height", 768, "image height in pixels")
	cmd.Flags().Float64Var(&f.zoom, "zoom", 0, "zoom factor (default from config)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "coloring mode: security, region, faction, alliance (default from config)")
	cmd.Flags().Int64Var(&f.focus, "focus", 0, "system id to center on")
}

func (f *viewFlags) request(e *env) (headless.MapRequest, error) {
	if !finite(f.zoom) {
		return headless.MapRequest{}, fmt.Errorf("invalid --zoom %g: must be a finite number", f.zoom)
	}
	req := headless.MapRequest{
		Width:  f.width,
		Height: f.height,
		Zoom:   f.zoom,
		Mode:   e.cfg.Mode(),
		Focus:  f.focus,
	}
	if f.mode != "" {
		mode, err := cluster.ParseMode(f.mode)
		if err != nil {
			return req, err
		}
		req.Mode = mode
	}
	return req, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// writeOutput writes a PNG to path, or to the command output for "-".
func writeOutput(cmd *cobra.Command, path string, render func(io.Writer) error) error {
	if path == "-" {
		return render(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func renderCmd(g *globals) *cobra.Command {
	var (
		view   viewFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the map view to PNG",
		Long: `Render the map view to a PNG file.

  maprender render --data universe.jsonl -o map.png
  maprender render --data universe.jsonl --mode region --focus 30000142 --zoom 4 -o jita.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load(false)
			if err != nil {
				return err
			}
			req, err := view.request(e)
			if err != nil {
				return err
			}
			scene, err := e.renderer.MapScene(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, output, scene.Render); err != nil {
				return err
			}
			e.log.Info().Str("output", output).Str("mode", req.Mode.String()).Msg("map rendered")
			return nil
		},
	}
	view.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "map.png", `output file, "-" for stdout`)
	return cmd
}

func systemCmd(g *globals) *cobra.Command {
	var (
		width, height int
		zoom          float64
		output        string
	)
	cmd := &cobra.Command{
		Use:   "system <id>",
		Short: "Render the local view of a system to PNG",
		Long: `Render the local view of one system. An unknown system still produces
the not-found image, and the command exits with an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid system id %q", args[0])
			}
			e, err := g.load(false)
			if err != nil {
				return err
			}
			scene, sceneErr := e.renderer.SystemScene(headless.SystemRequest{Width: width, Height: height, Zoom: zoom, ID: id})
			if scene == nil {
				return sceneErr
			}
			if err := writeOutput(cmd, output, scene.Render); err != nil {
				return err
			}
			if sceneErr == nil {
				st := scene.View.Stats()
				e.log.Info().Int64("system", id).Int("iterations", st.Iterations).Bool("converged", st.Converged).Msg("system rendered")
			}
			return sceneErr
		},
	}
	cmd.Flags().IntVar(&width, "width", 1024, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 768, "image height in pixels")
	cmd.Flags().Float64Var(&zoom, "zoom", 0, "zoom factor (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "system.png", `output file, "-" for stdout`)
	return cmd
}

func pickCmd(g *globals) *cobra.Command {
	var view viewFlags
	cmd := &cobra.Command{
		Use:   "pick <x> <y>",
		Short: "Report the system a click at screen position x,y would select",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, errX := strconv.ParseFloat(args[0], 64)
			y, errY := strconv.ParseFloat(args[1], 64)
			if err := errors.Join(errX, errY); err != nil {
				return fmt.Errorf("invalid position: %w", err)
			}
			if !finite(x) || !finite(y) {
				return fmt.Errorf("invalid position %g,%g: must be finite", x, y)
			}
			e, err := g.load(false)
			if err != nil {
				return err
			}
			req, err := view.request(e)
			if err != nil {
				return err
			}
			scene, err := e.renderer.MapScene(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p, ok := scene.Pick(geometry.Pt(x, y))
			if !ok {
				subtle.Fprintf(out, "no system at %g,%g\n", x, y)
				return nil
			}
			fmt.Fprintf(out, "%s\t%s\t%s\t%.1f\n", hitStyle.Sprint(p.ID), p.Name, p.Region, p.Security)
			return nil
		},
	}
	view.register(cmd)
	return cmd
}

func searchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search systems and regions by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load(false)
			if err != nil {
				return err
			}
			results := e.renderer.Search(args[0])
			if len(results) == 0 {
				subtle.Fprintf(cmd.OutOrStdout(), "no matches for %q\n", args[0])
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", kindStyle.Sprint(r.Kind), r.ID, r.Name)
			}
			return tw.Flush()
		},
	}
}

func serveCmd(g *globals) *cobra.Command {
	var (
		addr  string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered maps, hit tests and search over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load(true)
			if err != nil {
				return err
			}
			h := httpapi.NewHandler(e.log, e.metrics, e.renderer, e.cfg.Mode())
			srv := h.Server(addr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				w := universe.NewWatcher(g.dataPath, 0, e.log, func(d *universe.Dataset) {
					h.SetRenderer(headless.New(d, e.opts, e.deps))
				})
				go func() {
					if err := w.Run(ctx); err != nil {
						e.log.Error().Err(err).Msg("dataset watcher stopped")
					}
				}()
			}

			errCh := make(chan error, 1)
			go func() {
				e.log.Info().Str("addr", addr).Str("version", version.Version).Msg("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			e.log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the dataset when the file changes")
	return cmd
}
