// Package config loads starmap settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"starmap/internal/camera"
	"starmap/internal/cluster"
	"starmap/internal/render"
	"starmap/internal/spatial"
	"starmap/pkg/colorutil"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config holds starmap configuration.
type Config struct {
	View    ViewConfig    `toml:"view"`
	Hit     HitConfig     `toml:"hit"`
	Cluster ClusterConfig `toml:"cluster"`
	Layout  LayoutConfig  `toml:"layout"`
	Search  SearchConfig  `toml:"search"`
	Overlay OverlayConfig `toml:"overlay"`
	Images  ImagesConfig  `toml:"images"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

// ViewConfig controls projection and the initial camera.
type ViewConfig struct {
	Padding     float64 `toml:"padding"`
	DefaultZoom float64 `toml:"default_zoom"`
	Background  string  `toml:"background"` // #rrggbb
}

// HitConfig holds hit-test tolerances in screen pixels.
type HitConfig struct {
	HoverRadiusPx       float64 `toml:"hover_radius_px"`
	ClickRadiusPx       float64 `toml:"click_radius_px"`
	SystemHoverBufferPx float64 `toml:"system_hover_buffer_px"`
	SystemClickBufferPx float64 `toml:"system_click_buffer_px"`
}

// ClusterConfig controls anchor grouping and label fading.
type ClusterConfig struct {
	ProximityPx   float64 `toml:"proximity_px"`
	LabelPx       float64 `toml:"label_px"`
	FadeStartZoom float64 `toml:"fade_start_zoom"`
	FadeFloor     float64 `toml:"fade_floor"`
	DefaultMode   string  `toml:"default_mode"`
}

// LayoutConfig controls marker separation in the system view.
type LayoutConfig struct {
	MinSeparationPx float64 `toml:"min_separation_px"`
	Iterations      int     `toml:"iterations"`
}

// SearchConfig controls the search box.
type SearchConfig struct {
	Debounce   Duration `toml:"debounce"`
	Limit      int      `toml:"limit"`
	SystemZoom float64  `toml:"system_zoom"`
	RegionZoom float64  `toml:"region_zoom"`
}

// OverlayConfig locates the ownership endpoints. An empty URL disables that
// overlay.
type OverlayConfig struct {
	FactionURL  string   `toml:"faction_url"`
	AllianceURL string   `toml:"alliance_url"`
	TTL         Duration `toml:"ttl"`
	Timeout     Duration `toml:"timeout"`
}

// ImagesConfig locates marker icons. URLTemplate takes the image id via %d.
type ImagesConfig struct {
	URLTemplate string   `toml:"url_template"`
	Timeout     Duration `toml:"timeout"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// MetricsConfig controls the metrics listener. An empty address disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		View: ViewConfig{Padding: 50, DefaultZoom: 1, Background: "#080a10"},
		Hit: HitConfig{
			HoverRadiusPx:       10,
			ClickRadiusPx:       15,
			SystemHoverBufferPx: 4,
			SystemClickBufferPx: 8,
		},
		Cluster: ClusterConfig{
			ProximityPx:   150,
			LabelPx:       14,
			FadeStartZoom: 5,
			FadeFloor:     0.2,
			DefaultMode:   cluster.ModeSecurity.String(),
		},
		Layout: LayoutConfig{MinSeparationPx: 24, Iterations: 5},
		Search: SearchConfig{
			Debounce:   Duration{250 * time.Millisecond},
			Limit:      10,
			SystemZoom: 4,
			RegionZoom: 2,
		},
		Overlay: OverlayConfig{
			FactionURL:  "https://esi.evetech.net/latest/sovereignty/map/",
			AllianceURL: "https://esi.evetech.net/latest/sovereignty/map/",
			TTL:         Duration{time.Hour},
			Timeout:     Duration{10 * time.Second},
		},
		Images: ImagesConfig{
			URLTemplate: "https://images.evetech.net/types/%d/icon?size=64",
			Timeout:     Duration{10 * time.Second},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Dir returns the starmap config directory path.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "starmap")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads path over the defaults. An empty path uses Path(); a missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = Path()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Validate checks value ranges. Errors wrap ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.View.Padding >= 0, "view.padding must not be negative")
	check(c.View.DefaultZoom >= camera.MinZoom && c.View.DefaultZoom <= camera.MaxZoom,
		"view.default_zoom must be within [%g, %g]", camera.MinZoom, camera.MaxZoom)
	_, ok := colorutil.Parse(c.View.Background)
	check(ok, "view.background %q is not a #rrggbb color", c.View.Background)

	check(c.Hit.HoverRadiusPx > 0 && c.Hit.ClickRadiusPx > 0, "hit radii must be positive")
	check(c.Hit.SystemHoverBufferPx >= 0 && c.Hit.SystemClickBufferPx >= 0, "hit buffers must not be negative")

	check(c.Cluster.ProximityPx > 0, "cluster.proximity_px must be positive")
	check(c.Cluster.LabelPx > 0, "cluster.label_px must be positive")
	check(c.Cluster.FadeFloor >= 0 && c.Cluster.FadeFloor <= 1, "cluster.fade_floor must be within [0, 1]")
	if _, err := cluster.ParseMode(c.Cluster.DefaultMode); err != nil {
		errs = append(errs, err)
	}

	check(c.Layout.MinSeparationPx > 0, "layout.min_separation_px must be positive")
	check(c.Layout.Iterations >= 1, "layout.iterations must be at least 1")

	check(c.Search.Limit >= 1, "search.limit must be at least 1")
	check(c.Search.Debounce.Duration >= 0, "search.debounce must not be negative")
	check(c.Search.SystemZoom >= camera.MinZoom && c.Search.SystemZoom <= camera.MaxZoom, "search.system_zoom out of range")
	check(c.Search.RegionZoom >= camera.MinZoom && c.Search.RegionZoom <= camera.MaxZoom, "search.region_zoom out of range")

	check(c.Overlay.TTL.Duration >= 0 && c.Overlay.Timeout.Duration >= 0, "overlay durations must not be negative")

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// BackgroundColor returns the parsed view background, falling back to the
// built-in color.
func (c *Config) BackgroundColor() color.RGBA {
	if bg, ok := colorutil.Parse(c.View.Background); ok {
		return bg
	}
	return colorutil.Background
}

// MapParams converts the configuration into map view parameters.
func (c *Config) MapParams() render.MapParams {
	p := render.DefaultMapParams()
	p.Padding = c.View.Padding
	p.Hit = spatial.Engine{HoverBufferPx: c.Hit.HoverRadiusPx, ClickBufferPx: c.Hit.ClickRadiusPx}
	p.Label = cluster.StyleParams{BasePx: c.Cluster.LabelPx, FadeStart: c.Cluster.FadeStartZoom, FadeFloor: c.Cluster.FadeFloor}
	p.ProximityPx = c.Cluster.ProximityPx
	p.Background = c.BackgroundColor()
	return p
}

// SystemParams converts the configuration into system view parameters.
func (c *Config) SystemParams() render.SystemParams {
	p := render.DefaultSystemParams()
	p.Padding = c.View.Padding
	p.MinSeparation = c.Layout.MinSeparationPx
	p.Iterations = c.Layout.Iterations
	p.Hit = spatial.Engine{HoverBufferPx: c.Hit.SystemHoverBufferPx, ClickBufferPx: c.Hit.SystemClickBufferPx}
	p.Background = c.BackgroundColor()
	return p
}

// Mode returns the configured default coloring mode.
func (c *Config) Mode() cluster.Mode {
	m, _ := cluster.ParseMode(c.Cluster.DefaultMode)
	return m
}
