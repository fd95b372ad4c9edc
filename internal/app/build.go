package app

import (
	"net/http"

	"github.com/rs/zerolog"

	"starmap/internal/config"
	"starmap/internal/metrics"
	"starmap/internal/overlay"
	"starmap/internal/render"
)

// OptionsFromConfig converts loaded settings into session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Map:         cfg.MapParams(),
		System:      cfg.SystemParams(),
		DefaultZoom: cfg.View.DefaultZoom,
		Mode:        cfg.Mode(),
		SearchLimit: cfg.Search.Limit,
		SearchDelay: cfg.Search.Debounce.Duration,
		SystemZoom:  cfg.Search.SystemZoom,
		RegionZoom:  cfg.Search.RegionZoom,
	}
}

// DepsFromConfig builds the remote collaborators named in cfg. Overlays and
// icons with an empty URL are left out.
func DepsFromConfig(cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) Deps {
	deps := Deps{Log: log, Metrics: m}

	overlayClient := &http.Client{Timeout: cfg.Overlay.Timeout.Duration}
	if cfg.Overlay.FactionURL != "" {
		src := overlay.HTTPSource{Client: overlayClient, URL: cfg.Overlay.FactionURL, Kind: overlay.KindFaction}
		deps.Overlays = append(deps.Overlays,
			overlay.NewCache(overlay.KindFaction, src, cfg.Overlay.TTL.Duration, cfg.Overlay.Timeout.Duration, log, m))
	}
	if cfg.Overlay.AllianceURL != "" {
		src := overlay.HTTPSource{Client: overlayClient, URL: cfg.Overlay.AllianceURL, Kind: overlay.KindAlliance}
		deps.Overlays = append(deps.Overlays,
			overlay.NewCache(overlay.KindAlliance, src, cfg.Overlay.TTL.Duration, cfg.Overlay.Timeout.Duration, log, m))
	}

	if cfg.Images.URLTemplate != "" {
		deps.Images = render.HTTPImageLoader{
			Client:      &http.Client{Timeout: cfg.Images.Timeout.Duration},
			URLTemplate: cfg.Images.URLTemplate,
		}
	}
	return deps
}
