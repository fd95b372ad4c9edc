package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starmap/internal/cluster"
	"starmap/internal/render"
	"starmap/pkg/colorutil"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 50.0, cfg.View.Padding)
	assert.Equal(t, 10.0, cfg.Hit.HoverRadiusPx)
	assert.Equal(t, 15.0, cfg.Hit.ClickRadiusPx)
	assert.Equal(t, 150.0, cfg.Cluster.ProximityPx)
	assert.Equal(t, 5, cfg.Layout.Iterations)
	assert.Equal(t, 250*time.Millisecond, cfg.Search.Debounce.Duration)
	assert.Equal(t, cluster.ModeSecurity, cfg.Mode())
	assert.Equal(t, colorutil.Background, cfg.BackgroundColor())
}

func TestDefaultParamsMatchRenderDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, render.DefaultMapParams(), cfg.MapParams())
	assert.Equal(t, render.DefaultSystemParams(), cfg.SystemParams())
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/testconfig")
	assert.Equal(t, "/tmp/testconfig/starmap", Dir())
	assert.Equal(t, "/tmp/testconfig/starmap/config.toml", Path())
}

func TestLoadMissingDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[view]
default_zoom = 2.5
background = "#102030"

[cluster]
default_mode = "alliance"

[search]
debounce = "100ms"

[overlay]
alliance_url = ""
ttl = "30m"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.View.DefaultZoom)
	assert.Equal(t, 50.0, cfg.View.Padding, "unset keys keep defaults")
	assert.Equal(t, cluster.ModeAlliance, cfg.Mode())
	assert.Equal(t, 100*time.Millisecond, cfg.Search.Debounce.Duration)
	assert.Equal(t, 30*time.Minute, cfg.Overlay.TTL.Duration)
	assert.Empty(t, cfg.Overlay.AllianceURL)
	assert.Equal(t, uint8(0x20), cfg.MapParams().Background.G)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zoom":       "[view]\ndefault_zoom = 20\n",
		"background": "[view]\nbackground = \"navy\"\n",
		"iterations": "[layout]\niterations = 0\n",
		"mode":       "[cluster]\ndefault_mode = \"tribe\"\n",
		"limit":      "[search]\nlimit = 0\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
			_, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[search]\ndebounce = \"soon\"\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.Log.Level = "debug"
	cfg.Metrics.Addr = ":9090"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
