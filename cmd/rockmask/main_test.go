package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/wgdzlh/rockmask/config"
	"github.com/wgdzlh/rockmask/pipeline"
	"github.com/wgdzlh/rockmask/raster"
	"github.com/wgdzlh/rockmask/report"
)

// 只解析配置，不执行批处理
func parseConfig(t *testing.T, args ...string) (cfg *config.Config, err error) {
	t.Helper()
	app := newApp()
	app.Action = func(c *cli.Context) (e error) {
		cfg, e = loadConfig(c)
		return
	}
	err = app.Run(append([]string{"rockmask", "--tiles", "tiles.txt"}, args...))
	return
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ROCKMASK_WORKERS", "3")
	cfg, err := parseConfig(t,
		"--coastline", "coast.shp",
		"--bands", "blue=1,green=2,nir=4,swir1=5,thermal=6",
		"--water", "0.3",
		"--outputExt", "_outcrop.tif",
		"--cacheDir", "/tmp/cache",
		"--quicklook",
	)
	require.NoError(t, err)
	assert.Equal(t, config.Bands{Blue: 1, Green: 2, NIR: 4, SWIR1: 5, Thermal: 6}, cfg.Bands)
	assert.Equal(t, 0.3, cfg.Thresholds.Water)
	assert.Equal(t, 0.75, cfg.Thresholds.Snow)
	assert.Equal(t, 3, cfg.Runtime.Workers)
	assert.Equal(t, "_outcrop.tif", cfg.Runtime.OutputExt)
	assert.Equal(t, "/tmp/cache", cfg.Runtime.CacheDir)
	assert.True(t, cfg.Runtime.Quicklook)
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rockmask.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"runtime":{"coastline":"coast.gpkg","workers":2}}`), 0o644))
	cfg, err := parseConfig(t, "--config", p, "--workers", "8")
	require.NoError(t, err)
	assert.Equal(t, "coast.gpkg", cfg.Runtime.Coastline)
	assert.Equal(t, 8, cfg.Runtime.Workers, "flag wins over file")
	assert.NotEmpty(t, cfg.Runtime.CacheDir)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"no coastline", nil, "Config.Runtime.Coastline"},
		{"zero workers", []string{"--coastline", "c.shp", "--workers", "0"}, "Config.Runtime.Workers"},
		{"duplicate bands", []string{"--coastline", "c.shp", "--bands", "nir=6"}, "Config.Bands.swir1"},
		{"unknown role", []string{"--coastline", "c.shp", "--bands", "red=4"}, "Config.Bands"},
		{"malformed bands", []string{"--coastline", "c.shp", "--bands", "blue"}, "Config.Bands"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(t, tt.args...)
			var ce *raster.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

// 配置错误时不读取景列表，也不产生任何输出
func TestRun_ConfigurationErrorStopsEarly(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	err := newApp().Run([]string{"rockmask", "--tiles", filepath.Join(dir, "none.txt"), "--coastline", "c.shp", "--outputDir", out, "--shadeBlue", "-1"})
	assert.ErrorIs(t, err, raster.ErrConfiguration)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestTileReport(t *testing.T) {
	ok := tileReport(pipeline.TileOutcome{
		Tile:     "A",
		Outputs:  []string{"A_rock.tif", "A_quicklook.png"},
		Duration: 1500 * time.Millisecond,
		Summary:  &report.Summary{Tile: "A", Rock: 3},
	})
	assert.Equal(t, report.TileReport{
		Tile:       "A",
		Output:     "A_rock.tif",
		Quicklook:  "A_quicklook.png",
		DurationMs: 1500,
		Summary:    &report.Summary{Tile: "A", Rock: 3},
	}, ok)

	failed := tileReport(pipeline.TileOutcome{Tile: "B", Err: errors.New("band 6 not found")})
	assert.Equal(t, "band 6 not found", failed.Error)
	assert.Empty(t, failed.Output)
}

func TestReportPath(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, reportPath(""))
	assert.Equal(t, "run.json", reportPath("run.json"))
	p := reportPath(dir)
	assert.Equal(t, dir, filepath.Dir(p))
	assert.Regexp(t, `^rockmask_\d{17}\.json$`, filepath.Base(p))
}

func TestEnvVars(t *testing.T) {
	assert.Equal(t, []string{"ROCKMASK_OUTPUT_DIR"}, envVars(OUTPUTDIR))
	assert.Equal(t, []string{"ROCKMASK_SHADE_BLUE"}, envVars(SHADEBLUE))
}
