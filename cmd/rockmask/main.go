package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/google/uuid"
	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wgdzlh/rockmask"
	"github.com/wgdzlh/rockmask/config"
	"github.com/wgdzlh/rockmask/log"
	"github.com/wgdzlh/rockmask/pipeline"
	"github.com/wgdzlh/rockmask/raster"
	"github.com/wgdzlh/rockmask/report"
	"github.com/wgdzlh/rockmask/store"
	"github.com/wgdzlh/rockmask/utils"
)

const TILES string = `tiles`
const CONFIG string = `config`
const INPUTDIR string = `inputDir`
const BANDPATTERN string = `bandPattern`
const COASTLINE string = `coastline`
const OUTPUTDIR string = `outputDir`
const OUTPUTEXT string = `outputExt`
const OVERWRITE string = `overwrite`
const WORKERS string = `workers`
const BANDS string = `bands`
const RATIO string = `ratio`
const SNOW string = `snow`
const WATER string = `water`
const SUNTEMP string = `sunTemp`
const SHADEBLUE string = `shadeBlue`
const CACHEDIR string = `cacheDir`
const S3REGION string = `s3Region`
const REQUESTPAYER string = `requestPayer`
const QUICKLOOK string = `quicklook`
const REPORT string = `report`
const METRICS string = `metrics`
const LOGLEVEL string = `logLevel`
const DEVLOG string = `devLog`

const exitTileFailures = 2

func envVars(name string) []string {
	return []string{"ROCKMASK_" + strcase.ToScreamingSnake(name)}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			os.Exit(exit.ExitCode())
		}
		os.Exit(1)
	}
}

//nolint:funlen
func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "rockmask"
	app.Usage = "Classify rock outcrop pixels in TOA corrected multispectral tiles"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     TILES,
			Aliases:  []string{"t"},
			Usage:    "Tile list (*.txt), one tile ID per line",
			Required: true,
			EnvVars:  envVars(TILES),
		},
		&cli.StringFlag{
			Name:    CONFIG,
			Aliases: []string{"c"},
			Usage:   "JSON config file; flags override its values",
			EnvVars: envVars(CONFIG),
		},
		&cli.StringFlag{
			Name:    INPUTDIR,
			Aliases: []string{"i"},
			Usage:   "Directory of extracted tiles",
			EnvVars: envVars(INPUTDIR),
		},
		&cli.StringFlag{
			Name:    BANDPATTERN,
			Usage:   `Band file pattern with {tile} and {band} placeholders. E.g.: {tile}_toa_band{band}.tif or s3://bucket/{tile}/{tile}_B{band}.TIF`,
			EnvVars: envVars(BANDPATTERN),
		},
		&cli.StringFlag{
			Name:    COASTLINE,
			Aliases: []string{"m"},
			Usage:   "Coastline polygons (.shp, .gpkg) used as land mask",
			EnvVars: envVars(COASTLINE),
		},
		&cli.StringFlag{
			Name:    OUTPUTDIR,
			Aliases: []string{"o"},
			Usage:   "Output directory",
			EnvVars: envVars(OUTPUTDIR),
		},
		&cli.StringFlag{
			Name:    OUTPUTEXT,
			Usage:   `Suffix for output file names, starting with "_" and ending with ".tif"`,
			EnvVars: envVars(OUTPUTEXT),
		},
		&cli.BoolFlag{
			Name:    OVERWRITE,
			Usage:   "Overwrite existing outputs",
			EnvVars: envVars(OVERWRITE),
		},
		&cli.IntFlag{
			Name:    WORKERS,
			Aliases: []string{"w"},
			Usage:   "Tiles processed in parallel (1 = sequential)",
			EnvVars: envVars(WORKERS),
		},
		&cli.StringFlag{
			Name:    BANDS,
			Usage:   `Band role mapping. E.g.: blue=2,green=3,nir=5,swir1=6,thermal=10`,
			EnvVars: envVars(BANDS),
		},
		&cli.Float64Flag{Name: RATIO, Usage: "Sunlit rock: minimum thermal/blue ratio", EnvVars: envVars(RATIO)},
		&cli.Float64Flag{Name: SNOW, Usage: "Sunlit rock: maximum snow index", EnvVars: envVars(SNOW)},
		&cli.Float64Flag{Name: WATER, Usage: "Maximum water index (both branches)", EnvVars: envVars(WATER)},
		&cli.Float64Flag{Name: SUNTEMP, Usage: "Sunlit rock: minimum scaled brightness temperature", EnvVars: envVars(SUNTEMP)},
		&cli.Float64Flag{Name: SHADEBLUE, Usage: "Shaded rock: maximum scaled blue reflectance", EnvVars: envVars(SHADEBLUE)},
		&cli.StringFlag{
			Name:    CACHEDIR,
			Usage:   "Local cache for bands staged from S3",
			EnvVars: envVars(CACHEDIR),
		},
		&cli.StringFlag{
			Name:    S3REGION,
			Value:   "us-west-2",
			Usage:   "AWS region of the band bucket",
			EnvVars: envVars(S3REGION),
		},
		&cli.BoolFlag{
			Name:    REQUESTPAYER,
			Usage:   "Send requester-pays header on S3 requests",
			EnvVars: envVars(REQUESTPAYER),
		},
		&cli.BoolFlag{
			Name:    QUICKLOOK,
			Usage:   "Also write a PNG quicklook per tile",
			EnvVars: envVars(QUICKLOOK),
		},
		&cli.StringFlag{
			Name:    REPORT,
			Usage:   "Write a JSON run report to this path",
			EnvVars: envVars(REPORT),
		},
		&cli.StringFlag{
			Name:    METRICS,
			Usage:   "Write prometheus metrics (textfile format) to this path",
			EnvVars: envVars(METRICS),
		},
		&cli.StringFlag{
			Name:    LOGLEVEL,
			Usage:   "debug, info, warn or error",
			EnvVars: envVars(LOGLEVEL),
		},
		&cli.BoolFlag{
			Name:    DEVLOG,
			Usage:   "Human readable console logs",
			EnvVars: envVars(DEVLOG),
		},
	}

	app.Action = run
	return app
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err = log.Init(cfg.Runtime.LogLevel, c.Bool(DEVLOG)); err != nil {
		return err
	}
	defer log.Sync()

	tiles, err := utils.ReadTileList(c.String(TILES))
	if err != nil {
		return fmt.Errorf("read tile list: %w", err)
	}
	if err = os.MkdirAll(cfg.Runtime.OutputDir, 0o755); err != nil {
		return err
	}

	opts := rockmask.Options{
		BandPattern: cfg.Runtime.BandPattern,
		InputDir:    cfg.Runtime.InputDir,
		OutputDir:   cfg.Runtime.OutputDir,
		OutputExt:   cfg.Runtime.OutputExt,
		Overwrite:   cfg.Runtime.Overwrite,
	}
	if strings.HasPrefix(cfg.Runtime.BandPattern, rockmask.S3_SCHEME) {
		if opts.Stager, err = store.NewDefaultS3Stager(c.String(S3REGION), cfg.Runtime.CacheDir, c.Bool(REQUESTPAYER)); err != nil {
			return err
		}
	}
	toolbox := rockmask.NewGdalToolbox(opts)
	defer toolbox.Close()
	if err = toolbox.LoadCoastline(cfg.Runtime.Coastline); err != nil {
		return fmt.Errorf("load coastline: %w", err)
	}

	p, err := pipeline.New(toolbox, toolbox, cfg)
	if err != nil {
		return err
	}
	writers := []pipeline.Writer{toolbox}
	if cfg.Runtime.Quicklook {
		writers = append(writers, report.QuicklookWriter{Dir: cfg.Runtime.OutputDir, Overwrite: cfg.Runtime.Overwrite})
	}
	metrics := pipeline.NewMetrics()
	batch := pipeline.NewBatch(p, cfg.Runtime.Workers, metrics, writers...)

	runID := uuid.NewString()
	rep := report.NewRunReport(runID, versioninfo.Short(), cfg)
	log.Info("rockmask started", zap.String("run", runID), zap.Int("tiles", len(tiles)), zap.Int("workers", cfg.Runtime.Workers))

	// 收到中断信号后不再调度新的景
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	res := batch.Run(ctx, tiles)

	for _, o := range res.Outcomes {
		rep.Add(tileReport(o))
	}
	if path := reportPath(cfg.Runtime.Report); path != "" {
		if err = rep.WriteJSON(path); err != nil {
			log.Error("write report failed", zap.String("report", path), zap.Error(err))
		}
	}
	if path := cfg.Runtime.Metrics; path != "" {
		if err = metrics.WriteTextfile(path); err != nil {
			log.Error("write metrics failed", zap.String("metrics", path), zap.Error(err))
		}
	}
	ok, failed, skipped := res.Count()
	log.Info("rockmask finished", zap.String("run", runID), zap.Int("ok", ok), zap.Int("failed", failed), zap.Int("skipped", skipped))
	if err = res.Err(); err != nil {
		errs := multierr.Errors(err)
		return cli.Exit(fmt.Sprintf("%d of %d tiles failed or skipped:\n%v", len(errs), len(tiles), err), exitTileFailures)
	}
	return nil
}

// 报告路径为目录时按时间生成文件名
func reportPath(path string) string {
	if path == "" {
		return ""
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, "rockmask_"+utils.GetNowTimeTag()+".json")
	}
	return path
}

func tileReport(o pipeline.TileOutcome) report.TileReport {
	t := report.TileReport{
		Tile:       o.Tile,
		DurationMs: o.Duration.Milliseconds(),
		Summary:    o.Summary,
	}
	if o.Err != nil {
		t.Error = o.Err.Error()
		t.Summary = nil
		return t
	}
	if len(o.Outputs) > 0 {
		t.Output = o.Outputs[0]
	}
	if len(o.Outputs) > 1 {
		t.Quicklook = o.Outputs[1]
	}
	return t
}

// 配置文件 + 命令行覆盖，校验失败时整个运行不开始
func loadConfig(c *cli.Context) (cfg *config.Config, err error) {
	if cfg, err = config.Load(c.String(CONFIG)); err != nil {
		return
	}
	rt := &cfg.Runtime
	for name, dst := range map[string]*string{
		INPUTDIR:    &rt.InputDir,
		BANDPATTERN: &rt.BandPattern,
		COASTLINE:   &rt.Coastline,
		OUTPUTDIR:   &rt.OutputDir,
		OUTPUTEXT:   &rt.OutputExt,
		CACHEDIR:    &rt.CacheDir,
		REPORT:      &rt.Report,
		METRICS:     &rt.Metrics,
		LOGLEVEL:    &rt.LogLevel,
	} {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	for name, dst := range map[string]*bool{
		OVERWRITE: &rt.Overwrite,
		QUICKLOOK: &rt.Quicklook,
	} {
		if c.IsSet(name) {
			*dst = c.Bool(name)
		}
	}
	if c.IsSet(WORKERS) {
		rt.Workers = c.Int(WORKERS)
	}
	th := &cfg.Thresholds
	for name, dst := range map[string]*float64{
		RATIO:     &th.Ratio,
		SNOW:      &th.Snow,
		WATER:     &th.Water,
		SUNTEMP:   &th.SunTemp,
		SHADEBLUE: &th.ShadeBlue,
	} {
		if c.IsSet(name) {
			*dst = c.Float64(name)
		}
	}
	if c.IsSet(BANDS) {
		if err = applyBands(&cfg.Bands, c.String(BANDS)); err != nil {
			return
		}
	}
	if rt.Coastline == "" {
		err = &raster.ConfigurationError{Field: "Config.Runtime.Coastline", Reason: "coastline file is required"}
		return
	}
	if rt.CacheDir == "" {
		rt.CacheDir = filepath.Join(os.TempDir(), "rockmask-cache")
	}
	err = cfg.Validate()
	return
}

func applyBands(b *config.Bands, s string) error {
	roles, err := utils.ParseKeyInts(s)
	if err != nil {
		return &raster.ConfigurationError{Field: "Config.Bands", Reason: err.Error()}
	}
	for role, band := range roles {
		switch role {
		case config.RoleBlue:
			b.Blue = band
		case config.RoleGreen:
			b.Green = band
		case config.RoleNIR:
			b.NIR = band
		case config.RoleSWIR1:
			b.SWIR1 = band
		case config.RoleThermal:
			b.Thermal = band
		default:
			return &raster.ConfigurationError{Field: "Config.Bands", Reason: fmt.Sprintf("unknown role %q", role)}
		}
	}
	return nil
}
