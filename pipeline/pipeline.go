package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wgdzlh/rockmask/classify"
	"github.com/wgdzlh/rockmask/config"
	"github.com/wgdzlh/rockmask/index"
	"github.com/wgdzlh/rockmask/log"
	"github.com/wgdzlh/rockmask/raster"
)

// 单景处理的全部产物；Result交给输出，其余用于统计与诊断
type Product struct {
	Result   *raster.ClassificationResult
	Land     *raster.Mask
	Snow     *raster.Grid
	Water    *raster.Grid
	Branches [2]classify.BranchResult
}

// 单景处理流程：加载波段 -> 陆地掩膜 -> 指数 -> 两个分支 -> 合并
type Pipeline struct {
	source     BandSource
	land       LandMasker
	bands      config.Bands
	classifier *classify.Classifier
	logTag     string
}

// 构建前先校验配置，配置错误时不处理任何一景
func New(source BandSource, land LandMasker, cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		source:     source,
		land:       land,
		bands:      cfg.Bands,
		classifier: classify.NewClassifier(cfg.Thresholds.Classify()),
		logTag:     "Pipeline:",
	}, nil
}

func (p *Pipeline) Run(ctx context.Context, tile string) (*raster.ClassificationResult, error) {
	prod, err := p.Process(ctx, tile)
	if err != nil {
		return nil, err
	}
	return prod.Result, nil
}

func (p *Pipeline) Process(ctx context.Context, tile string) (prod *Product, err error) {
	tic := time.Now()
	loader := NewBandLoader(p.source, tile)
	grids := make(map[string]*raster.Grid, 5)
	for _, r := range p.bands.Roles() {
		if grids[r.Name], err = loader.Load(ctx, r.Band); err != nil {
			log.Error(p.logTag+"load band failed", zap.String("tile", tile), zap.String("role", r.Name), zap.Int("band", r.Band), zap.Error(err))
			return
		}
	}
	ref, _ := loader.Reference()
	land, err := p.land.LandMask(ref)
	if err == nil {
		err = ref.Check(land.Geometry())
	}
	if err != nil {
		err = raster.WithTile(err, tile)
		log.Error(p.logTag+"build land mask failed", zap.String("tile", tile), zap.String("crs", ref.CRS), zap.Error(err))
		return
	}
	log.Info(p.logTag+"loaded & coast masked", zap.String("tile", tile), zap.Duration("took", time.Since(tic)), zap.Int("land", land.Count()))

	tic = time.Now()
	snow, err := index.SnowIndex(grids[config.RoleGreen], grids[config.RoleSWIR1])
	if err != nil {
		err = raster.WithTile(err, tile)
		return
	}
	water, err := index.WaterIndex(grids[config.RoleGreen], grids[config.RoleNIR])
	if err != nil {
		err = raster.WithTile(err, tile)
		return
	}
	res, branches, err := p.classifier.Classify(tile, classify.Inputs{
		Blue:    grids[config.RoleBlue],
		Thermal: grids[config.RoleThermal],
		Snow:    snow,
		Water:   water,
		Land:    land,
	})
	if err != nil {
		log.Error(p.logTag+"classify failed", zap.String("tile", tile), zap.Error(err))
		return
	}
	prod = &Product{Result: res, Land: land, Snow: snow, Water: water, Branches: branches}
	log.Info(p.logTag+"processed", zap.String("tile", tile), zap.Duration("took", time.Since(tic)),
		zap.Int(classify.BranchSunlit, prod.Branches[0].Mask.Count()),
		zap.Int(classify.BranchShaded, prod.Branches[1].Mask.Count()),
		zap.Int("rock", prod.Result.Mask.Count()))
	return
}
