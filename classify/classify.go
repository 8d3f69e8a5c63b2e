package classify

import (
	"errors"
	"fmt"

	"github.com/wgdzlh/rockmask/index"
	"github.com/wgdzlh/rockmask/raster"
)

const (
	CritThermalBlueRatio = "thermal_blue_ratio"
	CritSnowIndex        = "snow_index"
	CritWaterIndex       = "water_index"
	CritLand             = "land"
	CritThermal          = "thermal_brightness"
	CritBlue             = "blue_brightness"

	BranchSunlit = "sunlit_rock"
	BranchShaded = "shaded_rock"
)

var ErrMissingInput = errors.New("missing classifier input")

// 分类阈值。默认值对应ESPA TOA产品的整数缩放：反射率×10000，亮温(K)×10
type Thresholds struct {
	Ratio     float64 // 热红外/蓝光比值下限
	Snow      float64 // NDSI上限
	Water     float64 // NDWI上限
	SunTemp   float64 // 向阳岩石的热红外亮温下限（缩放值）
	ShadeBlue float64 // 阴影岩石的蓝光反射率上限（缩放值）
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Ratio:     0.4,
		Snow:      0.75,
		Water:     0.45,
		SunTemp:   2550,
		ShadeBlue: 2500,
	}
}

// 单景分类所需的全部对齐输入
type Inputs struct {
	Blue    *raster.Grid
	Thermal *raster.Grid
	Snow    *raster.Grid
	Water   *raster.Grid
	Land    *raster.Mask
}

func (in Inputs) check() error {
	for name, ok := range map[string]bool{
		"blue":    in.Blue != nil,
		"thermal": in.Thermal != nil,
		"snow":    in.Snow != nil,
		"water":   in.Water != nil,
		"land":    in.Land != nil,
	} {
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingInput, name)
		}
	}
	geo := in.Blue.Geometry()
	for _, o := range []raster.Geometry{in.Thermal.Geometry(), in.Snow.Geometry(), in.Water.Geometry(), in.Land.Geometry()} {
		if err := geo.Check(o); err != nil {
			return err
		}
	}
	return nil
}

// 具名的布尔子判据
type Criterion struct {
	Name string
	Eval func(in Inputs) (*raster.Mask, error)
}

func GreaterThan(name string, pick func(Inputs) *raster.Grid, t float64) Criterion {
	return Criterion{Name: name, Eval: func(in Inputs) (*raster.Mask, error) {
		return pick(in).GreaterThan(t), nil
	}}
}

func LessThan(name string, pick func(Inputs) *raster.Grid, t float64) Criterion {
	return Criterion{Name: name, Eval: func(in Inputs) (*raster.Mask, error) {
		return pick(in).LessThan(t), nil
	}}
}

func InsideLand() Criterion {
	return Criterion{Name: CritLand, Eval: func(in Inputs) (*raster.Mask, error) {
		return in.Land, nil
	}}
}

// 热红外与蓝光的比值判据，比值在判定时计算
func ThermalBlueRatio(t float64) Criterion {
	return Criterion{Name: CritThermalBlueRatio, Eval: func(in Inputs) (*raster.Mask, error) {
		r, err := index.Ratio(in.Thermal, in.Blue)
		if err != nil {
			return nil, err
		}
		return r.GreaterThan(t), nil
	}}
}

func blue(in Inputs) *raster.Grid    { return in.Blue }
func thermal(in Inputs) *raster.Grid { return in.Thermal }
func snow(in Inputs) *raster.Grid    { return in.Snow }
func water(in Inputs) *raster.Grid   { return in.Water }

// 分支：所有子判据同时成立的像元为真
type Branch struct {
	Name     string
	Criteria []Criterion
}

// 分支判定结果，同时保留各子判据掩膜便于诊断
type BranchResult struct {
	Name     string
	Mask     *raster.Mask
	Criteria map[string]*raster.Mask
}

func (b Branch) Evaluate(in Inputs) (ret BranchResult, err error) {
	if len(b.Criteria) == 0 {
		err = fmt.Errorf("branch %s has no criteria", b.Name)
		return
	}
	ret = BranchResult{Name: b.Name, Criteria: make(map[string]*raster.Mask, len(b.Criteria))}
	var m *raster.Mask
	for _, c := range b.Criteria {
		if m, err = c.Eval(in); err != nil {
			err = fmt.Errorf("%s/%s: %w", b.Name, c.Name, err)
			return
		}
		ret.Criteria[c.Name] = m
		if ret.Mask == nil {
			ret.Mask = m
			continue
		}
		if ret.Mask, err = ret.Mask.And(m); err != nil {
			err = fmt.Errorf("%s/%s: %w", b.Name, c.Name, err)
			return
		}
	}
	return
}

// 向阳岩石：比值、雪指数、水体指数、陆地、热红外亮温
func SunlitRock(t Thresholds) Branch {
	return Branch{Name: BranchSunlit, Criteria: []Criterion{
		ThermalBlueRatio(t.Ratio),
		LessThan(CritSnowIndex, snow, t.Snow),
		LessThan(CritWaterIndex, water, t.Water),
		InsideLand(),
		GreaterThan(CritThermal, thermal, t.SunTemp),
	}}
}

// 阴影岩石：蓝光反射率、水体指数、陆地
func ShadedRock(t Thresholds) Branch {
	return Branch{Name: BranchShaded, Criteria: []Criterion{
		LessThan(CritBlue, blue, t.ShadeBlue),
		LessThan(CritWaterIndex, water, t.Water),
		InsideLand(),
	}}
}

// 两个分支逐像元取或
func Combine(tile string, a, b *raster.Mask) (*raster.ClassificationResult, error) {
	m, err := a.Or(b)
	if err != nil {
		return nil, raster.WithTile(err, tile)
	}
	return &raster.ClassificationResult{Tile: tile, Mask: m}, nil
}

type Classifier struct {
	Branches [2]Branch
}

func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{Branches: [2]Branch{SunlitRock(t), ShadedRock(t)}}
}

// 单景分类：先判定两个分支，再合并
func (c *Classifier) Classify(tile string, in Inputs) (ret *raster.ClassificationResult, branches [2]BranchResult, err error) {
	if err = in.check(); err != nil {
		err = raster.WithTile(err, tile)
		return
	}
	for i, b := range c.Branches {
		if branches[i], err = b.Evaluate(in); err != nil {
			err = raster.WithTile(err, tile)
			return
		}
	}
	ret, err = Combine(tile, branches[0].Mask, branches[1].Mask)
	return
}
