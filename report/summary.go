package report

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wgdzlh/rockmask/raster"
)

// 指数栅格有效像元的统计量
type IndexStats struct {
	Valid int     `json:"valid"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// 单景分类统计
type Summary struct {
	Tile         string      `json:"tile"`
	Pixels       int         `json:"pixels"`
	Land         int         `json:"land"`
	Rock         int         `json:"rock"`
	Sunlit       int         `json:"sunlit"`
	Shaded       int         `json:"shaded"`
	RockFraction float64     `json:"rock_fraction"` // 岩石像元占陆地像元比例
	Snow         *IndexStats `json:"snow,omitempty"`
	Water        *IndexStats `json:"water,omitempty"`
}

func Stats(g *raster.Grid) *IndexStats {
	if g == nil {
		return nil
	}
	vals := g.ValidValues()
	if len(vals) == 0 {
		return nil
	}
	mean, std := stat.MeanStdDev(vals, nil)
	if len(vals) == 1 {
		std = 0
	}
	return &IndexStats{
		Valid: len(vals),
		Mean:  mean,
		Std:   std,
		Min:   floats.Min(vals),
		Max:   floats.Max(vals),
	}
}

// sunlit与shaded为两个分支各自的掩膜，可为nil
func Summarize(res *raster.ClassificationResult, land, sunlit, shaded *raster.Mask, snow, water *raster.Grid) Summary {
	s := Summary{
		Tile:   res.Tile,
		Pixels: res.Mask.Len(),
		Rock:   res.Mask.Count(),
		Snow:   Stats(snow),
		Water:  Stats(water),
	}
	if land != nil {
		s.Land = land.Count()
	}
	if sunlit != nil {
		s.Sunlit = sunlit.Count()
	}
	if shaded != nil {
		s.Shaded = shaded.Count()
	}
	if s.Land > 0 {
		s.RockFraction = float64(s.Rock) / float64(s.Land)
	}
	return s
}
