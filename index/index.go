// 波段间的光谱指数计算。两个操作数须逐像元对齐；任一输入无效或分母为0处，结果写入无效值
package index

import (
	"github.com/wgdzlh/rockmask/raster"
)

// 对齐像元逐对计算
func elementwise(a, b *raster.Grid, f func(x, y float64) (float64, bool)) (*raster.Grid, error) {
	if err := a.Geometry().Check(b.Geometry()); err != nil {
		return nil, err
	}
	// 不沿用波段的无效值（如0），避免与有效的指数值冲突
	return raster.Generate(a.Geometry(), raster.DefaultNoData, func(i int) (float64, bool) {
		x, ok := a.Sample(i)
		if !ok {
			return 0, false
		}
		y, ok := b.Sample(i)
		if !ok {
			return 0, false
		}
		return f(x, y)
	})
}

// 归一化差值 (a-b)/(a+b)
func NormalizedDifference(a, b *raster.Grid) (*raster.Grid, error) {
	return elementwise(a, b, func(x, y float64) (float64, bool) {
		den := x + y
		if den == 0 {
			return 0, false
		}
		return (x - y) / den, true
	})
}

// 比值 a/b
func Ratio(a, b *raster.Grid) (*raster.Grid, error) {
	return elementwise(a, b, func(x, y float64) (float64, bool) {
		if y == 0 {
			return 0, false
		}
		return x / y, true
	})
}

// 雪指数NDSI：绿光与短波红外1
func SnowIndex(green, swir1 *raster.Grid) (*raster.Grid, error) {
	return NormalizedDifference(green, swir1)
}

// 水体指数NDWI：绿光与近红外
func WaterIndex(green, nir *raster.Grid) (*raster.Grid, error) {
	return NormalizedDifference(green, nir)
}
