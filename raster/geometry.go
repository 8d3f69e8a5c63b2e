package raster

import (
	"fmt"
	"math"
)

// GDAL顺序的仿射变换：[originX, pixelW, rotX, originY, rotY, pixelH]
type GeoTransform [6]float64

// 栅格的空间参考：行列数、仿射变换和坐标系
type Geometry struct {
	Rows      int
	Cols      int
	Transform GeoTransform
	CRS       string
}

func (g Geometry) Len() int {
	return g.Rows * g.Cols
}

func (g Geometry) Equal(o Geometry) bool {
	return g.Check(o) == nil
}

// 检查两个栅格是否逐像素对齐，不对齐时返回描述差异项的*GeometryMismatchError
func (g Geometry) Check(o Geometry) error {
	switch {
	case g.Rows != o.Rows || g.Cols != o.Cols:
		return &GeometryMismatchError{
			What: "dimensions",
			Want: fmt.Sprintf("%dx%d", g.Rows, g.Cols),
			Got:  fmt.Sprintf("%dx%d", o.Rows, o.Cols),
		}
	case g.Transform != o.Transform:
		return &GeometryMismatchError{
			What: "geotransform",
			Want: fmt.Sprint(g.Transform),
			Got:  fmt.Sprint(o.Transform),
		}
	case g.CRS != o.CRS:
		return &GeometryMismatchError{What: "crs", Want: g.CRS, Got: o.CRS}
	}
	return nil
}

// 外包范围 [minX, minY, maxX, maxY]
func (g Geometry) Bounds() (b [4]float64) {
	t := g.Transform
	b = [4]float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, c := range [4][2]float64{{0, 0}, {float64(g.Cols), 0}, {0, float64(g.Rows)}, {float64(g.Cols), float64(g.Rows)}} {
		x := t[0] + c[0]*t[1] + c[1]*t[2]
		y := t[3] + c[0]*t[4] + c[1]*t[5]
		b[0] = math.Min(b[0], x)
		b[1] = math.Min(b[1], y)
		b[2] = math.Max(b[2], x)
		b[3] = math.Max(b[3], y)
	}
	return
}

func (g Geometry) validate() error {
	if g.Rows <= 0 || g.Cols <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyGrid, g.Rows, g.Cols)
	}
	return nil
}
