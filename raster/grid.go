package raster

import (
	"fmt"
	"math"
)

// 默认无效值，派生指数栅格在除零或输入无效处写入该值
const DefaultNoData = -9999.0

// 不可变的浮点栅格，按行优先存储
type Grid struct {
	geo    Geometry
	data   []float64
	nodata float64
}

// 复制data构建栅格；NaN与±Inf统一替换为无效值
func NewGrid(geo Geometry, data []float64, nodata float64) (*Grid, error) {
	if err := geo.validate(); err != nil {
		return nil, err
	}
	if len(data) != geo.Len() {
		return nil, fmt.Errorf("%w: want %d samples, got %d", ErrWrongBufferSize, geo.Len(), len(data))
	}
	if math.IsNaN(nodata) || math.IsInf(nodata, 0) {
		return nil, fmt.Errorf("nodata sentinel must be finite, got %v", nodata)
	}
	cp := make([]float64, len(data))
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = nodata
		}
		cp[i] = v
	}
	return &Grid{geo: geo, data: cp, nodata: nodata}, nil
}

// 逐像元计算生成新栅格，ok为false的像元写入无效值
func Generate(geo Geometry, nodata float64, f func(i int) (v float64, ok bool)) (*Grid, error) {
	if err := geo.validate(); err != nil {
		return nil, err
	}
	data := make([]float64, geo.Len())
	for i := range data {
		v, ok := f(i)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			v = nodata
		}
		data[i] = v
	}
	return &Grid{geo: geo, data: data, nodata: nodata}, nil
}

func (g *Grid) Geometry() Geometry {
	return g.geo
}

func (g *Grid) NoData() float64 {
	return g.nodata
}

func (g *Grid) Len() int {
	return len(g.data)
}

// 第i个像元的值及是否有效
func (g *Grid) Sample(i int) (v float64, ok bool) {
	v = g.data[i]
	ok = v != g.nodata
	return
}

func (g *Grid) Valid(i int) bool {
	return g.data[i] != g.nodata
}

func (g *Grid) At(row, col int) float64 {
	return g.data[row*g.geo.Cols+col]
}

// 返回样本副本
func (g *Grid) Values() []float64 {
	cp := make([]float64, len(g.data))
	copy(cp, g.data)
	return cp
}

// 所有有效像元的值
func (g *Grid) ValidValues() []float64 {
	ret := make([]float64, 0, len(g.data))
	for _, v := range g.data {
		if v != g.nodata {
			ret = append(ret, v)
		}
	}
	return ret
}

// 阈值判断：输入无效的像元恒为false
func (g *Grid) Test(pred func(v float64) bool) *Mask {
	m := make([]bool, len(g.data))
	for i, v := range g.data {
		m[i] = v != g.nodata && pred(v)
	}
	return &Mask{geo: g.geo, data: m}
}

func (g *Grid) GreaterThan(t float64) *Mask {
	return g.Test(func(v float64) bool { return v > t })
}

func (g *Grid) LessThan(t float64) *Mask {
	return g.Test(func(v float64) bool { return v < t })
}
