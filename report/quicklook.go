package report

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/wgdzlh/rockmask/raster"
)

const (
	QuicklookMaxSide = 1024
	QuicklookSuffix  = "_quicklook.png"
)

// 将掩膜降采样为热力图网格：块内任一像元为真则该块为1，行号自下而上
type maskGrid struct {
	m      *raster.Mask
	stride int
	cols   int
	rows   int
}

func newMaskGrid(m *raster.Mask, maxSide int) *maskGrid {
	geo := m.Geometry()
	stride := 1
	for geo.Cols/stride > maxSide || geo.Rows/stride > maxSide {
		stride++
	}
	return &maskGrid{
		m:      m,
		stride: stride,
		cols:   (geo.Cols + stride - 1) / stride,
		rows:   (geo.Rows + stride - 1) / stride,
	}
}

func (g *maskGrid) Dims() (c, r int) {
	return g.cols, g.rows
}

func (g *maskGrid) Z(c, r int) float64 {
	geo := g.m.Geometry()
	top := (g.rows - 1 - r) * g.stride
	for y := top; y < top+g.stride && y < geo.Rows; y++ {
		for x := c * g.stride; x < (c+1)*g.stride && x < geo.Cols; x++ {
			if g.m.At(y, x) {
				return 1
			}
		}
	}
	return 0
}

func (g *maskGrid) X(c int) float64 {
	return float64(c)
}

func (g *maskGrid) Y(r int) float64 {
	return float64(r)
}

// 输出分类结果缩略图（PNG）；Overwrite为false时已存在的缩略图不覆盖
type QuicklookWriter struct {
	Dir       string
	MaxSide   int
	Overwrite bool
}

func (w QuicklookWriter) WriteResult(ctx context.Context, res *raster.ClassificationResult) (out string, err error) {
	path := filepath.Join(w.Dir, res.Tile+QuicklookSuffix)
	if !w.Overwrite {
		if _, e := os.Stat(path); e == nil {
			err = fmt.Errorf("%w: %s", raster.ErrOutputExists, path)
			return
		}
	}
	maxSide := w.MaxSide
	if maxSide <= 0 {
		maxSide = QuicklookMaxSide
	}
	grid := newMaskGrid(res.Mask, maxSide)
	pal := palette.Heat(2, 1)
	colors := pal.Colors()
	colors[0] = color.RGBA{R: 0xee, G: 0xf3, B: 0xf8, A: 0xff}
	hm := plotter.NewHeatMap(grid, fixedPalette(colors))
	hm.Min, hm.Max = 0, 1
	hm.Rasterized = true

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s rock outcrop (%d px)", res.Tile, res.Mask.Count())
	p.HideAxes()
	p.Add(hm)

	cols, rows := grid.Dims()
	width := 6 * vg.Inch
	height := width * vg.Length(rows) / vg.Length(cols)
	tmp := filepath.Join(w.Dir, res.Tile+"."+uuid.NewString()+".png")
	if err = p.Save(width, height, tmp); err != nil {
		os.Remove(tmp)
		return
	}
	if err = os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return
	}
	out = path
	return
}

type fixedPalette []color.Color

func (p fixedPalette) Colors() []color.Color {
	return p
}
