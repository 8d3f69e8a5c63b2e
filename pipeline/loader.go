package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/wgdzlh/rockmask/raster"
)

// 按景号与波段号解析出已辐射校正的波段栅格
type BandSource interface {
	ReadBand(ctx context.Context, tile string, band int) (*raster.Grid, error)
}

// 在参考几何上生成陆地掩膜，几何须与参考一致
type LandMasker interface {
	LandMask(ref raster.Geometry) (*raster.Mask, error)
}

// 输出分类结果，返回写出的位置
type Writer interface {
	WriteResult(ctx context.Context, res *raster.ClassificationResult) (string, error)
}

// 单景的波段加载器：首个波段确定参考几何，之后每个波段都与之比对。不可跨景复用
type BandLoader struct {
	source BandSource
	tile   string
	ref    *raster.Geometry
}

func NewBandLoader(source BandSource, tile string) *BandLoader {
	return &BandLoader{source: source, tile: tile}
}

func (l *BandLoader) Load(ctx context.Context, band int) (*raster.Grid, error) {
	g, err := l.source.ReadBand(ctx, l.tile, band)
	if err != nil {
		var mb *raster.MissingBandError
		if errors.As(err, &mb) && mb.Tile == "" {
			mb.Tile = l.tile
		}
		return nil, err
	}
	geo := g.Geometry()
	if l.ref == nil {
		l.ref = &geo
		return g, nil
	}
	if err = l.ref.Check(geo); err != nil {
		err = raster.WithTile(err, l.tile)
		var gm *raster.GeometryMismatchError
		if errors.As(err, &gm) {
			gm.What = fmt.Sprintf("band %d %s", band, gm.What)
		}
		return nil, err
	}
	return g, nil
}

// 参考几何（首个加载的波段）
func (l *BandLoader) Reference() (raster.Geometry, bool) {
	if l.ref == nil {
		return raster.Geometry{}, false
	}
	return *l.ref, true
}
