package rockmask

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wgdzlh/rockmask/log"
	"github.com/wgdzlh/rockmask/raster"
	"github.com/wgdzlh/rockmask/store"

	gdal "github.com/airbusgeo/godal"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// 按模板解析景号和波段号对应的路径
func (g *GdalToolbox) BandPath(tile string, band int) string {
	p := strings.ReplaceAll(g.opts.BandPattern, TILE_PLACEHOLDER, tile)
	p = strings.ReplaceAll(p, BAND_PLACEHOLDER, strconv.Itoa(band))
	if strings.HasPrefix(p, S3_SCHEME) || filepath.IsAbs(p) || g.opts.InputDir == "" {
		return p
	}
	return filepath.Join(g.opts.InputDir, p)
}

func (g *GdalToolbox) resolveBand(ctx context.Context, tile string, band int) (path string, err error) {
	path = g.BandPath(tile, band)
	if strings.HasPrefix(path, S3_SCHEME) {
		if g.opts.Stager == nil {
			err = ErrNoStager
			return
		}
		uri := path
		if path, err = g.opts.Stager.Stage(ctx, uri); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				err = &raster.MissingBandError{Tile: tile, Band: band, Path: uri, Err: err}
			}
			return
		}
	}
	if _, e := os.Stat(path); e != nil {
		if errors.Is(e, fs.ErrNotExist) {
			err = &raster.MissingBandError{Tile: tile, Band: band, Path: path}
		} else {
			err = errors.Wrapf(e, "stat band %d of %s", band, tile)
		}
	}
	return
}

// 读取单个波段（文件第1个波段）为浮点栅格
func (g *GdalToolbox) ReadBand(ctx context.Context, tile string, band int) (grid *raster.Grid, err error) {
	path, err := g.resolveBand(ctx, tile, band)
	if err != nil {
		return
	}
	sds, err := gdal.Open(path, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open tif failed", zap.String("tif", path), zap.Error(err))
		err = errors.Wrap(ErrInvalidTif, err.Error())
		return
	}
	defer sds.Close()
	tifBands := sds.Bands()
	if len(tifBands) == 0 {
		err = ErrEmptyTif
		return
	}
	b := tifBands[0]
	bandStruct := b.Structure()
	x, y := bandStruct.SizeX, bandStruct.SizeY
	log.Debug(g.logTag+"read tif band", zap.String("tif", path), zap.String("dt", bandStruct.DataType.String()), zap.Int("width", x), zap.Int("height", y))
	buf := make([]float64, x*y)
	if err = b.IO(gdal.IORead, 0, 0, buf, x, y); err != nil {
		log.Error(g.logTag+"read tif band failed", zap.String("tif", path), zap.Error(err))
		err = errors.Wrap(ErrTifReadFailed, err.Error())
		return
	}
	gt, err := sds.GeoTransform()
	if err != nil {
		err = errors.Wrapf(err, "geotransform of %s", path)
		return
	}
	nodata, ok := b.NoData()
	if !ok {
		nodata = raster.DefaultNoData
	}
	geo := raster.Geometry{
		Rows:      y,
		Cols:      x,
		Transform: raster.GeoTransform(gt),
		CRS:       g.crsName(sds.Projection()),
	}
	grid, err = raster.NewGrid(geo, buf, nodata)
	return
}

// 将分类结果写为单波段Byte GeoTIFF（1为岩石），先写临时文件再改名，失败时不留残缺输出
func (g *GdalToolbox) WriteResult(ctx context.Context, res *raster.ClassificationResult) (out string, err error) {
	out = filepath.Join(g.opts.OutputDir, res.Tile+g.opts.OutputExt)
	if !g.opts.Overwrite {
		if _, e := os.Stat(out); e == nil {
			err = errors.Wrap(ErrOutputExists, out)
			return
		}
	}
	geo := res.Geometry()
	tmp := filepath.Join(g.opts.OutputDir, fmt.Sprintf(TMP_OUTPUT, res.Tile, uuid.NewString()))
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()
	ods, err := gdal.Create(gdal.GTiff, tmp, 1, gdal.Byte, geo.Cols, geo.Rows, gdal.CreationOption(outputCreationOpts...))
	if err != nil {
		log.Error(g.logTag+"create output tif failed", zap.String("tif", tmp), zap.Error(err))
		err = errors.Wrap(ErrGdalDriverCreate, err.Error())
		return
	}
	if err = g.fillOutput(ods, res); err != nil {
		ods.Close()
		return
	}
	if err = ods.Close(); err != nil { // 关闭时落盘
		err = errors.Wrap(ErrTifWriteFailed, err.Error())
		return
	}
	if err = os.Rename(tmp, out); err != nil {
		return
	}
	log.Info(g.logTag+"output tif written", zap.String("tile", res.Tile), zap.String("tif", out), zap.String("footprint", SpanToWkt(geo.Bounds())))
	return
}

func (g *GdalToolbox) fillOutput(ods *gdal.Dataset, res *raster.ClassificationResult) (err error) {
	geo := res.Geometry()
	if err = ods.SetGeoTransform([6]float64(geo.Transform)); err != nil {
		return
	}
	if geo.CRS != "" {
		var ref *gdal.SpatialRef
		if ref, err = g.getCrsRef(geo.CRS); err != nil {
			return
		}
		if err = ods.SetSpatialRef(ref); err != nil {
			return
		}
	}
	band := ods.Bands()[0]
	if err = band.IO(gdal.IOWrite, 0, 0, res.Mask.Bytes(), geo.Cols, geo.Rows); err != nil {
		log.Error(g.logTag+"write tif band failed", zap.String("tile", res.Tile), zap.Error(err))
		err = errors.Wrap(ErrTifWriteFailed, err.Error())
	}
	return
}
