package rockmask

import (
	"github.com/wgdzlh/rockmask/landmask"
	"github.com/wgdzlh/rockmask/log"
	"github.com/wgdzlh/rockmask/raster"

	gdal "github.com/airbusgeo/godal"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const LAND_VALUE = 1

// 读入的海岸线：原始坐标系下各面要素的WKB
type coastSource struct {
	path string
	crs  string
	wkbs []GdalGeo
}

// 某一坐标系下的海岸线：WKB用于GDAL栅格化，Coastline用于范围判断
type coastInCrs struct {
	wkbs  []GdalGeo
	coast landmask.Coastline
}

// 读取海岸线矢量（shp/gpkg等，取第一个图层）的全部面要素
func (g *GdalToolbox) LoadCoastline(path string) (err error) {
	log.Info(g.logTag+"start load coastline", zap.String("file", path))
	if !knownVectorExt(path) {
		log.Warn(g.logTag+"unusual coastline extension, let gdal probe the driver", zap.String("file", path))
	}
	ds, err := gdal.Open(path, gdal.VectorOnly())
	if err != nil {
		log.Error(g.logTag+"open coastline failed", zap.String("file", path), zap.Error(err))
		err = errors.Wrap(ErrGdalDriverOpen, err.Error())
		return
	}
	defer ds.Close()
	layers := ds.Layers()
	if len(layers) == 0 {
		err = ErrGdalEmptyShp
		return
	}
	layer := layers[0]
	cs := &coastSource{path: path}
	if sr := layer.SpatialRef(); sr != nil {
		wkt, e := sr.WKT()
		if e == nil {
			cs.crs = g.crsName(wkt)
		}
	}
	if cs.crs == "" {
		err = ErrVoidSrid
		return
	}
	var (
		feature *gdal.Feature
		geo     *gdal.Geometry
		b       []byte
		e       error
		gc      []closable
	)
	defer func() {
		for _, v := range gc {
			v.Close()
		}
	}()
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, feature)
		if geo = feature.Geometry(); geo == nil || geo.Empty() {
			continue
		}
		gc = append(gc, geo)
		if b, e = geo.WKB(); e != nil {
			log.Error(g.logTag+"err in wkb convert", zap.Error(e))
			continue
		}
		cs.wkbs = append(cs.wkbs, b)
	}
	if len(cs.wkbs) == 0 {
		err = ErrGdalEmptyShp
		return
	}
	c, err := decodeCoastline(cs.wkbs, cs.crs)
	if err != nil {
		return
	}
	g.cLock.Lock()
	g.coast = cs
	g.coastBy = map[string]*coastInCrs{cs.crs: {wkbs: cs.wkbs, coast: c}}
	g.cLock.Unlock()
	fields := []zap.Field{zap.String("file", path), zap.String("crs", cs.crs), zap.Int("features", len(cs.wkbs))}
	if ext := c.Extent(); ext != nil {
		fields = append(fields, zap.String("extent", SpanToWkt(ext.Extent())))
	}
	log.Info(g.logTag+"coastline loaded", fields...)
	return
}

// 获取目标坐标系下的海岸线，必要时重投影；结果按坐标系缓存，各景共享只读
func (g *GdalToolbox) coastlineIn(crs string) (cc *coastInCrs, err error) {
	g.cLock.Lock()
	defer g.cLock.Unlock()
	if g.coast == nil {
		err = ErrNoCoastline
		return
	}
	if cc = g.coastBy[crs]; cc != nil {
		return
	}
	wkbs, err := g.reprojectCoastline(crs)
	if err != nil {
		return
	}
	c, err := decodeCoastline(wkbs, crs)
	if err != nil {
		return
	}
	cc = &coastInCrs{wkbs: wkbs, coast: c}
	g.coastBy[crs] = cc
	return
}

func (g *GdalToolbox) reprojectCoastline(crs string) (out []GdalGeo, err error) {
	log.Info(g.logTag+"reproject coastline", zap.String("from", g.coast.crs), zap.String("to", crs))
	sRef, err := g.getCrsRef(g.coast.crs)
	if err != nil {
		return
	}
	tRef, err := g.getCrsRef(crs)
	if err != nil {
		return
	}
	out = make([]GdalGeo, 0, len(g.coast.wkbs))
	var (
		geo *gdal.Geometry
		b   []byte
	)
	for _, a := range g.coast.wkbs {
		if geo, err = gdal.NewGeometryFromWKB(a, sRef); err != nil {
			log.Error(g.logTag+"parse wkb failed", zap.Error(err))
			return
		}
		if err = geo.Reproject(tRef); err != nil {
			geo.Close()
			log.Error(g.logTag+"geo transform failed", zap.Error(err))
			return
		}
		b, err = geo.WKB()
		geo.Close()
		if err != nil {
			return
		}
		out = append(out, b)
	}
	return
}

func decodeCoastline(wkbs []GdalGeo, crs string) (c landmask.Coastline, err error) {
	c.CRS = crs
	var (
		geo geom.Geometry
		sub landmask.Coastline
	)
	for _, b := range wkbs {
		if geo, err = wkb.DecodeBytes(b); err != nil {
			return
		}
		if sub, err = landmask.FromGeometry(geo, crs); err != nil {
			err = errors.Wrap(ErrGdalWrongGeoType, err.Error())
			return
		}
		c.Polygons = append(c.Polygons, sub.Polygons...)
	}
	return
}

// 在参考栅格上栅格化海岸线：像元中心落在陆地面内为true（洞除外），矢量未覆盖处为false
func (g *GdalToolbox) LandMask(ref raster.Geometry) (mask *raster.Mask, err error) {
	if ref.CRS == "" {
		err = ErrVoidSrid
		return
	}
	cc, err := g.coastlineIn(ref.CRS)
	if err != nil {
		return
	}
	if !cc.coast.Intersects(ref.Bounds()) {
		log.Debug(g.logTag+"coastline misses tile, no land", zap.String("footprint", SpanToWkt(ref.Bounds())))
		mask = raster.FillMask(ref, false)
		return
	}
	tRef, err := g.getCrsRef(ref.CRS)
	if err != nil {
		return
	}
	mds, err := gdal.Create(gdal.Memory, "", 1, gdal.Byte, ref.Cols, ref.Rows)
	if err != nil {
		err = errors.Wrap(ErrGdalDriverCreate, err.Error())
		return
	}
	defer mds.Close()
	if err = mds.SetGeoTransform([6]float64(ref.Transform)); err != nil {
		return
	}
	if err = mds.SetSpatialRef(tRef); err != nil {
		return
	}
	var geo *gdal.Geometry
	for _, b := range cc.wkbs {
		if geo, err = gdal.NewGeometryFromWKB(b, tRef); err != nil {
			log.Error(g.logTag+"parse wkb failed", zap.Error(err))
			return
		}
		err = mds.RasterizeGeometry(geo, gdal.Values(LAND_VALUE))
		geo.Close()
		if err != nil {
			log.Error(g.logTag+"rasterize coastline failed", zap.Error(err))
			err = errors.Wrap(ErrRasterizeFailed, err.Error())
			return
		}
	}
	buf := make([]byte, ref.Len())
	if err = mds.Bands()[0].IO(gdal.IORead, 0, 0, buf, ref.Cols, ref.Rows); err != nil {
		err = errors.Wrap(ErrTifReadFailed, err.Error())
		return
	}
	return raster.GenerateMask(ref, func(i int) bool { return buf[i] == LAND_VALUE })
}
