package rockmask

import (
	"strconv"
	"strings"
	"sync"

	"github.com/wgdzlh/rockmask/log"

	gdal "github.com/airbusgeo/godal"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type GdalToolbox struct {
	opts    Options
	refMap  map[string]*gdal.SpatialRef
	rLock   sync.Mutex
	coast   *coastSource
	cLock   sync.Mutex
	coastBy map[string]*coastInCrs
	logTag  string
}

// 由GDAL库C语言创建的内存对象，需要手动调用Close回收
type closable interface {
	Close()
}

var registerOnce sync.Once

// 初始化GDAL工具箱
func NewGdalToolbox(opts Options) *GdalToolbox {
	registerOnce.Do(gdal.RegisterAll)
	if opts.OutputExt == "" {
		opts.OutputExt = DEFAULT_OUTPUT_EXT
	}
	if opts.BandPattern == "" {
		opts.BandPattern = DEFAULT_BAND_PATTERN
	}
	return &GdalToolbox{
		opts:    opts,
		refMap:  map[string]*gdal.SpatialRef{},
		coastBy: map[string]*coastInCrs{},
		logTag:  "GdalToolbox:",
	}
}

// 获取坐标系名对应的坐标系（可复用，故无需回收），crs为"EPSG:<code>"或WKT
func (g *GdalToolbox) getCrsRef(crs string) (ref *gdal.SpatialRef, err error) {
	g.rLock.Lock()
	defer g.rLock.Unlock()
	ref, ok := g.refMap[crs]
	if ok {
		return
	}
	if code, isEpsg := epsgCode(crs); isEpsg {
		ref, err = gdal.NewSpatialRefFromEPSG(code)
	} else {
		ref, err = gdal.NewSpatialRefFromWKT(crs)
	}
	if err != nil {
		log.Error(g.logTag+"create spatial ref failed", zap.String("crs", crs), zap.Error(err))
		err = errors.Wrapf(ErrVoidSrid, "crs %q: %v", crs, err)
		return
	}
	// godal创建的坐标系默认采用传统GIS轴序(x=经度/东向, y=纬度/北向)，与仿射变换一致
	g.refMap[crs] = ref
	return
}

// 坐标系的规范名：能识别出权威代码时为"EPSG:<code>"，否则为WKT
func (g *GdalToolbox) crsName(wkt string) (name string) {
	if wkt == "" {
		return
	}
	sr, err := gdal.NewSpatialRefFromWKT(wkt)
	if err != nil {
		log.Warn(g.logTag+"unparsable projection, keep raw wkt", zap.Error(err))
		return wkt
	}
	defer sr.Close()
	if sr.AuthorityCode("") == "" {
		_ = sr.AutoIdentifyEPSG()
	}
	auth, code := sr.AuthorityName(""), sr.AuthorityCode("")
	if auth == "" || code == "" {
		return wkt
	}
	name = strings.ToUpper(auth) + ":" + code
	log.Debug(g.logTag+"got crs from spatial ref", zap.String("crs", name))
	return
}

func epsgCode(crs string) (code int, ok bool) {
	rest, found := strings.CutPrefix(strings.ToUpper(crs), "EPSG:")
	if !found {
		return
	}
	code, err := strconv.Atoi(rest)
	ok = err == nil
	return
}

// 释放缓存的坐标系
func (g *GdalToolbox) Close() {
	g.rLock.Lock()
	defer g.rLock.Unlock()
	for k, ref := range g.refMap {
		ref.Close()
		delete(g.refMap, k)
	}
}
