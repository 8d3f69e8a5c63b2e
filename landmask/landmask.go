package landmask

import (
	"errors"

	"github.com/go-spatial/geom"
)

var ErrNotPolygonal = errors.New("coastline geometry must be polygonal")

// 海岸线（陆地范围）矢量面及其坐标系
type Coastline struct {
	Polygons geom.MultiPolygon
	CRS      string
}

// 由任意面/多面几何构建海岸线，其他类型返回错误
func FromGeometry(g geom.Geometry, crs string) (c Coastline, err error) {
	c.CRS = crs
	switch v := g.(type) {
	case geom.Polygon:
		c.Polygons = geom.MultiPolygon{v}
	case geom.MultiPolygon:
		c.Polygons = v
	case geom.Collection:
		var sub Coastline
		for _, item := range v {
			if sub, err = FromGeometry(item, crs); err != nil {
				return
			}
			c.Polygons = append(c.Polygons, sub.Polygons...)
		}
	default:
		err = ErrNotPolygonal
	}
	return
}

// 全部外环顶点的外包矩形，无面时为nil
func (c Coastline) Extent() *geom.Extent {
	var ext *geom.Extent
	for _, p := range c.Polygons {
		if len(p) == 0 {
			continue
		}
		for _, pt := range p[0] {
			if ext == nil {
				ext = geom.NewExtent(pt)
				continue
			}
			ext.AddPoints(pt)
		}
	}
	return ext
}

// 外包矩形与span（minX,minY,maxX,maxY）是否相交，边界接触不算
func (c Coastline) Intersects(span [4]float64) bool {
	ext := c.Extent()
	if ext == nil {
		return false
	}
	return ext.MinX() < span[2] && span[0] < ext.MaxX() &&
		ext.MinY() < span[3] && span[1] < ext.MaxY()
}
