package rockmask

import (
	"fmt"
	"path/filepath"
	"strings"
)

// 矩形范围转WKT多边形，x1/x2为横坐标范围，y1/y2为纵坐标范围
func PointsToWkt(x1, x2, y1, y2 float64) string {
	return fmt.Sprintf("POLYGON((%[1]f %[3]f, %[1]f %[4]f, %[2]f %[4]f, %[2]f %[3]f, %[1]f %[3]f))", x1, x2, y1, y2)
}

// span为[minX, minY, maxX, maxY]
func SpanToWkt(span [4]float64) string {
	return PointsToWkt(span[0], span[2], span[1], span[3])
}

// 常见海岸线格式；其他格式交给GDAL自行识别
func knownVectorExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case FILE_EXT_SHP, FILE_EXT_GPKG, FILE_EXT_GEOJSON:
		return true
	}
	return false
}
