package rockmask

import (
	"errors"

	"github.com/wgdzlh/rockmask/raster"
)

var (
	ErrGdalDriverOpen   = errors.New("gdal driver open err")
	ErrGdalDriverCreate = errors.New("gdal driver create err")
	ErrVoidSrid         = errors.New("gdal dataset with void srid")
	ErrGdalWrongGeoType = errors.New("gdal wrong geo type")
	ErrGdalEmptyShp     = errors.New("gdal shp is empty")
	ErrNoCoastline      = errors.New("coastline not loaded")
	ErrInvalidTif       = errors.New("invalid tif")
	ErrEmptyTif         = errors.New("empty tif")
	ErrTifReadFailed    = errors.New("tif read failed")
	ErrTifWriteFailed   = errors.New("tif write failed")
	ErrRasterizeFailed  = errors.New("rasterize failed")
	ErrOutputExists     = raster.ErrOutputExists
	ErrNoStager         = errors.New("remote band pattern without stager")
)
