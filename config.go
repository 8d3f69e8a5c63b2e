package rockmask

const (
	FILE_EXT_SHP     = ".shp"
	FILE_EXT_GPKG    = ".gpkg"
	FILE_EXT_GEOJSON = ".geojson"
	FILE_EXT_TIF     = ".tif"

	TILE_PLACEHOLDER = "{tile}"
	BAND_PLACEHOLDER = "{band}"
	S3_SCHEME        = "s3://"

	// ESPA的TOA产品命名：<TILEID>_toa_band<N>.tif
	DEFAULT_BAND_PATTERN = TILE_PLACEHOLDER + "_toa_band" + BAND_PLACEHOLDER + FILE_EXT_TIF
	DEFAULT_OUTPUT_EXT   = "_rock.tif"

	TMP_OUTPUT = ".%s_%s" + FILE_EXT_TIF
)

var (
	outputCreationOpts = []string{"COMPRESS=LZW", "TILED=YES"}
)
