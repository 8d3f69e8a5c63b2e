package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/wgdzlh/rockmask/classify"
	"github.com/wgdzlh/rockmask/raster"
)

const maxConfigSize = 1 << 20

// 分类阈值。亮温与蓝光阈值为ESPA TOA产品的缩放值（反射率×10000，亮温K×10）
type Thresholds struct {
	Ratio     float64 `json:"ratio" default:"0.4" validate:"gt=0"`
	Snow      float64 `json:"snow" default:"0.75" validate:"gte=-1,lte=1"`
	Water     float64 `json:"water" default:"0.45" validate:"gte=-1,lte=1"`
	SunTemp   float64 `json:"sun_temp" default:"2550" validate:"gt=0"`
	ShadeBlue float64 `json:"shade_blue" default:"2500" validate:"gt=0"`
}

func (t Thresholds) Classify() classify.Thresholds {
	return classify.Thresholds{
		Ratio:     t.Ratio,
		Snow:      t.Snow,
		Water:     t.Water,
		SunTemp:   t.SunTemp,
		ShadeBlue: t.ShadeBlue,
	}
}

// 光谱角色到波段号的映射，默认为Landsat-8 OLI/TIRS
type Bands struct {
	Blue    int `json:"blue" default:"2" validate:"gt=0"`
	Green   int `json:"green" default:"3" validate:"gt=0"`
	NIR     int `json:"nir" default:"5" validate:"gt=0"`
	SWIR1   int `json:"swir1" default:"6" validate:"gt=0"`
	Thermal int `json:"thermal" default:"10" validate:"gt=0"`
}

// 按加载顺序排列的角色和波段号，第一个（蓝光）为参考栅格
func (b Bands) Roles() []Role {
	return []Role{
		{RoleBlue, b.Blue},
		{RoleGreen, b.Green},
		{RoleNIR, b.NIR},
		{RoleSWIR1, b.SWIR1},
		{RoleThermal, b.Thermal},
	}
}

type Role struct {
	Name string
	Band int
}

const (
	RoleBlue    = "blue"
	RoleGreen   = "green"
	RoleNIR     = "nir"
	RoleSWIR1   = "swir1"
	RoleThermal = "thermal"
)

type Runtime struct {
	// 波段文件路径模板，{tile}与{band}为占位符；以s3://开头时先下载到CacheDir
	BandPattern string `json:"band_pattern" default:"{tile}_toa_band{band}.tif" validate:"required,contains={tile},contains={band}"`
	InputDir    string `json:"input_dir"`
	Coastline   string `json:"coastline"`
	OutputDir   string `json:"output_dir" default:"."`
	OutputExt   string `json:"output_ext" default:"_rock.tif" validate:"startswith=_,endswith=.tif"`
	Overwrite   bool   `json:"overwrite"`
	Workers     int    `json:"workers" default:"1" validate:"gte=1,lte=256"`
	CacheDir    string `json:"cache_dir"`
	Quicklook   bool   `json:"quicklook"`
	Report      string `json:"report"`
	Metrics     string `json:"metrics"`
	LogLevel    string `json:"log_level" default:"info" validate:"oneof=debug info warn error"`
}

type Config struct {
	Thresholds Thresholds `json:"thresholds"`
	Bands      Bands      `json:"bands"`
	Runtime    Runtime    `json:"runtime"`
}

// 全部字段取默认值的配置
func Default() *Config {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		panic(err)
	}
	return c
}

// 读取JSON配置文件，文件中未给出的字段保留默认值；path为空时返回默认配置
func Load(path string) (c *Config, err error) {
	c = Default()
	if path == "" {
		return
	}
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		err = &raster.ConfigurationError{Field: "file", Reason: fmt.Sprintf("must have .json extension, got %q", ext)}
		return
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		err = &raster.ConfigurationError{Field: "file", Reason: err.Error()}
		return
	}
	if info.Size() > maxConfigSize {
		err = &raster.ConfigurationError{Field: "file", Reason: fmt.Sprintf("too large: %d bytes", info.Size())}
		return
	}
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		err = &raster.ConfigurationError{Field: "file", Reason: err.Error()}
		return
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err = dec.Decode(c); err != nil {
		err = &raster.ConfigurationError{Field: "file", Reason: err.Error()}
		return
	}
	return
}

var validate = validator.New()

// 校验配置，任何问题都以*raster.ConfigurationError返回
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &raster.ConfigurationError{
				Field:  fe.Namespace(),
				Reason: fmt.Sprintf("failed %q check (value %v)", fe.Tag(), fe.Value()),
			}
		}
		return &raster.ConfigurationError{Field: "config", Reason: err.Error()}
	}
	seen := map[int]string{}
	for _, r := range c.Bands.Roles() {
		if prev, ok := seen[r.Band]; ok {
			return &raster.ConfigurationError{
				Field:  "Config.Bands." + r.Name,
				Reason: fmt.Sprintf("band %d already assigned to %s", r.Band, prev),
			}
		}
		seen[r.Band] = r.Name
	}
	return nil
}
