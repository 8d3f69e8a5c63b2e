package raster

import (
	"errors"
	"fmt"
)

var (
	ErrMissingBand      = errors.New("missing band")
	ErrGeometryMismatch = errors.New("geometry mismatch")
	ErrConfiguration    = errors.New("configuration error")
	ErrEmptyGrid        = errors.New("empty grid")
	ErrWrongBufferSize  = errors.New("wrong buffer size")
	ErrOutputExists     = errors.New("output exists")
)

// 某景影像缺少所需波段，只影响该景
type MissingBandError struct {
	Tile string
	Band int
	Path string
	Err  error
}

func (e *MissingBandError) Error() string {
	msg := fmt.Sprintf("tile %s: band %d not found", e.Tile, e.Band)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MissingBandError) Is(target error) bool {
	return target == ErrMissingBand
}

func (e *MissingBandError) Unwrap() error {
	return e.Err
}

// 同一景的两个输入（波段之间，或波段与陆地掩膜）在行列数、仿射变换或坐标系上不一致
type GeometryMismatchError struct {
	Tile string
	What string
	Want string
	Got  string
}

func (e *GeometryMismatchError) Error() string {
	prefix := ""
	if e.Tile != "" {
		prefix = "tile " + e.Tile + ": "
	}
	return fmt.Sprintf("%s%s mismatch: want %s, got %s", prefix, e.What, e.Want, e.Got)
}

func (e *GeometryMismatchError) Is(target error) bool {
	return target == ErrGeometryMismatch
}

// 阈值或波段映射缺失或超出合理范围，整个批次在处理前失败
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// 给对齐错误补上景号
func WithTile(err error, tile string) error {
	var gm *GeometryMismatchError
	if errors.As(err, &gm) && gm.Tile == "" {
		c := *gm
		c.Tile = tile
		return &c
	}
	return err
}
