package raster

import "fmt"

// 不可变的布尔栅格
type Mask struct {
	geo  Geometry
	data []bool
}

func NewMask(geo Geometry, data []bool) (*Mask, error) {
	if err := geo.validate(); err != nil {
		return nil, err
	}
	if len(data) != geo.Len() {
		return nil, fmt.Errorf("%w: want %d samples, got %d", ErrWrongBufferSize, geo.Len(), len(data))
	}
	cp := make([]bool, len(data))
	copy(cp, data)
	return &Mask{geo: geo, data: cp}, nil
}

func FillMask(geo Geometry, v bool) *Mask {
	m := make([]bool, geo.Len())
	if v {
		for i := range m {
			m[i] = true
		}
	}
	return &Mask{geo: geo, data: m}
}

// 逐像元生成掩膜
func GenerateMask(geo Geometry, f func(i int) bool) (*Mask, error) {
	if err := geo.validate(); err != nil {
		return nil, err
	}
	m := make([]bool, geo.Len())
	for i := range m {
		m[i] = f(i)
	}
	return &Mask{geo: geo, data: m}, nil
}

func (m *Mask) Geometry() Geometry {
	return m.geo
}

func (m *Mask) Len() int {
	return len(m.data)
}

func (m *Mask) Get(i int) bool {
	return m.data[i]
}

func (m *Mask) At(row, col int) bool {
	return m.data[row*m.geo.Cols+col]
}

func (m *Mask) Values() []bool {
	cp := make([]bool, len(m.data))
	copy(cp, m.data)
	return cp
}

// 为true的像元数
func (m *Mask) Count() (n int) {
	for _, v := range m.data {
		if v {
			n++
		}
	}
	return
}

func (m *Mask) And(o *Mask) (*Mask, error) {
	return m.combine(o, func(a, b bool) bool { return a && b })
}

func (m *Mask) Or(o *Mask) (*Mask, error) {
	return m.combine(o, func(a, b bool) bool { return a || b })
}

func (m *Mask) combine(o *Mask, op func(a, b bool) bool) (*Mask, error) {
	if err := m.geo.Check(o.geo); err != nil {
		return nil, err
	}
	r := make([]bool, len(m.data))
	for i := range r {
		r[i] = op(m.data[i], o.data[i])
	}
	return &Mask{geo: m.geo, data: r}, nil
}

// 转为0/1字节，便于写出
func (m *Mask) Bytes() []byte {
	b := make([]byte, len(m.data))
	for i, v := range m.data {
		if v {
			b[i] = 1
		}
	}
	return b
}

// 单景的最终分类结果
type ClassificationResult struct {
	Tile string
	Mask *Mask
}

func (r *ClassificationResult) Geometry() Geometry {
	return r.Mask.Geometry()
}
