package classify

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgdzlh/rockmask/index"
	"github.com/wgdzlh/rockmask/raster"
)

var geo = raster.Geometry{
	Rows:      2,
	Cols:      2,
	Transform: raster.GeoTransform{300000, 30, 0, 4500000, 0, -30},
	CRS:       "EPSG:32633",
}

func grid(t *testing.T, data ...float64) *raster.Grid {
	t.Helper()
	g, err := raster.NewGrid(geo, data, raster.DefaultNoData)
	require.NoError(t, err)
	return g
}

func mask(t *testing.T, data ...bool) *raster.Mask {
	t.Helper()
	m, err := raster.NewMask(geo, data)
	require.NoError(t, err)
	return m
}

// 2×2合成景：蓝、绿、近红外、短波红外1、热红外
func scenarioInputs(t *testing.T, land *raster.Mask) Inputs {
	t.Helper()
	green := grid(t, 3000, 3000, 3000, 3000)
	nir := grid(t, 2500, 2500, 2500, 2500)
	swir1 := grid(t, 3500, 3500, 3500, 3500)
	snowIdx, err := index.SnowIndex(green, swir1)
	require.NoError(t, err)
	waterIdx, err := index.WaterIndex(green, nir)
	require.NoError(t, err)
	return Inputs{
		Blue:    grid(t, 2000, 3000, 2600, 2400),
		Thermal: grid(t, 2600, 2000, 2600, 2000),
		Snow:    snowIdx,
		Water:   waterIdx,
		Land:    land,
	}
}

func TestClassify_Scenario(t *testing.T) {
	in := scenarioInputs(t, raster.FillMask(geo, true))
	for i := 0; i < 4; i++ {
		v, _ := in.Snow.Sample(i)
		assert.InDelta(t, -500.0/6500, v, 1e-12)
		v, _ = in.Water.Sample(i)
		assert.InDelta(t, 500.0/5500, v, 1e-12)
	}

	res, branches, err := NewClassifier(DefaultThresholds()).Classify("SYNTH", in)
	require.NoError(t, err)
	assert.Equal(t, "SYNTH", res.Tile)

	tests := []struct {
		name string
		got  []bool
		want []bool
	}{
		{BranchSunlit, branches[0].Mask.Values(), []bool{true, false, true, false}},
		{BranchShaded, branches[1].Mask.Values(), []bool{true, false, false, true}},
		{"final", res.Mask.Values(), []bool{true, false, true, true}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", tt.name, diff)
		}
	}
	assert.Equal(t, BranchSunlit, branches[0].Name)
	assert.Len(t, branches[0].Criteria, 5)
	assert.Len(t, branches[1].Criteria, 3)
	assert.Equal(t, []bool{true, false, true, false}, branches[0].Criteria[CritThermal].Values())
}

func TestClassify_OutsideLandNeverRock(t *testing.T) {
	in := scenarioInputs(t, mask(t, false, true, false, true))
	res, _, err := NewClassifier(DefaultThresholds()).Classify("SYNTH", in)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, true}, res.Mask.Values())

	in = scenarioInputs(t, raster.FillMask(geo, false))
	res, _, err = NewClassifier(DefaultThresholds()).Classify("SYNTH", in)
	require.NoError(t, err)
	assert.Zero(t, res.Mask.Count())
}

func TestClassify_NoDataNeverRock(t *testing.T) {
	in := scenarioInputs(t, raster.FillMask(geo, true))
	in.Blue = grid(t, raster.DefaultNoData, 3000, 2600, 2400)
	in.Thermal = grid(t, raster.DefaultNoData, 2000, 2600, 2000)
	res, branches, err := NewClassifier(DefaultThresholds()).Classify("SYNTH", in)
	require.NoError(t, err)
	assert.False(t, branches[0].Mask.Get(0))
	assert.False(t, branches[1].Mask.Get(0))
	assert.False(t, res.Mask.Get(0))
}

func TestCombine_TruthTable(t *testing.T) {
	a := mask(t, false, false, true, true)
	b := mask(t, false, true, false, true)
	res, err := Combine("T", a, b)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, true, true}, res.Mask.Values())
}

func TestCriteria_Monotonic(t *testing.T) {
	in := scenarioInputs(t, raster.FillMask(geo, true))
	tighter := func(t Thresholds) Thresholds {
		t.Ratio += 0.5
		t.Snow -= 0.5
		t.Water -= 0.1
		t.SunTemp += 50
		t.ShadeBlue -= 300
		return t
	}
	loose := DefaultThresholds()
	strict := tighter(loose)

	for i, pair := range [][2]Branch{
		{SunlitRock(loose), SunlitRock(strict)},
		{ShadedRock(loose), ShadedRock(strict)},
	} {
		l, err := pair[0].Evaluate(in)
		require.NoError(t, err)
		s, err := pair[1].Evaluate(in)
		require.NoError(t, err)
		for p := 0; p < geo.Len(); p++ {
			if s.Mask.Get(p) {
				assert.True(t, l.Mask.Get(p), "branch %d pixel %d true under stricter thresholds only", i, p)
			}
		}
	}
}

// 替换首个像元的值，其余不变
func withFirst(t *testing.T, g *raster.Grid, v float64) *raster.Grid {
	t.Helper()
	data := append([]float64(nil), g.Values()...)
	data[0] = v
	r, err := raster.NewGrid(g.Geometry(), data, g.NoData())
	require.NoError(t, err)
	return r
}

// 场景中像元0同时满足两个分支；每次只让一个子判据在该像元失败
func TestBranch_SingleCriterionFails(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		branch    Branch
		criterion string
		mutate    func(t *testing.T, in *Inputs)
	}{
		{SunlitRock(th), CritThermalBlueRatio, func(t *testing.T, in *Inputs) {
			in.Blue = withFirst(t, in.Blue, 7000) // 2600/7000 < 0.4
		}},
		{SunlitRock(th), CritSnowIndex, func(t *testing.T, in *Inputs) {
			in.Snow = withFirst(t, in.Snow, 0.8)
		}},
		{SunlitRock(th), CritWaterIndex, func(t *testing.T, in *Inputs) {
			in.Water = withFirst(t, in.Water, 0.5)
		}},
		{SunlitRock(th), CritLand, func(t *testing.T, in *Inputs) {
			in.Land = mask(t, false, true, true, true)
		}},
		{SunlitRock(th), CritThermal, func(t *testing.T, in *Inputs) {
			in.Thermal = withFirst(t, in.Thermal, 2500) // 比值1.25仍满足
		}},
		{ShadedRock(th), CritBlue, func(t *testing.T, in *Inputs) {
			in.Blue = withFirst(t, in.Blue, 2600)
		}},
		{ShadedRock(th), CritWaterIndex, func(t *testing.T, in *Inputs) {
			in.Water = withFirst(t, in.Water, 0.5)
		}},
		{ShadedRock(th), CritLand, func(t *testing.T, in *Inputs) {
			in.Land = mask(t, false, true, true, true)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.branch.Name+"/"+tt.criterion, func(t *testing.T) {
			base, err := tt.branch.Evaluate(scenarioInputs(t, raster.FillMask(geo, true)))
			require.NoError(t, err)
			require.True(t, base.Mask.Get(0))
			require.Contains(t, base.Criteria, tt.criterion)

			in := scenarioInputs(t, raster.FillMask(geo, true))
			tt.mutate(t, &in)
			got, err := tt.branch.Evaluate(in)
			require.NoError(t, err)
			assert.False(t, got.Mask.Get(0), "branch still true at pixel 0")
			assert.False(t, got.Criteria[tt.criterion].Get(0))
			for name, m := range got.Criteria {
				if name == tt.criterion {
					continue
				}
				if diff := cmp.Diff(base.Criteria[name].Values(), m.Values()); diff != "" {
					t.Errorf("criterion %s changed (-want +got):\n%s", name, diff)
				}
			}
			assert.Equal(t, base.Mask.Values()[1:], got.Mask.Values()[1:], "other pixels unaffected")
		})
	}
}

func TestStrictComparisons(t *testing.T) {
	th := DefaultThresholds()
	in := scenarioInputs(t, raster.FillMask(geo, true))
	in.Thermal = grid(t, th.SunTemp, th.SunTemp, th.SunTemp, th.SunTemp)
	in.Blue = grid(t, th.ShadeBlue, th.ShadeBlue, th.ShadeBlue, th.ShadeBlue)
	res, _, err := NewClassifier(th).Classify("EDGE", in)
	require.NoError(t, err)
	assert.Zero(t, res.Mask.Count(), "values equal to thresholds are not rock")
}

func TestClassify_InputErrors(t *testing.T) {
	other := geo
	other.Cols = 4
	other.Rows = 1
	tests := []struct {
		name    string
		mutate  func(in *Inputs)
		wantErr assert.ErrorAssertionFunc
	}{
		{"missing land", func(in *Inputs) { in.Land = nil }, func(t assert.TestingT, err error, _ ...any) bool {
			return assert.ErrorIs(t, err, ErrMissingInput)
		}},
		{"misaligned land", func(in *Inputs) { in.Land = raster.FillMask(other, true) }, func(t assert.TestingT, err error, _ ...any) bool {
			var gm *raster.GeometryMismatchError
			return assert.ErrorAs(t, err, &gm) && assert.Equal(t, "MIS", gm.Tile)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scenarioInputs(t, raster.FillMask(geo, true))
			tt.mutate(&in)
			_, _, err := NewClassifier(DefaultThresholds()).Classify("MIS", in)
			tt.wantErr(t, err)
		})
	}
}

func TestBranch_Empty(t *testing.T) {
	_, err := Branch{Name: "nothing"}.Evaluate(Inputs{})
	assert.Error(t, err)
}
