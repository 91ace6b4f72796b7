package tuning

import (
	"bytes"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGeometric(t *testing.T) {
	tu := New()
	require.NoError(t, tu.CreateGeometric(12, 2.0, -48, 48))
	assert.Equal(t, Geometric, tu.Kind())
	assert.Equal(t, float32(1), tu.Ratio(0))
	assert.InEpsilon(t, 2.0, tu.Ratio(12), 1e-6)
	assert.InEpsilon(t, 0.5, tu.Ratio(-12), 1e-6)
	assert.InEpsilon(t, 16.0, tu.Ratio(48), 1e-5)
	assert.Equal(t, uint16(12), tu.GroupSize())
	assert.Equal(t, float32(2), tu.GroupRatio())
}

func TestCreateGeometricPeriod(t *testing.T) {
	for _, c := range []struct {
		steps  uint16
		ratio  float32
		lo, hi int16
	}{
		{12, 2, -48, 48},
		{19, 2, 0, 100},
		{13, 3, -200, -50},
		{5, 1.5, 100, 200},
		{1, 1.01, -300, 300},
		{31, 0.5, -31, 31},
	} {
		tu := New()
		require.NoError(t, tu.CreateGeometric(c.steps, c.ratio, c.lo, c.hi))
		got := tu.Ratio(c.lo+int16(c.steps)) / tu.Ratio(c.lo)
		assert.InEpsilon(t, c.ratio, got, 1e-5, "%+v", c)
	}
}

func TestFallbackOutsideTable(t *testing.T) {
	tu := New()
	require.NoError(t, tu.CreateGeometric(12, 2, -48, 48))
	for _, note := range []int16{-49, 49, math.MinInt16, math.MaxInt16} {
		assert.Equal(t, FallbackRatio, tu.Ratio(note), "note %d", note)
	}
}

func TestCreateGeometricInvalid(t *testing.T) {
	for _, c := range []struct {
		steps  uint16
		ratio  float32
		lo, hi int16
	}{
		{0, 2, -10, 10},
		{12, 0, -10, 10},
		{12, -2, -10, 10},
		{12, float32(math.NaN()), -10, 10},
		{12, float32(math.Inf(1)), -10, 10},
		{12, 2, 10, -10},
		{12, 2, math.MinInt16, math.MaxInt16},
		{1, 2, 0, 200},
	} {
		tu := New()
		err := tu.CreateGeometric(c.steps, c.ratio, c.lo, c.hi)
		assert.True(t, errors.Is(err, ErrInvalidParameters), "%+v", c)
		assert.Equal(t, General, tu.Kind())
		assert.Equal(t, New().RatioTable(), tu.RatioTable())
	}
}

func TestCreateGeometricMaxRange(t *testing.T) {
	tu := New()
	require.NoError(t, tu.CreateGeometric(12, 1.001, -16384, 16382))
	assert.Len(t, tu.RatioTable(), MaxSteps)
}

func TestCreateGroupGeometric(t *testing.T) {
	tu := New()
	require.NoError(t, tu.CreateGroupGeometric([]float32{1, 1.25, 1.5}, 2, -6, 8, 0))
	assert.Equal(t, GroupGeometric, tu.Kind())
	assert.Equal(t, uint16(3), tu.GroupSize())
	assert.Equal(t, float32(1), tu.Ratio(0))
	assert.Equal(t, float32(1.25), tu.Ratio(1))
	assert.Equal(t, float32(2), tu.Ratio(3))
	assert.Equal(t, float32(6), tu.Ratio(8))
	assert.Equal(t, float32(0.75), tu.Ratio(-1))
	assert.Equal(t, float32(0.5), tu.Ratio(-3))
	assert.Equal(t, float32(0.25), tu.Ratio(-6))
	assert.Equal(t, FallbackRatio, tu.Ratio(9))
}

func TestCreateGroupGeometricExtremeAnchor(t *testing.T) {
	base := []float32{1, 1.25, 1.5}
	tu := New()
	require.NoError(t, tu.CreateGroupGeometric(base, 2, 32760, math.MaxInt16, 32765))
	assert.Equal(t, float32(1), tu.Ratio(32765))
	assert.Equal(t, float32(1.5), tu.Ratio(math.MaxInt16))
	assert.Equal(t, float32(0.5), tu.Ratio(32762))

	require.NoError(t, tu.CreateGroupGeometric(base, 2, math.MinInt16, -32760, math.MinInt16))
	assert.Equal(t, float32(1), tu.Ratio(math.MinInt16))
	assert.Equal(t, float32(2), tu.Ratio(-32765))
	assert.Equal(t, float32(6), tu.Ratio(-32760))
}

func TestCreateGroupGeometricInvalid(t *testing.T) {
	for name, c := range map[string]struct {
		base          []float32
		ratio         float32
		lo, hi, start int16
	}{
		"empty base":      {nil, 2, -10, 10, 0},
		"zero ratio":      {[]float32{1, 1.5}, 0, -10, 10, 0},
		"zero base ratio": {[]float32{1, 0}, 2, -10, 10, 0},
		"reversed range":  {[]float32{1, 1.5}, 2, 10, -10, 0},
		"anchor below":    {[]float32{1, 1.5}, 2, -10, 10, -11},
		"base past hi":    {[]float32{1, 1.5}, 2, -10, 10, 10},
	} {
		tu := New()
		err := tu.CreateGroupGeometric(c.base, c.ratio, c.lo, c.hi, c.start)
		assert.True(t, errors.Is(err, ErrInvalidParameters), name)
		assert.Equal(t, General, tu.Kind(), name)
		assert.Equal(t, New().RatioTable(), tu.RatioTable(), name)
	}
}

func TestUpdateRatioGroupGeometric(t *testing.T) {
	tu := New()
	require.NoError(t, tu.CreateGroupGeometric([]float32{1, 1.2, 1.5}, 2, -9, 11, 0))
	for _, note := range []int16{1, -2, 11} {
		require.NoError(t, tu.UpdateRatioGroupGeometric(note, -1.1))
		lo, hi := tu.ValidityRange()
		for n := int(lo); n <= int(hi); n++ {
			d := n - int(note)
			if posMod(d, 3) != 0 {
				continue
			}
			k := float64(d / 3)
			want := float64(tu.Ratio(note)) * math.Pow(2, k)
			assert.InEpsilon(t, want, tu.Ratio(int16(n)), 1e-6, "note %d step %d", note, n)
		}
	}
	assert.InEpsilon(t, 1.1, tu.Ratio(11), 1e-6)
	assert.Equal(t, float32(1), tu.Ratio(0))
}

func TestUpdateRatioGroupGeometricErrors(t *testing.T) {
	tu := New()
	assert.True(t, errors.Is(tu.UpdateRatioGroupGeometric(0, 1), ErrWrongKind))
	require.NoError(t, tu.CreateGroupGeometric([]float32{1, 1.5}, 2, -4, 4, 0))
	assert.True(t, errors.Is(tu.UpdateRatioGroupGeometric(5, 1), ErrNoteOutOfRange))
	assert.True(t, errors.Is(tu.UpdateRatioGroupGeometric(0, 0), ErrInvalidParameters))
}

func TestUpdateRatioGroupGeometricOverflow(t *testing.T) {
	tu := New()
	require.NoError(t, tu.CreateGroupGeometric([]float32{1, 1.5}, 2, -4, 200, 0))
	before := append([]float32(nil), tu.RatioTable()...)
	err := tu.UpdateRatioGroupGeometric(0, 1e30)
	assert.True(t, errors.Is(err, ErrInvalidParameters))
	assert.Equal(t, before, tu.RatioTable())
	assert.Equal(t, float32(1), tu.Ratio(0))

	var buf bytes.Buffer
	require.NoError(t, tu.Serialize(&buf))
	_, err = Deserialize(&buf)
	assert.NoError(t, err)
}

func TestSetRatio(t *testing.T) {
	tu := New()
	require.NoError(t, tu.SetRatio(0, -1.5))
	assert.Equal(t, float32(1.5), tu.Ratio(0))
	before := tu.RatioTable()
	assert.True(t, errors.Is(tu.SetRatio(64, 2), ErrNoteOutOfRange))
	assert.True(t, errors.Is(tu.SetRatio(0, 0), ErrInvalidParameters))
	assert.Equal(t, before, tu.RatioTable())
	assert.Equal(t, int16(StepMinDefault), tu.StepMin())

	require.NoError(t, tu.CreateGeometric(12, 2, -12, 12))
	assert.True(t, errors.Is(tu.SetRatio(0, 2), ErrWrongKind))
}

func TestChangeGroup(t *testing.T) {
	tu := New()
	require.NoError(t, tu.CreateGeometric(12, 2, -48, 48))
	require.NoError(t, tu.ChangeGroupSize(24))
	assert.InEpsilon(t, 2, tu.Ratio(24), 1e-6)
	lo, hi := tu.ValidityRange()
	assert.Equal(t, int16(-48), lo)
	assert.Equal(t, int16(48), hi)
	require.NoError(t, tu.ChangeGroupRatio(3))
	assert.InEpsilon(t, 3, tu.Ratio(24), 1e-6)

	require.NoError(t, tu.CreateGroupGeometric([]float32{1, 1.25, 1.5}, 2, -6, 8, 0))
	require.NoError(t, tu.ChangeGroupSize(2))
	assert.Equal(t, float32(1.25), tu.Ratio(1))
	assert.Equal(t, float32(2), tu.Ratio(2))
	require.NoError(t, tu.ChangeGroupRatio(3))
	assert.Equal(t, float32(3), tu.Ratio(2))

	assert.True(t, errors.Is(tu.ChangeGroupSize(0), ErrInvalidParameters))
	assert.True(t, errors.Is(New().ChangeGroupSize(12), ErrWrongKind))
	assert.True(t, errors.Is(New().ChangeGroupRatio(2), ErrWrongKind))
}
