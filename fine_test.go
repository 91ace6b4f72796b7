package tuning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edo12(t *testing.T, fine uint32) *Tuning {
	tu := New()
	require.NoError(t, tu.CreateGeometric(12, 2, -48, 48))
	tu.SetFineStepCount(fine)
	return tu
}

func TestRatioFine(t *testing.T) {
	tu := edo12(t, 9)
	assert.Equal(t, tu.Ratio(3), tu.RatioFine(3, 0))
	assert.Equal(t, tu.Ratio(1), tu.RatioFine(0, 10))
	assert.Equal(t, tu.Ratio(-1), tu.RatioFine(0, -10))
	assert.InEpsilon(t, math.Pow(2, 5.0/120), tu.RatioFine(0, 5), 1e-6)
	assert.InEpsilon(t, math.Pow(2, -1.0/120), tu.RatioFine(0, -1), 1e-6)
	assert.InEpsilon(t, math.Pow(2, 13.0/120), tu.RatioFine(0, 13), 1e-6)
}

func TestRatioFineWithoutFineSteps(t *testing.T) {
	tu := edo12(t, 0)
	assert.Equal(t, tu.Ratio(5), tu.RatioFine(3, 2))
	assert.Equal(t, tu.Ratio(-2), tu.RatioFine(3, -5))
	assert.Equal(t, float32(1), tu.FineStepRatio(3, 1))
}

func TestRatioFineFallback(t *testing.T) {
	tu := edo12(t, 9)
	assert.Equal(t, FallbackRatio, tu.RatioFine(48, 11))
	assert.Equal(t, FallbackRatio, tu.RatioFine(math.MaxInt16, math.MaxInt32))
	assert.Equal(t, FallbackRatio, tu.RatioFine(math.MinInt16, math.MinInt32))
}

func TestFineMonotonic(t *testing.T) {
	for _, tu := range []*Tuning{edo12(t, 7), func() *Tuning {
		tu := New()
		require.NoError(t, tu.CreateGroupGeometric([]float32{1, 1.125, 1.25, 1.5, 1.875}, 2, -20, 20, 0))
		tu.SetFineStepCount(15)
		return tu
	}()} {
		n := int32(tu.FineStepCount())
		for note := int16(-10); note < 10; note++ {
			prev := tu.Ratio(note)
			for fs := int32(0); fs <= n; fs++ {
				r := tu.RatioFine(note, fs)
				assert.GreaterOrEqual(t, r, prev, "note %d fine step %d", note, fs)
				assert.LessOrEqual(t, r, tu.Ratio(note+1), "note %d fine step %d", note, fs)
				prev = r
			}
		}
	}
}

func TestFineStepRatioClamp(t *testing.T) {
	tu := edo12(t, 4)
	assert.Equal(t, tu.FineStepRatio(0, 1), tu.FineStepRatio(0, 0))
	assert.Equal(t, tu.FineStepRatio(0, 4), tu.FineStepRatio(0, 100))
}

func TestFineCache(t *testing.T) {
	tu := edo12(t, 9)
	require.NotNil(t, tu.fineRatios.Load())
	assert.Len(t, *tu.fineRatios.Load(), 9)

	tu.SetFineStepCount(FineTableSizeMax + 1)
	assert.Nil(t, tu.fineRatios.Load())
	assert.InEpsilon(t, math.Pow(2, 1.0/12/1002), tu.FineStepRatio(0, 1), 1e-6)

	tu.SetFineStepCount(1 << 20)
	assert.Equal(t, uint32(MaxSteps), tu.FineStepCount())

	require.NoError(t, tu.CreateGroupGeometric([]float32{1, 1.25, 1.5}, 2, -6, 8, 0))
	tu.SetFineStepCount(3)
	require.NotNil(t, tu.fineRatios.Load())
	assert.Len(t, *tu.fineRatios.Load(), 9)
	assert.InEpsilon(t, math.Pow(1.2, 0.5), tu.FineStepRatio(4, 2), 1e-6)
	assert.InEpsilon(t, math.Pow(1.2, 0.5), tu.FineStepRatio(-2, 2), 1e-6)

	// 3 reference notes of 400 fine steps exceed the cap
	tu.SetFineStepCount(400)
	assert.Nil(t, tu.fineRatios.Load())
	assert.InEpsilon(t, math.Pow(1.2, 200.0/401), tu.FineStepRatio(4, 200), 1e-6)
}

func TestFineGeneral(t *testing.T) {
	tu := New()
	require.NoError(t, tu.SetRatio(0, 1))
	require.NoError(t, tu.SetRatio(1, 1.5))
	tu.SetFineStepCount(1)
	assert.Nil(t, tu.fineRatios.Load())
	assert.InEpsilon(t, math.Sqrt(1.5), tu.FineStepRatio(0, 1), 1e-6)
	assert.InEpsilon(t, math.Sqrt(1.5), tu.RatioFine(0, 1), 1e-6)
	assert.Equal(t, float32(1.5), tu.RatioFine(0, 2))
}
