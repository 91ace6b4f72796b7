package tuning

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCopyOnWrite(t *testing.T) {
	a := NewHandle(New())
	b := a.Share()
	assert.Equal(t, 2, a.Refs())
	assert.Same(t, a.Tuning(), b.Tuning())

	require.NoError(t, b.Mutate(func(tu *Tuning) error {
		tu.SetName("edited")
		return tu.SetRatio(0, 1.5)
	}))
	assert.Equal(t, "Unnamed", a.Tuning().Name())
	assert.Equal(t, float32(1), a.Tuning().Ratio(0))
	assert.Equal(t, "edited", b.Tuning().Name())
	assert.Equal(t, float32(1.5), b.Tuning().Ratio(0))
	assert.Equal(t, 1, a.Refs())
	assert.Equal(t, 1, b.Refs())

	// an unshared handle keeps its identity
	before := b.Refs()
	require.NoError(t, b.Mutate(func(tu *Tuning) error { return tu.SetRatio(1, 2) }))
	assert.Equal(t, before, b.Refs())
	assert.Equal(t, float32(1.5), b.Tuning().Ratio(0))
	assert.Equal(t, float32(2), b.Tuning().Ratio(1))
}

func TestHandleMutateError(t *testing.T) {
	a := NewHandle(New())
	b := a.Share()
	old := b.Tuning()
	err := b.Mutate(func(tu *Tuning) error {
		tu.SetName("partial")
		return tu.CreateGeometric(0, 2, 0, 1)
	})
	assert.True(t, errors.Is(err, ErrInvalidParameters))
	assert.Same(t, old, b.Tuning())
	assert.Equal(t, "Unnamed", b.Tuning().Name())
	assert.Equal(t, 2, b.Refs())
}

func TestHandleRelease(t *testing.T) {
	a := NewHandle(New())
	b := a.Share()
	assert.False(t, a.Release())
	assert.Equal(t, 1, b.Refs())
	assert.True(t, b.Release())
	assert.False(t, b.Release())
}

func TestHandleConcurrentDetach(t *testing.T) {
	a := NewHandle(New())
	shares := make([]*Handle, 8)
	for i := range shares {
		shares[i] = a.Share()
	}
	var wg sync.WaitGroup
	for _, h := range shares {
		wg.Add(1)
		go func(h *Handle) {
			defer wg.Done()
			assert.NoError(t, h.Mutate(func(tu *Tuning) error { return tu.SetRatio(0, 2) }))
		}(h)
	}
	wg.Wait()
	for _, h := range shares {
		assert.Equal(t, 1, h.Refs())
		assert.Equal(t, float32(2), h.Tuning().Ratio(0))
	}
	assert.Equal(t, 1, a.Refs())
	assert.Equal(t, float32(1), a.Tuning().Ratio(0))
	assert.True(t, a.Release())
}

func TestHandleConcurrentReaders(t *testing.T) {
	tu := New()
	require.NoError(t, tu.CreateGeometric(12, 2, -48, 48))
	tu.SetFineStepCount(10)
	a := NewHandle(tu)
	b := a.Share()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				r := a.Tuning()
				if r.RatioFine(0, 11) != r.Ratio(1) {
					t.Error("inconsistent ratio")
					return
				}
			}
		}()
	}
	for j := 0; j < 100; j++ {
		require.NoError(t, b.Mutate(func(tu *Tuning) error {
			tu.SetFineStepCount(uint32(j % 20))
			return nil
		}))
	}
	wg.Wait()
	assert.Equal(t, uint32(10), a.Tuning().FineStepCount())
}
