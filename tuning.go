// Package tuning maps note steps, optionally refined by fine steps, to
// frequency ratios relative to the pitch of step 0, and reads and writes those
// mappings in the current tagged binary format and in two older fixed layouts.
//
// A Tuning is built with New, the Create* generators, or one of the decoders.
// Lookups (Ratio, RatioFine, FineStepRatio, NoteName) may run concurrently
// with each other. Mutations must be serialized by the caller; share a tuning
// between owners through a Handle to get copy-on-write edits.
package tuning

import (
	"fmt"
	"math"
	"sync/atomic"
)

const (
	// MaxSteps bounds the ratio table length and the fine step count.
	MaxSteps = math.MaxInt16

	StepMinDefault        = -64
	RatioTableSizeDefault = 128

	// FineTableSizeMax caps the cached fine ratio table; larger tables are
	// computed on the fly.
	FineTableSizeMax = 1000

	// FallbackRatio is returned for steps outside the ratio table.
	FallbackRatio float32 = 1.0

	// MiddlePeriod is the octave number of the period containing step 0.
	MiddlePeriod = 5

	defaultName = "Unnamed"
)

// Kind selects how the ratio table is generated. The values are the ones
// stored on disk.
type Kind uint16

const (
	General        Kind = 0
	GroupGeometric Kind = 1
	Geometric      Kind = 3
)

var kindNames = map[Kind]string{
	General:        "general",
	GroupGeometric: "groupgeometric",
	Geometric:      "geometric",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint16(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown tuning kind %q", s)
}

func (k Kind) valid() bool {
	switch k {
	case General, GroupGeometric, Geometric:
		return true
	}
	return false
}

// true for kinds whose table repeats every groupSize steps
func (k Kind) periodic() bool {
	return k == GroupGeometric || k == Geometric
}

// Tuning is a ratio table over a contiguous range of steps.
type Tuning struct {
	name       string
	kind       Kind
	stepMin    int16
	ratios     []float32
	groupSize  uint16
	groupRatio float32
	fineSteps  uint32
	noteNames  map[int16]string

	// derived from the fields above by rebuildFineTable, never edited in place
	fineRatios atomic.Pointer[[]float32]
}

// New returns the default general tuning: 128 steps of ratio 1 starting at
// StepMinDefault.
func New() *Tuning {
	t := &Tuning{
		name:      defaultName,
		kind:      General,
		noteNames: make(map[int16]string),
	}
	t.resetTable()
	return t
}

// set the default ratio table and clear periodic data
func (t *Tuning) resetTable() {
	t.stepMin = StepMinDefault
	t.ratios = make([]float32, RatioTableSizeDefault)
	for i := range t.ratios {
		t.ratios[i] = 1
	}
	t.groupSize = 0
	t.groupRatio = 0
	t.fineRatios.Store(nil)
}

// Clone returns a deep copy of t.
func (t *Tuning) Clone() *Tuning {
	c := &Tuning{}
	c.assign(t)
	c.ratios = append([]float32(nil), t.ratios...)
	c.noteNames = make(map[int16]string, len(t.noteNames))
	for k, v := range t.noteNames {
		c.noteNames[k] = v
	}
	return c
}

// copy all fields of src into t; the fine table is shared since it is never
// modified after being published
func (t *Tuning) assign(src *Tuning) {
	t.name = src.name
	t.kind = src.kind
	t.stepMin = src.stepMin
	t.ratios = src.ratios
	t.groupSize = src.groupSize
	t.groupRatio = src.groupRatio
	t.fineSteps = src.fineSteps
	t.noteNames = src.noteNames
	t.fineRatios.Store(src.fineRatios.Load())
}

func (t *Tuning) Name() string { return t.name }
func (t *Tuning) SetName(name string) { t.name = name }
func (t *Tuning) Kind() Kind { return t.kind }
func (t *Tuning) StepMin() int16 { return t.stepMin }
func (t *Tuning) GroupSize() uint16 { return t.groupSize }
func (t *Tuning) GroupRatio() float32 { return t.groupRatio }
func (t *Tuning) FineStepCount() uint32 { return t.fineSteps }

// RatioTable returns a copy of the ratio table, starting at StepMin.
func (t *Tuning) RatioTable() []float32 {
	return append([]float32(nil), t.ratios...)
}

// ValidityRange returns the first and last step covered by the ratio table.
func (t *Tuning) ValidityRange() (int16, int16) {
	return t.stepMin, int16(int(t.stepMin) + len(t.ratios) - 1)
}

// IsNoteInTable reports whether note has its own entry in the ratio table.
func (t *Tuning) IsNoteInTable(note int16) bool {
	i := int(note) - int(t.stepMin)
	return i >= 0 && i < len(t.ratios)
}

// NoteNames returns a copy of the note name overrides.
func (t *Tuning) NoteNames() map[int16]string {
	m := make(map[int16]string, len(t.noteNames))
	for k, v := range t.noteNames {
		m[k] = v
	}
	return m
}

// SetNoteName overrides the generated name for note. For periodic tunings the
// key is the position within the period.
func (t *Tuning) SetNoteName(note int16, name string) {
	if t.noteNames == nil {
		t.noteNames = make(map[int16]string)
	}
	t.noteNames[note] = name
}

// ClearNoteName removes an override, returning false if there was none.
func (t *Tuning) ClearNoteName(note int16) bool {
	if _, ok := t.noteNames[note]; !ok {
		return false
	}
	delete(t.noteNames, note)
	return true
}

// modulo where the result is always in the range [0, y)
func posMod(x, y int) int {
	x %= y
	if x < 0 {
		x += y
	}
	return x
}

// division rounding toward negative infinity
func floorDiv(x, y int) int {
	return (x - posMod(x, y)) / y
}
