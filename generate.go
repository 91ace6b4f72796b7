package tuning

import (
	"math"

	"github.com/pkg/errors"
)

// return true if r can be stored in a ratio table
func validRatio(r float32) bool {
	return r > 0 && !math.IsInf(float64(r), 0)
}

// CreateGeometric turns t into a geometric tuning over the steps [lo, hi]:
// each period of stepsPerPeriod steps multiplies the ratio by periodRatio, and
// step 0 has ratio 1. On error t is left unchanged.
func (t *Tuning) CreateGeometric(stepsPerPeriod uint16, periodRatio float32, lo, hi int16) error {
	if stepsPerPeriod == 0 || !validRatio(periodRatio) || hi < lo || int(hi)-int(lo)+1 > MaxSteps {
		return errors.Wrapf(ErrInvalidParameters,
			"geometric tuning with %d steps of ratio %v over [%d, %d]", stepsPerPeriod, periodRatio, lo, hi)
	}
	stepRatio := math.Pow(float64(periodRatio), 1/float64(stepsPerPeriod))
	ratios := make([]float32, int(hi)-int(lo)+1)
	for i := range ratios {
		ratios[i] = float32(math.Pow(stepRatio, float64(int(lo)+i)))
		if !validRatio(ratios[i]) {
			return errors.Wrapf(ErrInvalidParameters, "ratio of step %d out of range", int(lo)+i)
		}
	}
	t.kind = Geometric
	t.stepMin = lo
	t.ratios = ratios
	t.groupSize = stepsPerPeriod
	t.groupRatio = periodRatio
	t.rebuildFineTable()
	return nil
}

// CreateGroupGeometric turns t into a group-geometric tuning over the steps
// [lo, hi]. The base ratios are placed starting at step anchor and repeated
// every len(base) steps in both directions, multiplied by periodRatio per
// period upward and divided by it downward. On error t is left unchanged.
func (t *Tuning) CreateGroupGeometric(base []float32, periodRatio float32, lo, hi, anchor int16) error {
	if len(base) == 0 || len(base) > MaxSteps || !validRatio(periodRatio) ||
		hi < lo || anchor < lo || int(anchor)+len(base)-1 > int(hi) || int(hi)-int(lo)+1 > MaxSteps {
		return errors.Wrapf(ErrInvalidParameters,
			"group-geometric tuning with %d base ratios and period ratio %v over [%d, %d] at %d",
			len(base), periodRatio, lo, hi, anchor)
	}
	for i, r := range base {
		if !validRatio(r) {
			return errors.Wrapf(ErrInvalidParameters, "base ratio %d is %v", i, r)
		}
	}
	p := len(base)
	ratios := make([]float32, int(hi)-int(lo)+1)
	start := int(anchor) - int(lo)
	copy(ratios[start:], base)
	for i := start - 1; i >= 0; i-- {
		ratios[i] = ratios[i+p] / periodRatio
	}
	for i := start + p; i < len(ratios); i++ {
		ratios[i] = periodRatio * ratios[i-p]
	}
	for i, r := range ratios {
		if !validRatio(r) {
			return errors.Wrapf(ErrInvalidParameters, "ratio of step %d out of range", int(lo)+i)
		}
	}
	t.kind = GroupGeometric
	t.stepMin = lo
	t.ratios = ratios
	t.groupSize = uint16(p)
	t.groupRatio = periodRatio
	t.rebuildFineTable()
	return nil
}

// ChangeGroupSize regenerates a periodic tuning with a new period length,
// keeping the validity range and the period ratio. A group-geometric tuning
// takes its new base ratios from the steps starting at 0.
func (t *Tuning) ChangeGroupSize(size uint16) error {
	if size == 0 {
		return errors.Wrap(ErrInvalidParameters, "group size 0")
	}
	lo, hi := t.ValidityRange()
	switch t.kind {
	case Geometric:
		return t.CreateGeometric(size, t.groupRatio, lo, hi)
	case GroupGeometric:
		return t.CreateGroupGeometric(t.ratiosFrom(0, int(size)), t.groupRatio, lo, hi, 0)
	case General:
	}
	return errors.Wrapf(ErrWrongKind, "change group size of %v tuning", t.kind)
}

// ChangeGroupRatio regenerates a periodic tuning with a new period ratio.
func (t *Tuning) ChangeGroupRatio(r float32) error {
	lo, hi := t.ValidityRange()
	switch t.kind {
	case Geometric:
		return t.CreateGeometric(t.groupSize, r, lo, hi)
	case GroupGeometric:
		return t.CreateGroupGeometric(t.ratiosFrom(0, int(t.groupSize)), r, lo, hi, 0)
	case General:
	}
	return errors.Wrapf(ErrWrongKind, "change group ratio of %v tuning", t.kind)
}

// return n ratios starting at step first, using the fallback outside the table
func (t *Tuning) ratiosFrom(first, n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = t.ratioAt(first + i)
	}
	return v
}

// SetRatio sets the ratio of a single step of a general tuning. The absolute
// value of r is stored.
func (t *Tuning) SetRatio(note int16, r float32) error {
	if t.kind != General {
		return errors.Wrapf(ErrWrongKind, "set ratio of %v tuning", t.kind)
	}
	if r < 0 {
		r = -r
	}
	if !validRatio(r) {
		return errors.Wrapf(ErrInvalidParameters, "ratio %v", r)
	}
	if !t.IsNoteInTable(note) {
		return errors.Wrapf(ErrNoteOutOfRange, "note %d", note)
	}
	t.ratios[int(note)-int(t.stepMin)] = r
	t.rebuildFineTable()
	return nil
}

// UpdateRatioGroupGeometric sets the ratio of note in a group-geometric
// tuning and moves every step a whole number of periods away along with it,
// so that the ratio of note+k*GroupSize stays |r|*GroupRatio^k. On error t
// is left unchanged.
func (t *Tuning) UpdateRatioGroupGeometric(note int16, r float32) error {
	if t.kind != GroupGeometric {
		return errors.Wrapf(ErrWrongKind, "update group-geometric ratio of %v tuning", t.kind)
	}
	if r < 0 {
		r = -r
	}
	if !validRatio(r) {
		return errors.Wrapf(ErrInvalidParameters, "ratio %v", r)
	}
	if !t.IsNoteInTable(note) {
		return errors.Wrapf(ErrNoteOutOfRange, "note %d", note)
	}
	s, p := int(note), int(t.groupSize)
	lo := int(t.stepMin)
	ratios := append([]float32(nil), t.ratios...)
	for n := lo; n < lo+len(ratios); n++ {
		if d := n - s; posMod(d, p) == 0 {
			k := float64(d) / float64(p)
			ratios[n-lo] = float32(math.Pow(float64(t.groupRatio), k) * float64(r))
			if !validRatio(ratios[n-lo]) {
				return errors.Wrapf(ErrInvalidParameters, "ratio of step %d out of range", n)
			}
		}
	}
	t.ratios = ratios
	t.rebuildFineTable()
	return nil
}
