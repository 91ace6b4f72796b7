package tuning

import "math"

// Ratio returns the ratio of note, or FallbackRatio if note is outside the
// ratio table.
func (t *Tuning) Ratio(note int16) float32 {
	return t.ratioAt(int(note))
}

func (t *Tuning) ratioAt(note int) float32 {
	i := note - int(t.stepMin)
	if i < 0 || i >= len(t.ratios) {
		return FallbackRatio
	}
	return t.ratios[i]
}

// RatioFine returns the ratio fineOffset fine steps away from baseNote. With
// N fine steps per note, N+1 fine steps reach the next note, and negative
// offsets borrow from the notes below: offset -1 is the last fine step of
// baseNote-1.
func (t *Tuning) RatioFine(baseNote int16, fineOffset int32) float32 {
	n := int(t.fineSteps)
	if n == 0 || fineOffset == 0 {
		return t.ratioAt(int(baseNote) + int(fineOffset))
	}
	note := int(baseNote) + floorDiv(int(fineOffset), n+1)
	fineStep := posMod(int(fineOffset), n+1)
	if note < math.MinInt16 || note > math.MaxInt16 || !t.IsNoteInTable(int16(note)) {
		return FallbackRatio
	}
	r := t.ratios[note-int(t.stepMin)]
	if fineStep == 0 {
		return r
	}
	return r * t.FineStepRatio(int16(note), uint32(fineStep))
}

// FineStepRatio returns the multiplier for fine step stepIndex above note,
// with stepIndex clamped to [1, FineStepCount]. It returns 1 when the tuning
// has no fine steps.
func (t *Tuning) FineStepRatio(note int16, stepIndex uint32) float32 {
	n := t.fineSteps
	if n == 0 {
		return 1
	}
	if stepIndex < 1 {
		stepIndex = 1
	}
	if stepIndex > n {
		stepIndex = n
	}
	if table := t.fineRatios.Load(); table != nil && len(*table) > 0 {
		switch t.kind {
		case Geometric:
			return (*table)[stepIndex-1]
		case GroupGeometric:
			if i := t.refNote(int(note))*int(n) + int(stepIndex) - 1; i < len(*table) {
				return (*table)[i]
			}
		case General:
		}
	}
	q := float64(t.ratioAt(int(note)+1)) / float64(t.ratioAt(int(note)))
	return float32(math.Pow(q, float64(stepIndex)/float64(n+1)))
}

// SetFineStepCount sets the number of fine steps between two adjacent notes,
// capped at MaxSteps, and rebuilds the fine ratio cache.
func (t *Tuning) SetFineStepCount(n uint32) {
	if n > MaxSteps {
		n = MaxSteps
	}
	t.fineSteps = n
	t.rebuildFineTable()
}

// position of note within its period
func (t *Tuning) refNote(note int) int {
	if !t.kind.periodic() || t.groupSize == 0 {
		return 0
	}
	return posMod(note, int(t.groupSize))
}

// Recompute the fine ratio cache from scratch and publish it with a single
// store. Tables over FineTableSizeMax entries are not cached.
func (t *Tuning) rebuildFineTable() {
	n := int(t.fineSteps)
	var table []float32
	switch t.kind {
	case Geometric:
		if n == 0 || n > FineTableSizeMax {
			break
		}
		lo := int(t.stepMin)
		q := float64(t.ratioAt(lo+1)) / float64(t.ratioAt(lo))
		table = geometricFineSteps(q, n)
	case GroupGeometric:
		p := int(t.groupSize)
		if n == 0 || p == 0 || p > FineTableSizeMax/n {
			break
		}
		table = make([]float32, 0, p*n)
		for r := 0; r < p; r++ {
			q := float64(t.ratioAt(r+1)) / float64(t.ratioAt(r))
			table = append(table, geometricFineSteps(q, n)...)
		}
	case General:
	}
	if table == nil {
		t.fineRatios.Store(nil)
		return
	}
	t.fineRatios.Store(&table)
}

// return the n geometric fine step multipliers dividing the ratio q
func geometricFineSteps(q float64, n int) []float32 {
	step := math.Pow(q, 1/float64(n+1))
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(math.Pow(step, float64(i+1)))
	}
	return v
}
