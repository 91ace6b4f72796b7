package tuning

import "strconv"

// NoteName returns the name of note. Aperiodic tunings use the override for
// note or its number. Periodic tunings look up the override for the position
// within the period, defaulting to a Latin-1 character counted from 'A'
// (wrapping past 0xff) followed by ':', and with addOctave append the period
// number, MiddlePeriod for the period starting at step 0.
func (t *Tuning) NoteName(note int16, addOctave bool) string {
	if t.groupSize < 1 {
		if s, ok := t.noteNames[note]; ok {
			return s
		}
		return strconv.Itoa(int(note))
	}
	p := int(t.groupSize)
	pos := posMod(int(note), p)
	name, ok := t.noteNames[int16(pos)]
	if !ok {
		name = string(rune(byte('A'+pos))) + ":"
	}
	if addOctave {
		name += strconv.Itoa(MiddlePeriod + floorDiv(int(note), p))
	}
	return name
}
