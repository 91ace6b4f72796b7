// Package mts builds MIDI Tuning Standard bulk tuning dumps from a tuning,
// mapping each of the 128 MIDI keys to the frequency of a tuning step.
package mts

import (
	"io"
	"math"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/writer"
)

const (
	// AllDevices addresses every device on the port.
	AllDevices = 0x7f

	nameLength = 16
	keyCount   = 128

	// 7F 7F 7F means "no change", so the highest frequency is one step lower
	maxSemitone = 127 + 16382.0/16384
)

// Source is the part of a tuning needed for a dump.
type Source interface {
	Ratio(note int16) float32
}

// Options controls how steps are mapped to keys and how the dump is
// addressed.
type Options struct {
	DeviceID byte
	Program  byte
	Name     string

	// ReferenceKey is the MIDI key playing step 0, at ReferenceFrequency Hz.
	ReferenceKey       int
	ReferenceFrequency float64
}

// DefaultOptions maps step 0 to middle C.
func DefaultOptions() Options {
	return Options{
		DeviceID:           AllDevices,
		ReferenceKey:       60,
		ReferenceFrequency: 440 * math.Pow(2, -9.0/12),
	}
}

func (o Options) validate() error {
	switch {
	case o.DeviceID > 0x7f:
		return errors.Errorf("mts: device id %#x out of range", o.DeviceID)
	case o.Program > 0x7f:
		return errors.Errorf("mts: program %d out of range", o.Program)
	case o.ReferenceKey < 0 || o.ReferenceKey >= keyCount:
		return errors.Errorf("mts: reference key %d out of range", o.ReferenceKey)
	case !(o.ReferenceFrequency > 0) || math.IsInf(o.ReferenceFrequency, 0):
		return errors.Errorf("mts: reference frequency %v", o.ReferenceFrequency)
	}
	return nil
}

// Frequencies returns the frequency in Hz of each MIDI key.
func Frequencies(src Source, opt Options) [keyCount]float64 {
	var f [keyCount]float64
	for k := range f {
		f[k] = opt.ReferenceFrequency * float64(src.Ratio(int16(k-opt.ReferenceKey)))
	}
	return f
}

// BulkDump returns the bulk tuning dump as a system exclusive payload,
// without the F0 and F7 framing bytes.
func BulkDump(src Source, opt Options) ([]byte, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	b := make([]byte, 0, 5+nameLength+3*keyCount+1)
	b = append(b, 0x7e, opt.DeviceID, 0x08, 0x01, opt.Program)
	name := []byte(opt.Name)
	for i := 0; i < nameLength; i++ {
		c := byte(' ')
		if i < len(name) {
			c = name[i]
		}
		if c < 0x20 || c > 0x7e {
			c = '?'
		}
		b = append(b, c)
	}
	for _, f := range Frequencies(src, opt) {
		e := EncodeFrequency(f)
		b = append(b, e[:]...)
	}
	var sum byte
	for _, c := range b {
		sum ^= c
	}
	return append(b, sum&0x7f), nil
}

// EncodeFrequency returns the three byte MTS form of f: a semitone number and
// a 14-bit fraction of a semitone. Frequencies outside the MIDI range are
// clamped.
func EncodeFrequency(f float64) [3]byte {
	s := 69 + 12*math.Log2(f/440)
	if !(s > 0) {
		return [3]byte{}
	}
	if s > maxSemitone {
		s = maxSemitone
	}
	semi := math.Floor(s)
	frac := int(math.Round((s - semi) * 16384))
	if frac == 16384 {
		semi, frac = semi+1, 0
	}
	return [3]byte{byte(semi), byte(frac >> 7), byte(frac & 0x7f)}
}

// DecodeFrequency is the inverse of EncodeFrequency.
func DecodeFrequency(e [3]byte) float64 {
	s := float64(e[0]) + float64(int(e[1])<<7|int(e[2]))/16384
	return 440 * math.Pow(2, (s-69)/12)
}

// Write sends the bulk dump of src to w as a system exclusive message.
func Write(w io.Writer, src Source, opt Options) error {
	dump, err := BulkDump(src, opt)
	if err != nil {
		return err
	}
	return errors.Wrap(writer.SysEx(writer.New(w), dump), "mts: write")
}
