// Package legacy decodes tunings stored in the two fixed binary layouts that
// preceded the tagged block format. The layouts are frozen: this package
// must keep accepting exactly the files it accepts today, so it shares no
// parsing code with the current format.
//
// Layout, all integers little-endian:
//
//	"CTRTI_B." int16 version (2 or 3)
//	"CT<sfs>B" int16 innerVersion (3 or 4)
//	name: uint32 length (<= 0xffff) for inner version 3, uint8 length for 4
//	int16 edit mask, int16 type
//	note names: uint32 count (<= 0xffff) for inner version 3, uint16 for 4,
//	            each int16 note and a name sized as above
//	"CT<sfs>E"
//	ratios, fine ratios: uint32 count (<= 0xffff) for version 2, uint16 for 3,
//	                     each a float32
//	int16 step min, int16 group size, float32 group ratio
//	"CTRTI_E."
package legacy

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	beginMarker      = "CTRTI_B."
	endMarker        = "CTRTI_E."
	innerBeginMarker = "CT<sfs>B"
	innerEndMarker   = "CT<sfs>E"

	sizeLimit    = 0xffff
	stepMinLimit = 200

	typeGeneral        = 0
	typeGroupGeometric = 1
	typeGeometric      = 3
)

var (
	// ErrNotLegacy means the stream does not start with the legacy begin
	// marker, so it is probably some other format.
	ErrNotLegacy = errors.New("legacy: no tuning begin marker")
	ErrMarker    = errors.New("legacy: marker mismatch")
	ErrVersion   = errors.New("legacy: unsupported version")
	ErrCorrupt   = errors.New("legacy: corrupt data")
)

// Tuning is the raw content of a legacy tuning. Strings are returned as the
// bytes stored in the file.
type Tuning struct {
	Version      int16
	InnerVersion int16

	Name       string
	EditMask   int16
	Type       int16
	NoteNames  map[int16]string
	Ratios     []float32
	FineRatios []float32
	StepMin    int16
	GroupSize  int16
	GroupRatio float32

	// FineStepCount is len(FineRatios)-1: these files stored one fine ratio
	// more than the fine step count. It is 0 when no fine ratios were stored.
	FineStepCount uint32
}

// reader with a sticky error; after a failure every read returns zero values
type decoder struct {
	r   io.Reader
	err error
}

func (d *decoder) read(v any) {
	if d.err == nil {
		if err := binary.Read(d.r, binary.LittleEndian, v); err != nil {
			d.err = errors.Wrap(ErrCorrupt, err.Error())
		}
	}
}

func (d *decoder) i16() int16 {
	var v int16
	d.read(&v)
	return v
}

func (d *decoder) u16() uint16 {
	var v uint16
	d.read(&v)
	return v
}

func (d *decoder) u32() uint32 {
	var v uint32
	d.read(&v)
	return v
}

func (d *decoder) f32() float32 {
	var v float32
	d.read(&v)
	return v
}

// return true if the next 8 bytes equal marker
func (d *decoder) marker(marker string) bool {
	var b [8]byte
	d.read(&b)
	return d.err == nil && string(b[:]) == marker
}

func (d *decoder) bytes(n int) string {
	b := make([]byte, n)
	d.read(b)
	return string(b)
}

// string with a uint32 length, rejected above sizeLimit
func (d *decoder) string32() string {
	n := d.u32()
	if d.err == nil && n > sizeLimit {
		d.err = errors.Wrapf(ErrCorrupt, "string length %d", n)
	}
	if d.err != nil {
		return ""
	}
	return d.bytes(int(n))
}

func (d *decoder) string8() string {
	var n uint8
	d.read(&n)
	if d.err != nil {
		return ""
	}
	return d.bytes(int(n))
}

// float32 vector whose count prefix is 32-bit (limited to sizeLimit) for
// version 2 and 16-bit otherwise
func (d *decoder) ratios(version int16) []float32 {
	var n int
	if version <= 2 {
		n32 := d.u32()
		if d.err == nil && n32 > sizeLimit {
			d.err = errors.Wrapf(ErrCorrupt, "vector size %d", n32)
		}
		n = int(n32)
	} else {
		n = int(d.u16())
	}
	if d.err != nil {
		return nil
	}
	v := make([]float32, n)
	d.read(v)
	return v
}

// Decode reads one legacy tuning from r. On failure no tuning is returned;
// the stream position is wherever reading stopped.
func Decode(r io.Reader) (*Tuning, error) {
	d := &decoder{r: r}
	if !d.marker(beginMarker) {
		return nil, ErrNotLegacy
	}
	t := &Tuning{NoteNames: make(map[int16]string)}
	t.Version = d.i16()
	if d.err != nil {
		return nil, d.err
	}
	if t.Version != 2 && t.Version != 3 {
		return nil, errors.Wrapf(ErrVersion, "version %d", t.Version)
	}
	if !d.marker(innerBeginMarker) {
		return nil, d.fail(innerBeginMarker)
	}
	t.InnerVersion = d.i16()
	if d.err != nil {
		return nil, d.err
	}
	if t.InnerVersion != 3 && t.InnerVersion != 4 {
		return nil, errors.Wrapf(ErrVersion, "inner version %d", t.InnerVersion)
	}

	str := d.string8
	if t.InnerVersion <= 3 {
		str = d.string32
	}
	t.Name = str()
	t.EditMask = d.i16()
	t.Type = d.i16()

	var count int
	if t.InnerVersion <= 3 {
		n := d.u32()
		if d.err == nil && n > sizeLimit {
			return nil, errors.Wrapf(ErrCorrupt, "note name count %d", n)
		}
		count = int(n)
	} else {
		count = int(d.u16())
	}
	for i := 0; i < count && d.err == nil; i++ {
		note := d.i16()
		name := str()
		t.NoteNames[note] = name
	}
	if d.err != nil {
		return nil, d.err
	}
	if !d.marker(innerEndMarker) {
		return nil, d.fail(innerEndMarker)
	}
	switch t.Type {
	case typeGeneral, typeGroupGeometric, typeGeometric:
	default:
		return nil, errors.Wrapf(ErrCorrupt, "unknown tuning type %d", t.Type)
	}

	t.Ratios = d.ratios(t.Version)
	t.FineRatios = d.ratios(t.Version)
	t.StepMin = d.i16()
	if d.err != nil {
		return nil, d.err
	}
	if t.StepMin < -stepMinLimit || t.StepMin > stepMinLimit {
		return nil, errors.Wrapf(ErrCorrupt, "step min %d", t.StepMin)
	}
	t.GroupSize = d.i16()
	if d.err == nil && t.GroupSize < 0 {
		return nil, errors.Wrapf(ErrCorrupt, "group size %d", t.GroupSize)
	}
	t.GroupRatio = d.f32()
	if d.err == nil && t.GroupRatio < 0 {
		return nil, errors.Wrapf(ErrCorrupt, "group ratio %v", t.GroupRatio)
	}
	if n := len(t.FineRatios); n > 0 {
		t.FineStepCount = uint32(n - 1)
	}
	if !d.marker(endMarker) {
		return nil, d.fail(endMarker)
	}
	return t, nil
}

// error for a marker that did not match
func (d *decoder) fail(marker string) error {
	if d.err != nil {
		return d.err
	}
	return errors.Wrapf(ErrMarker, "expected %q", marker)
}
