package tuning

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jangler/tuning/ssb"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	blockID = "CTB244RTI"

	// Files have been written with version (4<<24)+4 while readers accept up
	// to (5<<24)+4, a leftover of two release lines numbering versions
	// differently. Both values are kept as they are.
	writeVersion   = 4<<24 + 4
	readVersionMax = 5<<24 + 4

	editMask = 0xffff

	ratioWriteCountDefault = 0xffff >> 2
	readRatiosMax          = 256
	readNoteNamesMax       = 256
	readNameMax            = 255
	stepMinLimit           = 300
)

// Serialize writes t as a current-format tuning block. Only non-default
// fields are written.
func (t *Tuning) Serialize(w io.Writer) error {
	sw := ssb.NewWriter(blockID, writeVersion)
	if t.name != "" {
		sw.WriteItemFunc("0", func(dst io.Writer) error {
			return writeString(dst, t.name)
		})
	}
	sw.WriteItem("1", uint16(editMask))
	sw.WriteItem("2", uint16(t.kind))
	if len(t.noteNames) > 0 {
		sw.WriteItemFunc("3", func(dst io.Writer) error {
			return writeNoteNames(dst, t.noteNames)
		})
	}
	if t.fineSteps > 0 {
		sw.WriteItem("4", t.fineSteps)
	}
	if t.groupRatio > 0 {
		sw.WriteItem("RTI3", t.groupRatio)
	}
	switch t.kind {
	case GroupGeometric:
		sw.WriteItemFunc("RTI0", func(dst io.Writer) error {
			return writeRatios(dst, t.ratios, int(t.groupSize))
		})
	case General:
		sw.WriteItemFunc("RTI0", func(dst io.Writer) error {
			return writeRatios(dst, t.ratios, ratioWriteCountDefault)
		})
	case Geometric:
		sw.WriteItem("RTI2", t.groupSize)
	}
	if t.kind.periodic() {
		sw.WriteItem("RTI4", uint16(len(t.ratios)))
	}
	sw.WriteItem("RTI1", t.stepMin)
	return errors.Wrapf(sw.Finish(w), "serialize tuning %q", t.name)
}

// Deserialize reads a current-format tuning block. Any structural problem or
// invalid field fails the whole read; no partially decoded tuning is
// returned.
func Deserialize(r io.Reader) (*Tuning, error) {
	sr, err := ssb.Read(r, blockID, readVersionMax)
	if err != nil {
		return nil, blockError(err)
	}
	t := New()
	var (
		mask      uint16
		kind      = uint16(t.kind)
		tableSize uint16
		fineSteps uint32
	)
	sr.ReadItemFunc("0", func(src io.Reader) (err error) {
		t.name, err = readString(src)
		return err
	})
	sr.ReadItem("1", &mask)
	sr.ReadItem("2", &kind)
	sr.ReadItemFunc("3", func(src io.Reader) (err error) {
		t.noteNames, err = readNoteNames(src)
		return err
	})
	sr.ReadItem("4", &fineSteps)
	sr.ReadItemFunc("RTI0", func(src io.Reader) (err error) {
		t.ratios, err = readRatios(src)
		return err
	})
	sr.ReadItem("RTI1", &t.stepMin)
	sr.ReadItem("RTI2", &t.groupSize)
	sr.ReadItem("RTI3", &t.groupRatio)
	sr.ReadItem("RTI4", &tableSize)
	if err := sr.Err(); err != nil {
		return nil, blockError(err)
	}
	if t.stepMin < -stepMinLimit || t.stepMin > stepMinLimit {
		return nil, errors.Wrapf(ErrCorruptStream, "step min %d", t.stepMin)
	}
	t.kind = Kind(kind)
	if err := t.reconstruct(int(tableSize)); err != nil {
		return nil, err
	}
	if err := t.finishLoad(fineSteps); err != nil {
		return nil, err
	}
	return t, nil
}

// translate ssb errors into the package's sentinels
func blockError(err error) error {
	switch {
	case errors.Is(err, ssb.ErrVersion):
		return fmt.Errorf("%w: %w", ErrUnsupportedVersion, err)
	default:
		return fmt.Errorf("%w: %w", ErrCorruptStream, err)
	}
}

// Regenerate the ratio table of a periodic tuning from its stored parameters:
// tableSize steps from stepMin, and for group-geometric tunings the base
// ratios currently held in the table.
func (t *Tuning) reconstruct(tableSize int) error {
	if !t.kind.valid() {
		return errors.Wrapf(ErrCorruptStream, "unknown tuning type %d", uint16(t.kind))
	}
	if len(t.ratios) > MaxSteps {
		return errors.Wrapf(ErrCorruptStream, "ratio table of %d entries", len(t.ratios))
	}
	if !t.kind.periodic() {
		return nil
	}
	if tableSize < 1 || tableSize > MaxSteps || int(t.stepMin)+tableSize-1 > MaxSteps {
		return errors.Wrapf(ErrCorruptStream, "ratio table size %d from step %d", tableSize, t.stepMin)
	}
	lo, hi := t.stepMin, int16(int(t.stepMin)+tableSize-1)
	var err error
	if t.kind == Geometric {
		err = t.CreateGeometric(t.groupSize, t.groupRatio, lo, hi)
	} else {
		err = t.CreateGroupGeometric(t.ratios, t.groupRatio, lo, hi, lo)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptStream, err)
	}
	return nil
}

// Validate the assembled tuning and rebuild its fine ratio cache from the
// stored fine step count.
func (t *Tuning) finishLoad(fineSteps uint32) error {
	if err := t.validate(); err != nil {
		return err
	}
	t.fineSteps = 0
	t.fineRatios.Store(nil)
	t.SetFineStepCount(fineSteps)
	return nil
}

// check the invariants shared by every way of building a tuning
func (t *Tuning) validate() error {
	if !t.kind.valid() {
		return errors.Wrapf(ErrCorruptStream, "unknown tuning type %d", uint16(t.kind))
	}
	if len(t.ratios) == 0 || len(t.ratios) > MaxSteps || int(t.stepMin)+len(t.ratios)-1 > MaxSteps {
		return errors.Wrapf(ErrCorruptStream, "ratio table of %d entries from step %d", len(t.ratios), t.stepMin)
	}
	for i, r := range t.ratios {
		if !validRatio(r) {
			return errors.Wrapf(ErrCorruptStream, "ratio %v at step %d", r, int(t.stepMin)+i)
		}
	}
	if t.kind.periodic() && (t.groupSize == 0 || !validRatio(t.groupRatio)) {
		return errors.Wrapf(ErrCorruptStream, "%v tuning with group size %d and ratio %v",
			t.kind, t.groupSize, t.groupRatio)
	}
	return nil
}

// On disk strings are ISO 8859-1; characters outside it are replaced.
func toLatin1(s string) string {
	out, err := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).String(s)
	if err != nil {
		return s
	}
	return out
}

func fromLatin1(s string) string {
	out, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}

func writeString(w io.Writer, s string) error {
	s = toLatin1(s)
	if err := ssb.WriteAdaptive(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// read at most readNameMax characters, cut at the first NUL
func readString(r io.Reader) (string, error) {
	n, err := ssb.ReadAdaptive(r)
	if err != nil {
		return "", err
	}
	if n > readNameMax {
		n = readNameMax
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	s := string(b)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return fromLatin1(s), nil
}

// write a uint8 length-prefixed string, truncated to 255 bytes
func writeShortString(w io.Writer, s string) error {
	s = toLatin1(s)
	if len(s) > 0xff {
		s = s[:0xff]
	}
	if _, err := w.Write([]byte{byte(len(s))}); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readShortString(r io.Reader) (string, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", err
	}
	b := make([]byte, n[0])
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return fromLatin1(string(b)), nil
}

func writeNoteNames(w io.Writer, m map[int16]string) error {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	if err := ssb.WriteAdaptive(w, uint64(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := binary.Write(w, binary.LittleEndian, int16(k)); err != nil {
			return err
		}
		if err := writeShortString(w, m[int16(k)]); err != nil {
			return err
		}
	}
	return nil
}

func readNoteNames(r io.Reader) (map[int16]string, error) {
	n, err := ssb.ReadAdaptive(r)
	if err != nil {
		return nil, err
	}
	if n > readNoteNamesMax {
		n = readNoteNamesMax
	}
	m := make(map[int16]string, n)
	for i := uint64(0); i < n; i++ {
		var key int16
		if err := binary.Read(r, binary.LittleEndian, &key); err != nil {
			return nil, err
		}
		s, err := readShortString(r)
		if err != nil {
			return nil, err
		}
		m[key] = s
	}
	return m, nil
}

// write at most max leading ratios
func writeRatios(w io.Writer, v []float32, max int) error {
	if len(v) < max {
		max = len(v)
	}
	if err := ssb.WriteAdaptive(w, uint64(max)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, v[:max])
}

func readRatios(r io.Reader) ([]float32, error) {
	n, err := ssb.ReadAdaptive(r)
	if err != nil {
		return nil, err
	}
	if n > readRatiosMax {
		n = readRatiosMax
	}
	v := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return v, nil
}
