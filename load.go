package tuning

import (
	"fmt"
	"io"

	"github.com/jangler/tuning/legacy"
	"github.com/pkg/errors"
)

// DeserializeLegacy reads a tuning stored in one of the fixed layouts that
// preceded the tagged block format. If r is an io.Seeker it is moved back to
// where reading started on any failure.
func DeserializeLegacy(r io.Reader) (*Tuning, error) {
	rewind := func() {}
	if s, ok := r.(io.Seeker); ok {
		if pos, err := s.Seek(0, io.SeekCurrent); err == nil {
			rewind = func() { s.Seek(pos, io.SeekStart) }
		}
	}
	lt, err := legacy.Decode(r)
	if err != nil {
		rewind()
		if errors.Is(err, legacy.ErrVersion) {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedVersion, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrCorruptStream, err)
	}
	t, err := fromLegacy(lt)
	if err != nil {
		rewind()
		return nil, err
	}
	return t, nil
}

func fromLegacy(lt *legacy.Tuning) (*Tuning, error) {
	t := &Tuning{
		name:       fromLatin1(lt.Name),
		kind:       Kind(lt.Type),
		stepMin:    lt.StepMin,
		ratios:     lt.Ratios,
		groupSize:  uint16(lt.GroupSize),
		groupRatio: lt.GroupRatio,
		noteNames:  make(map[int16]string, len(lt.NoteNames)),
	}
	for k, v := range lt.NoteNames {
		t.noteNames[k] = fromLatin1(v)
	}
	if err := t.finishLoad(lt.FineStepCount); err != nil {
		return nil, errors.Wrap(err, "legacy tuning")
	}
	return t, nil
}

// Load reads a tuning in the current format or, failing that, in a legacy
// layout. The error of the current format is returned when the data is not
// a legacy tuning either.
func Load(r io.ReadSeeker) (*Tuning, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "load tuning")
	}
	t, err := Deserialize(r)
	if err == nil {
		return t, nil
	}
	if _, serr := r.Seek(start, io.SeekStart); serr != nil {
		return nil, errors.Wrap(serr, "load tuning")
	}
	t, lerr := DeserializeLegacy(r)
	if lerr == nil {
		return t, nil
	}
	if errors.Is(lerr, legacy.ErrNotLegacy) {
		return nil, err
	}
	return nil, lerr
}
