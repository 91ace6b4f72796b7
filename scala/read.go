// Package scala reads and writes tunings as Scala scale files (.scl).
package scala

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/jangler/tuning"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// ErrFormat is returned for files that are not valid scale files.
var ErrFormat = errors.New("scala: invalid scale file")

// Read parses a scale file into a group-geometric tuning whose period is the
// last degree of the scale. Step 0 has ratio 1 and the table covers the
// default range, extended upward if the scale has more degrees than fit.
// Comments after a degree that differ from the generated note name become
// note names.
func Read(r io.Reader) (*tuning.Tuning, error) {
	var (
		description string
		degrees     []*Interval
		names       []string
		count       = -1
		line        = 0
	)
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(strings.TrimSpace(text), "!") {
			continue
		}
		line++
		if line == 1 {
			description = strings.TrimSpace(text)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if count < 0 {
			n, err := strconv.ParseUint(strings.Fields(text)[0], 10, 16)
			if err != nil {
				return nil, errors.Wrapf(ErrFormat, "note count %q", text)
			}
			count = int(n)
			continue
		}
		if len(degrees) == count {
			break
		}
		iv, err := ParseInterval(text)
		if err != nil {
			return nil, errors.Wrapf(ErrFormat, "degree %d: %v", len(degrees)+1, err)
		}
		degrees = append(degrees, iv)
		var name string
		if i := strings.IndexByte(text, '!'); i >= 0 {
			name = strings.TrimSpace(text[i+1:])
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scala: read")
	}
	if count <= 0 || len(degrees) < count {
		return nil, errors.Wrapf(ErrFormat, "%d of %d degrees", len(degrees), count)
	}

	base := make([]float32, count)
	base[0] = 1
	for i := 1; i < count; i++ {
		base[i] = float32(degrees[i-1].Ratio())
	}
	period := float32(degrees[count-1].Ratio())
	lo := int(tuning.StepMinDefault)
	hi := lo + tuning.RatioTableSizeDefault - 1
	if hi < count-1 {
		hi = count - 1
	}
	if hi-lo+1 > tuning.MaxSteps {
		return nil, errors.Wrapf(ErrFormat, "%d degrees", count)
	}
	t := tuning.New()
	if err := t.CreateGroupGeometric(base, period, int16(lo), int16(hi), 0); err != nil {
		return nil, errors.Wrap(ErrFormat, err.Error())
	}
	if description != "" {
		t.SetName(description)
	}
	for i, name := range names {
		note := int16((i + 1) % count)
		if name != "" && name != t.NoteName(note, false) {
			t.SetNoteName(note, name)
		}
	}
	return t, nil
}
