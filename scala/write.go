package scala

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/jangler/tuning"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Write exports t as a scale file with CRLF line endings in ISO 8859-1.
// filename is only used for the leading comment. Periodic tunings are written
// as one period; general tunings list every entry of the ratio table relative
// to the smallest one, followed by a closing 1/1.
func Write(w io.Writer, t *tuning.Tuning, filename string) error {
	var b strings.Builder
	line := func(format string, a ...interface{}) {
		fmt.Fprintf(&b, format, a...)
		b.WriteString("\r\n")
	}
	line("! %s", filepath.Base(filename))
	line("!")
	line("%s", description(t.Name()))

	switch t.Kind() {
	case tuning.Geometric:
		p := int(t.GroupSize())
		line(" %d", p)
		line("!")
		for n := 0; n < p; n++ {
			r := math.Pow(float64(t.GroupRatio()), float64(n+1)/float64(p))
			line(" %s ! %s", formatCents(r), t.NoteName(int16((n+1)%p), false))
		}
	case tuning.GroupGeometric:
		p := int(t.GroupSize())
		line(" %d", p)
		line("!")
		base := float64(t.Ratio(0))
		for n := 0; n < p; n++ {
			r := float64(t.Ratio(int16(n+1))) / base
			line(" %s ! %s", formatCents(r), t.NoteName(int16((n+1)%p), false))
		}
	case tuning.General:
		table := t.RatioTable()
		line(" %d", len(table)+1)
		line("!")
		base := 1.0
		for _, r := range table {
			base = math.Min(base, float64(r))
		}
		for i, r := range table {
			note := int16(int(t.StepMin()) + i)
			line(" %s ! %s", formatCents(float64(r)/base), t.NoteName(note, false))
		}
		line(" %d ! ", 1)
	default:
		return errors.Errorf("scala: cannot export %v tuning", t.Kind())
	}

	out, err := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).String(b.String())
	if err != nil {
		return errors.Wrap(err, "scala: encode")
	}
	_, err = io.WriteString(w, out)
	return errors.Wrap(err, "scala: write")
}

// the description line must be a single line that is not a comment
func description(name string) string {
	r := []rune(name)
	for i, c := range r {
		if c < 32 {
			r[i] = ' '
		}
	}
	if len(r) > 0 && r[0] == '!' {
		r[0] = '?'
	}
	return string(r)
}

func formatCents(ratio float64) string {
	return NewCents(1200 * math.Log2(ratio)).String()
}
