package scala

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ratioRegexp   = regexp.MustCompile(`^([0-9]+)/([0-9]+)$`)
	edoStepRegexp = regexp.MustCompile(`^(-?[0-9]+)\\([0-9]+)$`)
	integerRegexp = regexp.MustCompile(`^[0-9]+$`)
)

// Interval is a scale degree as written in a scale file: a size in cents, a
// ratio, or a number of equal steps of the octave.
type Interval struct {
	Float float64 // cents, or the size of the divided interval in cents
	Ints  [2]int  // ratio, or edo step and division count if IsEdx
	IsEdx bool
}

// NewCents returns an interval of c cents.
func NewCents(c float64) *Interval {
	return &Interval{Float: c}
}

// NewRatio returns the interval num/den in lowest terms.
func NewRatio(num, den int) *Interval {
	num, den = reduce(num, den)
	return &Interval{Ints: [2]int{num, den}}
}

// NewEdx returns steps equal divisions of an n-way split of period cents.
func NewEdx(period float64, steps, n int) *Interval {
	return &Interval{Float: period, Ints: [2]int{steps, n}, IsEdx: true}
}

// Cents returns the size of the interval in cents.
func (iv *Interval) Cents() float64 {
	if iv.Ints[1] == 0 {
		return iv.Float
	} else if iv.IsEdx {
		return iv.Float * float64(iv.Ints[0]) / float64(iv.Ints[1])
	}
	return 1200 * math.Log2(float64(iv.Ints[0])/float64(iv.Ints[1]))
}

// Ratio returns the frequency ratio of the interval.
func (iv *Interval) Ratio() float64 {
	if iv.Ints[1] != 0 && !iv.IsEdx {
		return float64(iv.Ints[0]) / float64(iv.Ints[1])
	}
	return math.Pow(2, iv.Cents()/1200)
}

// Add returns the interval spanning iv followed by other. The representation
// is kept when both are ratios or steps of the same division.
func (iv *Interval) Add(other *Interval) *Interval {
	if iv.IsEdx && other.IsEdx && iv.Float == other.Float && iv.Ints[1] == other.Ints[1] {
		return NewEdx(iv.Float, iv.Ints[0]+other.Ints[0], iv.Ints[1])
	} else if !iv.IsEdx && !other.IsEdx && iv.Ints[1] != 0 && other.Ints[1] != 0 {
		return NewRatio(iv.Ints[0]*other.Ints[0], iv.Ints[1]*other.Ints[1])
	}
	return NewCents(iv.Cents() + other.Cents())
}

// Invert returns the negative of iv, not its octave complement.
func (iv *Interval) Invert() *Interval {
	return iv.Multiply(-1)
}

// Multiply returns an interval n times the size of iv.
func (iv *Interval) Multiply(n int) *Interval {
	if iv.IsEdx {
		return NewEdx(iv.Float, iv.Ints[0]*n, iv.Ints[1])
	} else if iv.Ints[1] != 0 {
		num, den := iv.Ints[0], iv.Ints[1]
		if n < 0 {
			num, den, n = den, num, -n
		}
		finalNum, finalDen := 1, 1
		for i := 0; i < n; i++ {
			finalNum, finalDen = finalNum*num, finalDen*den
		}
		return NewRatio(finalNum, finalDen)
	}
	return NewCents(iv.Float * float64(n))
}

// Modulo returns iv reduced into [0, period].
func (iv *Interval) Modulo(period *Interval) *Interval {
	result := *iv
	if period.Cents() <= 0 {
		return &result
	}
	r := &result
	for r.Cents() > period.Cents() {
		r = r.Add(period.Invert())
	}
	for r.Cents() < 0 {
		r = r.Add(period)
	}
	return r
}

// String returns the interval in scale file notation.
func (iv *Interval) String() string {
	if iv.Ints[1] == 0 {
		return fmt.Sprintf("%f", iv.Float)
	} else if iv.IsEdx {
		if iv.Float == 1200 {
			return fmt.Sprintf("%d\\%d", iv.Ints[0], iv.Ints[1])
		}
		return fmt.Sprintf("%f", iv.Cents())
	}
	return fmt.Sprintf("%d/%d", iv.Ints[0], iv.Ints[1])
}

// ParseInterval parses the first field of a scale file pitch line. Values
// containing a period are cents, n/d are ratios, a bare integer n is n/1 and
// s\n is s steps of n-way equal octave division. Anything after the first
// field is a comment.
func ParseInterval(s string) (*Interval, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, errors.New("empty pitch")
	}
	s = fields[0]
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "pitch %q", s)
		}
		return NewCents(f), nil
	}
	if m := ratioRegexp.FindStringSubmatch(s); m != nil {
		num, err1 := strconv.Atoi(m[1])
		den, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil || num == 0 || den == 0 {
			return nil, errors.Errorf("invalid ratio %q", s)
		}
		return NewRatio(num, den), nil
	}
	if m := edoStepRegexp.FindStringSubmatch(s); m != nil {
		step, _ := strconv.Atoi(m[1])
		n, err := strconv.Atoi(m[2])
		if err != nil || n == 0 {
			return nil, errors.Errorf("invalid equal step %q", s)
		}
		return NewEdx(1200, step, n), nil
	}
	if integerRegexp.MatchString(s) {
		n, err := strconv.Atoi(s)
		if err != nil || n == 0 {
			return nil, errors.Errorf("invalid ratio %q", s)
		}
		return NewRatio(n, 1), nil
	}
	return nil, errors.Errorf("invalid pitch %q", s)
}

// reduce a fraction
func reduce(num, den int) (int, int) {
	a, b := num, den
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		a = -a
	}
	if a > 1 {
		num, den = num/a, den/a
	}
	return num, den
}
