package segments

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Time is an exact fixed-point GPS time, counted in nanoseconds. Addition,
// subtraction, and comparison are exact, so coalesce/pad/contract chains do
// not accumulate floating-point drift.
type Time int64

const (
	// Nanosecond is the resolution of Time.
	Nanosecond Time = 1
	// Second is one second of Time.
	Second Time = 1e9

	// Infinity marks an open-ended segment, as used by veto definer
	// documents with no end time.
	Infinity Time = math.MaxInt64
	// NegInfinity is the open lower bound.
	NegInfinity Time = math.MinInt64
)

// FromSeconds converts a float64 seconds value to Time, rounding to the
// nearest nanosecond.
func FromSeconds(s float64) Time {
	if math.IsInf(s, 1) {
		return Infinity
	}
	if math.IsInf(s, -1) {
		return NegInfinity
	}
	return Time(math.Round(s * 1e9))
}

// FromInt converts whole seconds to Time.
func FromInt(sec int64) Time {
	return Time(sec) * Second
}

// ParseTime parses a decimal seconds string ("123", "1.5", "-0.25", "inf")
// exactly, without passing through a float.
func ParseTime(s string) (Time, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "inf", "+inf", "infinity":
		return Infinity, nil
	case "-inf", "-infinity":
		return NegInfinity, nil
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("invalid time %q", s)
	}

	var sec int64
	if intPart != "" {
		var err error
		sec, err = strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", s, err)
		}
	}

	if len(fracPart) > 9 {
		fracPart = fracPart[:9]
	}
	var ns int64
	if fracPart != "" {
		var err error
		ns, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", s, err)
		}
		for i := len(fracPart); i < 9; i++ {
			ns *= 10
		}
	}

	t := Time(sec)*Second + Time(ns)
	if neg {
		t = -t
	}
	return t, nil
}

// Seconds returns the time as float64 seconds. Lossy for very large values;
// intended for display and interchange only.
func (t Time) Seconds() float64 {
	switch t {
	case Infinity:
		return math.Inf(1)
	case NegInfinity:
		return math.Inf(-1)
	}
	return float64(t) / 1e9
}

// String renders the time as a minimal decimal seconds string.
func (t Time) String() string {
	switch t {
	case Infinity:
		return "inf"
	case NegInfinity:
		return "-inf"
	}

	neg := t < 0
	if neg {
		t = -t
	}
	sec := int64(t) / int64(Second)
	ns := int64(t) % int64(Second)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(strconv.FormatInt(sec, 10))
	if ns != 0 {
		frac := fmt.Sprintf("%09d", ns)
		frac = strings.TrimRight(frac, "0")
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// CeilSecond rounds up to the next whole-second boundary.
func (t Time) CeilSecond() Time {
	if t == Infinity || t == NegInfinity {
		return t
	}
	return Time(ceilDiv(int64(t), int64(Second))) * Second
}

// FloorSecond rounds down to the previous whole-second boundary.
func (t Time) FloorSecond() Time {
	if t == Infinity || t == NegInfinity {
		return t
	}
	return Time(floorDiv(int64(t), int64(Second))) * Second
}

// MarshalJSON renders finite times as bare decimal numbers and infinities
// as quoted strings (JSON has no number literal for them).
func (t Time) MarshalJSON() ([]byte, error) {
	if t == Infinity || t == NegInfinity {
		return []byte(`"` + t.String() + `"`), nil
	}
	return []byte(t.String()), nil
}

// UnmarshalJSON accepts either a bare number or a quoted decimal string.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	return -floorDiv(-a, b)
}
