// Package geo converts station coordinates between the packed
// degrees/decimal-minutes encoding (DDMM.mmm) used in station tables and
// decimal degrees, and measures great-circle distances between positions.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Conversion is the outcome of normalizing a raw coordinate value.
// When OK is false, Value is meaningless and Original holds the input unchanged.
type Conversion struct {
	Value    float64
	Original any
	OK       bool
}

// Converted returns a successful Conversion.
func Converted(value float64) Conversion {
	return Conversion{Value: value, Original: value, OK: true}
}

// Unconvertible returns a failed Conversion carrying the original input.
func Unconvertible(original any) Conversion {
	return Conversion{Original: original}
}

// String renders converted values in decimal form and unconvertible ones as given.
func (c Conversion) String() string {
	if !c.OK {
		return fmt.Sprint(c.Original)
	}
	return FormatDecimal(c.Value)
}

// ToDecimalDegrees converts a DDMM.mmm encoded value to decimal degrees.
// The sign is isolated before splitting degrees and minutes so that
// -5533.0 mirrors 5533.0.
func ToDecimalDegrees(v float64) float64 {
	if v >= 0 {
		return math.Floor(v/100) + math.Mod(v, 100)/60
	}
	return math.Ceil(v/100) - math.Mod(-v, 100)/60
}

// ToDecimalDegreesAll converts every value in vs.
func ToDecimalDegreesAll(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = ToDecimalDegrees(v)
	}
	return out
}

// ParseEncoded parses a table cell holding an encoded coordinate.
// Surrounding whitespace is ignored and a comma decimal separator is accepted.
// NaN and infinities are rejected.
func ParseEncoded(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	v, err := ParseNumber(s)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinate %q: %w", s, err)
	}
	return v, nil
}

// ParseNumber parses a finite decimal number, accepting a comma separator.
func ParseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil {
		return 0, err
	}
	if !IsFinite(v) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Normalize converts a raw encoded coordinate of any numeric kind, or a
// numeric string, to decimal degrees. Anything else is reported as
// Unconvertible rather than an error.
func Normalize(raw any) Conversion {
	v, ok := toFloat(raw)
	if !ok || !IsFinite(v) {
		return Unconvertible(raw)
	}
	return Conversion{Value: ToDecimalDegrees(v), Original: raw, OK: true}
}

// NormalizeAll normalizes each value independently.
func NormalizeAll(values ...any) []Conversion {
	out := make([]Conversion, len(values))
	for i, v := range values {
		out[i] = Normalize(v)
	}
	return out
}

// FormatDecimal renders a decimal-degree value with the shortest exact representation.
func FormatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := ParseEncoded(v)
		return f, err == nil
	case []byte:
		f, err := ParseEncoded(string(v))
		return f, err == nil
	case *float64:
		if v == nil {
			return 0, false
		}
		return *v, true
	case fmt.Stringer:
		f, err := ParseEncoded(v.String())
		return f, err == nil
	default:
		return 0, false
	}
}
