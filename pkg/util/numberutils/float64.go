package numberutils

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Lenient holds a raw JSON scalar that is read as a number on demand.
// It distinguishes an absent member from a present one so callers can apply defaults.
type Lenient struct {
	raw json.RawMessage
	set bool
}

// LenientOf builds a present Lenient from a float.
func LenientOf(f float64) Lenient {
	return Lenient{raw: json.RawMessage(strconv.FormatFloat(f, 'g', -1, 64)), set: true}
}

// UnmarshalJSON keeps the raw bytes; coercion happens in Float64.
func (n *Lenient) UnmarshalJSON(data []byte) error {
	n.raw = append(n.raw[:0], data...)
	n.set = true
	return nil
}

// MarshalJSON writes the raw value back, or null when absent.
func (n Lenient) MarshalJSON() ([]byte, error) {
	if !n.set || len(n.raw) == 0 {
		return []byte("null"), nil
	}
	return n.raw, nil
}

// IsSet reports whether the member was present with a non-null value.
func (n Lenient) IsSet() bool {
	return n.set && !bytes.Equal(bytes.TrimSpace(n.raw), []byte("null"))
}

// Float64 coerces the value to a float, returning NaN when it is absent,
// null or not numeric.
func (n Lenient) Float64() float64 {
	if !n.IsSet() {
		return math.NaN()
	}
	return ToFloat64OrNaN(n.raw)
}

// Float64OrDefault returns def when the value is absent or null, otherwise Float64.
func (n Lenient) Float64OrDefault(def float64) float64 {
	if !n.IsSet() {
		return def
	}
	return n.Float64()
}

// ToFloat64OrNaN coerces a raw JSON scalar to float64. Numbers and numeric
// strings parse, booleans map to 1 and 0, anything else yields NaN.
func ToFloat64OrNaN(raw json.RawMessage) float64 {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return math.NaN()
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return math.NaN()
		}
		return ParseFloatOrNaN(s)
	case 't':
		if string(trimmed) == "true" {
			return 1
		}
	case 'f':
		if string(trimmed) == "false" {
			return 0
		}
	case '{', '[', 'n':
		return math.NaN()
	}

	return ParseFloatOrNaN(string(trimmed))
}

// ParseFloatOrNaN parses s as a float64 or returns NaN.
func ParseFloatOrNaN(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
