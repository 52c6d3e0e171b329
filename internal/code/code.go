package code

import (
	"cmp"
	"fmt"
	"math"
	"strings"
)

// Code is an immutable experience code. Equality, ordering and hashing are
// defined by the integer value, so "AA9" and "AAAA9" are the same Code even
// though String preserves the text it was parsed from.
//
// The zero Code is "AAA".
type Code struct {
	text  string
	value int64
}

// Parse upper-cases and validates text.
func Parse(text string) (Code, error) {
	upper := strings.ToUpper(text)
	if err := Validate(upper); err != nil {
		return Code{}, err
	}
	value, err := Decode(upper)
	if err != nil {
		return Code{}, err
	}
	return Code{text: upper, value: value}, nil
}

// MustParse is Parse for constants and tests; it panics on invalid input.
func MustParse(text string) Code {
	c, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return c
}

// FromInt returns the canonical Code for n.
func FromInt(n int64) (Code, error) {
	text, err := Encode(n)
	if err != nil {
		return Code{}, err
	}
	return Code{text: text, value: n}, nil
}

// FromValue builds a Code from a loosely typed value such as a decoded config
// entry. Only text (string, []byte, fmt.Stringer, Code) is accepted; numbers and
// other types fail with ErrTypeMismatch because the digits of a code are not
// decimal.
func FromValue(v any) (Code, error) {
	switch t := v.(type) {
	case Code:
		return t, nil
	case *Code:
		if t == nil {
			return Code{}, fmt.Errorf("%w: nil *Code", ErrTypeMismatch)
		}
		return *t, nil
	case string:
		return Parse(t)
	case []byte:
		return Parse(string(t))
	case fmt.Stringer:
		return Parse(t.String())
	default:
		return Code{}, fmt.Errorf("%w: code must be text, not %T", ErrTypeMismatch, v)
	}
}

// String returns the code text.
func (c Code) String() string {
	if c.text == "" {
		return zeroCode
	}
	return c.text
}

// Int returns the integer value.
func (c Code) Int() int64 {
	return c.value
}

// Canonical returns the canonical form of c, dropping any extra zero padding.
func (c Code) Canonical() Code {
	text, _ := Encode(c.value)
	return Code{text: text, value: c.value}
}

// Add returns the Code n positions after c. A negative n moves backwards.
func (c Code) Add(n int64) (Code, error) {
	if n > 0 && c.value > math.MaxInt64-n {
		return Code{}, fmt.Errorf("%w: %s + %d overflows", ErrRange, c, n)
	}
	return FromInt(c.value + n)
}

// Sub returns the Code n positions before c. It fails with ErrRange when the
// result would be below AAA.
func (c Code) Sub(n int64) (Code, error) {
	if n < 0 {
		if n == math.MinInt64 {
			return Code{}, fmt.Errorf("%w: cannot subtract %d", ErrRange, n)
		}
		return c.Add(-n)
	}
	return FromInt(c.value - n)
}

// Compare returns -1, 0 or +1 depending on whether c is below, equal to or
// above other.
func (c Code) Compare(other Code) int {
	return cmp.Compare(c.value, other.value)
}

// Equal reports whether c and other denote the same value.
func (c Code) Equal(other Code) bool {
	return c.value == other.value
}

// Less reports whether c sorts before other.
func (c Code) Less(other Code) bool {
	return c.value < other.value
}

// Hash returns a hash consistent with Equal. Use it (or Int) as a map key;
// the Code struct itself compares text and is not padding independent.
func (c Code) Hash() uint64 {
	return uint64(c.value)
}

// Len returns the length of the code text.
func (c Code) Len() int {
	return len(c.String())
}

// At returns the symbol at position i of the code text.
func (c Code) At(i int) byte {
	return c.String()[i]
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
