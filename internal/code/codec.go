// Package code implements the experience-code numbering scheme: a base-35
// positional system over the symbols A-Z and 1-9, where A is the zero digit.
package code

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Symbols lists the digit alphabet in value order; Symbols[i] has value i.
const Symbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZ123456789"

// Base is the radix of the numbering scheme.
const Base = int64(len(Symbols))

// MinLength is the shortest text accepted as a code.
const MinLength = 3

const (
	zeroSymbol = 'A'
	zeroCode   = "AAA"
	// canonicalPad is the number of zero symbols prefixed to the digits of a
	// non-zero value.
	canonicalPad = 2
)

// Error classes. Every failure returned by this package wraps exactly one of them.
var (
	// ErrTypeMismatch reports a code built from something other than text.
	ErrTypeMismatch = errors.New("code: type mismatch")
	// ErrFormat reports text that is too short or uses symbols outside the alphabet.
	ErrFormat = errors.New("code: format violation")
	// ErrRange reports a value that cannot be represented: negative or beyond int64.
	ErrRange = errors.New("code: range violation")
	// ErrDirection reports a range whose step disagrees with its bounds.
	ErrDirection = errors.New("code: direction violation")
)

// symbolValues maps an ASCII byte to its digit value, or -1 when the byte is not
// a symbol. Built once at init and never written afterwards.
var symbolValues = func() [256]int8 {
	var table [256]int8
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(Symbols); i++ {
		table[Symbols[i]] = int8(i)
	}
	return table
}()

// SymbolValue returns the digit value of ch and whether ch is a symbol.
func SymbolValue(ch byte) (int64, bool) {
	v := symbolValues[ch]
	if v < 0 {
		return 0, false
	}
	return int64(v), true
}

// Decode converts code text to its integer value. Input is upper-cased and the
// leading run of zero symbols is ignored, so "AA9" and "AAAA9" both decode to 9.
// Decode does not enforce the minimum length; see Validate.
func Decode(text string) (int64, error) {
	upper := strings.ToUpper(text)
	digits := strings.TrimLeft(upper, string(zeroSymbol))
	var value int64
	for i := 0; i < len(digits); i++ {
		sv, ok := SymbolValue(digits[i])
		if !ok {
			return 0, fmt.Errorf("%w: invalid character %q in %q", ErrFormat, digits[i], text)
		}
		if value > (math.MaxInt64-sv)/Base {
			return 0, fmt.Errorf("%w: %q exceeds the largest representable code", ErrRange, text)
		}
		value = value*Base + sv
	}
	return value, nil
}

// Encode returns the canonical text for n: its base-35 digits prefixed with two
// zero symbols, or "AAA" for zero.
func Encode(n int64) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("%w: %d is negative", ErrRange, n)
	}
	if n == 0 {
		return zeroCode, nil
	}
	// 13 digits cover MaxInt64 in base 35.
	buf := make([]byte, 0, 16)
	for n > 0 {
		buf = append(buf, Symbols[n%Base])
		n /= Base
	}
	for i := 0; i < canonicalPad; i++ {
		buf = append(buf, zeroSymbol)
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

// Validate checks that text is acceptable as a code: at least MinLength
// characters, alphabet symbols only (case-insensitive) and a representable value.
func Validate(text string) error {
	if len(text) < MinLength {
		return fmt.Errorf("%w: %q has %d characters, want at least %d", ErrFormat, text, len(text), MinLength)
	}
	upper := strings.ToUpper(text)
	for i := 0; i < len(upper); i++ {
		if _, ok := SymbolValue(upper[i]); !ok {
			return fmt.Errorf("%w: invalid character %q in %q", ErrFormat, upper[i], text)
		}
	}
	value, err := Decode(upper)
	if err != nil {
		return err
	}
	if value < 0 {
		return fmt.Errorf("%w: %q decodes to a negative value", ErrRange, text)
	}
	return nil
}
