package code

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEncodeKnownValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text  string
		value int64
	}{
		{"AAA", 0},
		{"AAB", 1},
		{"AAJ", 9},
		{"AA9", 34},
		{"AA9L9", 42069},
		{"AABA", 35},
		{"AAB9", 69},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got, err := Decode(tt.text)
			require.NoError(t, err)
			require.Equal(t, tt.value, got)

			text, err := Encode(tt.value)
			require.NoError(t, err)
			require.Equal(t, tt.text, text)
		})
	}
}

func TestDecodeSymbolNine(t *testing.T) {
	t.Parallel()

	// "9" is the last symbol of the alphabet: value 34.
	v, ok := SymbolValue('9')
	require.True(t, ok)
	require.Equal(t, int64(34), v)

	got, err := Decode("AA9")
	require.NoError(t, err)
	require.Equal(t, int64(34), got)
}

func TestDecodeIgnoresCaseAndLeadingZeros(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"aa9l9", "AAAAA9L9", "9L9", "Aa9l9"} {
		got, err := Decode(text)
		require.NoError(t, err, text)
		require.Equal(t, int64(42069), got, text)
	}
}

func TestDecodeShortFormsMatchCanonical(t *testing.T) {
	t.Parallel()

	// Three-symbol forms without the two-symbol pad decode to the same value
	// as the canonical text Encode returns.
	tests := []struct {
		text      string
		value     int64
		canonical string
	}{
		{"ABA", 35, "AABA"},
		{"AB9", 69, "AAB9"},
		{"A9L9", 42069, "AA9L9"},
	}
	for _, tt := range tests {
		got, err := Decode(tt.text)
		require.NoError(t, err, tt.text)
		require.Equal(t, tt.value, got, tt.text)

		text, err := Encode(got)
		require.NoError(t, err)
		require.Equal(t, tt.canonical, text)
	}
}

func TestDecodeRejectsInvalidCharacters(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"AA0", "AB-", "A B", "ÄAB"} {
		_, err := Decode(text)
		require.ErrorIs(t, err, ErrFormat, text)
	}
}

func TestDecodeOverflow(t *testing.T) {
	t.Parallel()

	_, err := Decode("AA" + "9999999999999")
	require.ErrorIs(t, err, ErrRange)
}

func TestEncodeRejectsNegative(t *testing.T) {
	t.Parallel()

	_, err := Encode(-1)
	require.ErrorIs(t, err, ErrRange)
}

func TestEncodeZeroIsThreeSymbols(t *testing.T) {
	t.Parallel()

	text, err := Encode(0)
	require.NoError(t, err)
	require.Equal(t, "AAA", text)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	check := func(n int64) {
		text, err := Encode(n)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(text), MinLength)
		got, err := Decode(text)
		require.NoError(t, err)
		require.Equal(t, n, got)
	}
	for n := int64(0); n < 50_000; n++ {
		check(n)
	}
	for _, n := range []int64{Base*Base*Base - 1, Base * Base * Base, 1 << 40, math.MaxInt64 - 1, math.MaxInt64} {
		check(n)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want error
	}{
		{name: "minimum length", text: "AAA"},
		{name: "lower case", text: "aa9l9"},
		{name: "too short", text: "AB", want: ErrFormat},
		{name: "empty", text: "", want: ErrFormat},
		{name: "zero digit", text: "AB0", want: ErrFormat},
		{name: "punctuation", text: "AB!", want: ErrFormat},
		{name: "overflow", text: "AA9999999999999", want: ErrRange},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.text)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func FuzzDecode(f *testing.F) {
	for _, seed := range []string{"AAA", "AA9L9", "ab", "zz9", "AAAAAAAAAAAAAAAAAAB"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, text string) {
		value, err := Decode(text)
		if err != nil {
			return
		}
		if value < 0 {
			t.Fatalf("Decode(%q) = %d, want non-negative", text, value)
		}
		encoded, err := Encode(value)
		if err != nil {
			t.Fatalf("Encode(%d) error = %v", value, err)
		}
		again, err := Decode(encoded)
		if err != nil || again != value {
			t.Fatalf("Decode(Encode(%d)) = %d, %v", value, again, err)
		}
	})
}
