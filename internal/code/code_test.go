package code

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUppercasesAndKeepsPadding(t *testing.T) {
	t.Parallel()

	c, err := Parse("aaaa9l9")
	require.NoError(t, err)
	require.Equal(t, "AAAA9L9", c.String())
	require.Equal(t, int64(42069), c.Int())
	require.Equal(t, "AA9L9", c.Canonical().String())
}

func TestParseFormatViolation(t *testing.T) {
	t.Parallel()

	_, err := Parse("AB")
	require.ErrorIs(t, err, ErrFormat)
}

func TestFromValue(t *testing.T) {
	t.Parallel()

	c, err := FromValue("AA9L9")
	require.NoError(t, err)
	require.Equal(t, int64(42069), c.Int())

	c, err = FromValue([]byte("aab"))
	require.NoError(t, err)
	require.Equal(t, int64(1), c.Int())

	c, err = FromValue(MustParse("ABA"))
	require.NoError(t, err)
	require.Equal(t, int64(35), c.Int())

	for _, v := range []any{111, 3.5, true, nil, []string{"AAA"}} {
		_, err := FromValue(v)
		require.ErrorIs(t, err, ErrTypeMismatch, "%v", v)
	}
}

func TestZeroCodeIsOrigin(t *testing.T) {
	t.Parallel()

	var zero Code
	require.Equal(t, "AAA", zero.String())
	require.True(t, zero.Equal(MustParse("AAA")))
	require.Equal(t, 3, zero.Len())
}

func TestPaddingIndependence(t *testing.T) {
	t.Parallel()

	short := MustParse("AA9L9")
	long := MustParse("AAAAAA9L9")
	require.True(t, short.Equal(long))
	require.Zero(t, short.Compare(long))
	require.Equal(t, short.Hash(), long.Hash())
	require.NotEqual(t, short.String(), long.String())

	seen := map[uint64]Code{short.Hash(): short}
	_, ok := seen[long.Hash()]
	require.True(t, ok)
}

func TestOrderingMatchesValue(t *testing.T) {
	t.Parallel()

	for a := int64(0); a < 80; a += 7 {
		for b := int64(0); b < 80; b += 5 {
			ca, err := FromInt(a)
			require.NoError(t, err)
			cb, err := FromInt(b)
			require.NoError(t, err)
			require.Equal(t, a < b, ca.Less(cb))
			require.Equal(t, a == b, ca.Equal(cb))
			switch {
			case a < b:
				require.Equal(t, -1, ca.Compare(cb))
			case a > b:
				require.Equal(t, 1, ca.Compare(cb))
			default:
				require.Equal(t, 0, ca.Compare(cb))
			}
		}
	}
}

func TestArithmetic(t *testing.T) {
	t.Parallel()

	base := MustParse("AA9L9")
	for _, k := range []int64{0, 1, 34, 35, 1225, 1 << 20} {
		next, err := base.Add(k)
		require.NoError(t, err)
		require.Equal(t, base.Int()+k, next.Int())

		if k <= base.Int() {
			prev, err := base.Sub(k)
			require.NoError(t, err)
			require.Equal(t, base.Int()-k, prev.Int())
		}
	}

	c, err := MustParse("AAB").Sub(1)
	require.NoError(t, err)
	require.Equal(t, "AAA", c.String())

	_, err = MustParse("AAB").Sub(2)
	require.ErrorIs(t, err, ErrRange)

	_, err = MustParse("AAC").Add(-3)
	require.ErrorIs(t, err, ErrRange)

	back, err := MustParse("AAC").Sub(-1)
	require.NoError(t, err)
	require.Equal(t, "AAD", back.String())
}

func TestArithmeticOverflow(t *testing.T) {
	t.Parallel()

	top, err := FromInt(1<<63 - 1)
	require.NoError(t, err)
	_, err = top.Add(1)
	require.ErrorIs(t, err, ErrRange)
}

func TestAtIndexesText(t *testing.T) {
	t.Parallel()

	c := MustParse("AA9L9")
	require.Equal(t, byte('9'), c.At(2))
	require.Equal(t, byte('L'), c.At(3))
}

func TestTextMarshaling(t *testing.T) {
	t.Parallel()

	type payload struct {
		Code Code `json:"code"`
	}
	raw, err := json.Marshal(payload{Code: MustParse("aa9l9")})
	require.NoError(t, err)
	require.JSONEq(t, `{"code":"AA9L9"}`, string(raw))

	var decoded payload
	require.NoError(t, json.Unmarshal([]byte(`{"code":"abc"}`), &decoded))
	require.Equal(t, "ABC", decoded.Code.String())

	err = json.Unmarshal([]byte(`{"code":"a"}`), &decoded)
	require.Error(t, err)
	require.Contains(t, err.Error(), "format violation")
}
