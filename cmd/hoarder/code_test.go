package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/experience-hoarder/internal/code"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmdWith(prometheus.NewRegistry())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCodeEncode(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "code", "encode", "0", "9", "42069")
	require.NoError(t, err)
	require.Equal(t, "AAA\nAAJ\nAA9L9\n", out)
}

func TestCodeEncodeRejectsNegative(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "code", "encode", "--", "-1")
	require.ErrorIs(t, err, code.ErrRange)
}

func TestCodeDecode(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "code", "decode", "aa9l9", "AAAAB", "AA9")
	require.NoError(t, err)
	require.Equal(t, "42069\n1\n34\n", out)
}

func TestCodeDecodeRejectsShortCode(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "code", "decode", "AB")
	require.ErrorIs(t, err, code.ErrFormat)
}

func TestCodeRange(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "code", "range", "AAF", "AAA")
	require.NoError(t, err)
	require.Equal(t, []string{"AAF", "AAE", "AAD", "AAC", "AAB"}, strings.Fields(out))

	out, err = execute(t, "code", "range", "AAA", "AAG", "--step", "2")
	require.NoError(t, err)
	require.Equal(t, []string{"AAA", "AAC", "AAE"}, strings.Fields(out))

	_, err = execute(t, "code", "range", "AAA", "AAG", "--step", "-1")
	require.ErrorIs(t, err, code.ErrDirection)
}
