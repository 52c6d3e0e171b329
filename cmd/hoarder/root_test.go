package main

import (
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// Not parallel: godotenv writes the process environment.
func TestEnvFileSuppliesConfig(t *testing.T) {
	var requests atomic.Int32
	srv := newLookupServer(t, func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(`{"errors":true}`))
	})

	const key = "HOARDER_PROBE_BASE_URL"
	_, had := os.LookupEnv(key)
	require.False(t, had, "%s must not be set for this test", key)
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	envFile := filepath.Join(t.TempDir(), "hoarder.env")
	require.NoError(t, os.WriteFile(envFile, []byte(key+"="+srv.URL+"/lookup\n"), 0o600))

	out, err := execute(t, "--env-file", envFile, "sweep", "--start", "AAC", "--dev=false", "--log-level", "error")
	require.NoError(t, err)
	require.Equal(t, int32(2), requests.Load())
	require.Contains(t, out, "2 probed, 0 found, 2 not found")
}

func TestEnvFileMissingExplicitPath(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "--env-file", filepath.Join(t.TempDir(), "absent.env"), "code", "encode", "1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "load env file")
}

func TestEnvFileDefaultMayBeAbsent(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "code", "encode", "1")
	require.NoError(t, err)
	require.Equal(t, "AAB\n", out)
}
