package collyprober

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/experience-hoarder/internal/code"
	"github.com/JakeFAU/experience-hoarder/internal/crawler"
)

func newLookupServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestProbeFound(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []string
	)
	srv := newLookupServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Query().Get(QueryParam))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"originalPlayground":{"name":"lobby"}}`))
	})

	p, err := New(Config{BaseURL: srv.URL + "/lookup", UserAgent: "test-agent", Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	status, err := p.Probe(context.Background(), code.MustParse("AA9L9"))
	require.NoError(t, err)
	require.Equal(t, crawler.StatusFound, status)

	// Revisiting the same URL must still issue a request.
	_, err = p.Probe(context.Background(), code.MustParse("AA9L9"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"AA9L9", "AA9L9"}, seen)
}

func TestProbeNotFoundOnErrorStatus(t *testing.T) {
	t.Parallel()

	srv := newLookupServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"message":"Experience not found"}]}`))
	})

	p, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	status, err := p.Probe(context.Background(), code.MustParse("AAB"))
	require.NoError(t, err)
	require.Equal(t, crawler.StatusNotFound, status)
}

func TestProbeUnexpectedShape(t *testing.T) {
	t.Parallel()

	srv := newLookupServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":"maintenance"}`))
	})

	p, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = p.Probe(context.Background(), code.MustParse("AAB"))
	require.ErrorIs(t, err, crawler.ErrUnexpectedResponse)
}

func TestProbeTimeout(t *testing.T) {
	t.Parallel()

	srv := newLookupServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{"errors":true}`))
	})

	p, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Probe(context.Background(), code.MustParse("AAB"))
	require.Error(t, err)
	require.NotErrorIs(t, err, crawler.ErrUnexpectedResponse)
	require.Less(t, time.Since(start), time.Second)
}

func TestProbeWaitsForLimiter(t *testing.T) {
	t.Parallel()

	limiter := &fakeWaiter{err: errors.New("limited")}
	p, err := New(Config{BaseURL: "https://lookup.example.com/api", Limiter: limiter}, nil)
	require.NoError(t, err)

	_, err = p.Probe(context.Background(), code.MustParse("AAB"))
	require.ErrorIs(t, err, limiter.err)
	require.Equal(t, []string{"https://lookup.example.com/api?experiencecode=AAB"}, limiter.urls)
}

func TestLookupURLKeepsExistingQuery(t *testing.T) {
	t.Parallel()

	p, err := New(Config{BaseURL: "https://lookup.example.com/v1/find?lang=en"}, nil)
	require.NoError(t, err)

	u, err := url.Parse(p.LookupURL(code.MustParse("aa9l9")))
	require.NoError(t, err)
	require.Equal(t, "/v1/find", u.Path)
	require.Equal(t, "en", u.Query().Get("lang"))
	require.Equal(t, "AA9L9", u.Query().Get(QueryParam))
}

func TestNewRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := New(Config{BaseURL: "/lookup"}, nil)
	require.Error(t, err)
}

type fakeWaiter struct {
	err  error
	urls []string
}

func (f *fakeWaiter) Wait(_ context.Context, url string) error {
	f.urls = append(f.urls, url)
	return f.err
}
