// Package collyprober implements crawler.Prober against the experience lookup
// service using gocolly.
package collyprober

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/experience-hoarder/internal/code"
	"github.com/JakeFAU/experience-hoarder/internal/crawler"
	"github.com/JakeFAU/experience-hoarder/internal/metrics"
)

// QueryParam is the query parameter carrying the code.
const QueryParam = "experiencecode"

const defaultTimeout = 15 * time.Second

// Waiter delays a request until the rate limiter admits it.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Config controls collector behavior.
type Config struct {
	BaseURL   string
	UserAgent string
	// Timeout bounds each probe so a hung request cannot stall a window.
	Timeout time.Duration
	Limiter Waiter
}

// Prober implements crawler.Prober using a shared Colly collector.
type Prober struct {
	cfg           Config
	base          *url.URL
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// lookupResult is what the hooks capture for one visit.
type lookupResult struct {
	statusCode int
	body       []byte
	err        error
}

// New builds a Prober for the lookup endpoint at cfg.BaseURL.
func New(cfg Config, logger *zap.Logger) (*Prober, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse lookup base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("lookup base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := []colly.CollectorOption{
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	c.WithTransport(newHTTPTransport())
	// Set once here: clones share the HTTP backend.
	c.SetRequestTimeout(cfg.Timeout)

	return &Prober{
		cfg:           cfg,
		base:          base,
		baseCollector: c,
		logger:        logger,
	}, nil
}

// LookupURL returns the request URL for c.
func (p *Prober) LookupURL(c code.Code) string {
	u := *p.base
	q := u.Query()
	q.Set(QueryParam, c.String())
	u.RawQuery = q.Encode()
	return u.String()
}

// Probe issues one GET for c and classifies the JSON answer.
func (p *Prober) Probe(ctx context.Context, c code.Code) (crawler.Status, error) {
	target := p.LookupURL(c)
	if p.cfg.Limiter != nil {
		if err := p.cfg.Limiter.Wait(ctx, target); err != nil {
			return "", fmt.Errorf("lookup %s: %w", c, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	res, err := p.visit(ctx, target)
	dur := time.Since(start)
	if err != nil {
		metrics.ObserveProbe(metrics.ProbeOutcomeError, dur)
		return "", fmt.Errorf("lookup %s: %w", c, err)
	}

	status, err := Classify(res.body)
	if err != nil {
		metrics.ObserveProbe(metrics.ProbeOutcomeUnexpected, dur)
		p.logger.Warn("unexpected lookup response",
			zap.Stringer("code", c),
			zap.Int("status_code", res.statusCode),
			zap.ByteString("body", truncate(res.body, 256)),
		)
		return "", fmt.Errorf("lookup %s (http %d): %w", c, res.statusCode, err)
	}
	metrics.ObserveProbe(string(status), dur)
	return status, nil
}

func (p *Prober) visit(ctx context.Context, target string) (lookupResult, error) {
	var res lookupResult
	collector := p.baseCollector.Clone()
	p.configureCollectorHooks(collector, &res)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return lookupResult{}, fmt.Errorf("colly probe canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return lookupResult{}, fmt.Errorf("colly visit failed: %w", err)
		}
		if res.err != nil {
			return lookupResult{}, fmt.Errorf("colly response failed: %w", res.err)
		}
		return res, nil
	}
}

func (p *Prober) configureCollectorHooks(hooks collectorHooks, res *lookupResult) {
	hooks.OnResponse(func(r *colly.Response) {
		res.statusCode = r.StatusCode
		res.body = append([]byte(nil), r.Body...)
	})
	hooks.OnError(func(r *colly.Response, err error) {
		// A JSON error body still classifies; only bodiless failures are errors.
		if r != nil && len(r.Body) > 0 {
			res.statusCode = r.StatusCode
			res.body = append([]byte(nil), r.Body...)
			return
		}
		res.err = err
	})
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
