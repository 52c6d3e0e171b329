package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/experience-hoarder/internal/code"
	"github.com/JakeFAU/experience-hoarder/internal/metrics"
	"github.com/JakeFAU/experience-hoarder/internal/progress/sinks"
)

const requestTimeout = 30 * time.Second

// SnapshotSource exposes the latest sweep state.
type SnapshotSource interface {
	Latest() sinks.Snapshot
}

// Server wires HTTP handlers to the sweep snapshot.
type Server struct {
	router    chi.Router
	snapshots SnapshotSource
	events    EventSource
	logger    *zap.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithEventStream enables GET /v1/sweep/stream backed by src.
func WithEventStream(src EventSource) Option {
	return func(s *Server) {
		s.events = src
	}
}

// NewServer constructs a Server with middleware and routes.
func NewServer(snapshots SnapshotSource, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		snapshots: snapshots,
		logger:    logger.Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	// Long-lived; http.TimeoutHandler cannot hijack the connection.
	if s.events != nil {
		r.Get("/v1/sweep/stream", s.streamSweep)
	}

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(requestTimeout))
		r.Get("/healthz", s.healthz)
		r.Get("/readyz", s.readyz)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
		r.Get("/v1/sweep", s.getSweep)
		r.Get("/v1/codes/{code}", s.getCode)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports ready once a sweep has emitted its first event.
func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.snapshots == nil || s.snapshots.Latest().SweepID == "" {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "waiting for sweep"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getSweep(w http.ResponseWriter, _ *http.Request) {
	if s.snapshots == nil {
		s.writeError(w, http.StatusNotFound, "no sweep attached")
		return
	}
	snap := s.snapshots.Latest()
	if snap.SweepID == "" {
		s.writeError(w, http.StatusNotFound, "sweep has not started")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

type codeResponse struct {
	Code      code.Code  `json:"code"`
	Value     int64      `json:"value"`
	Canonical code.Code  `json:"canonical"`
	Prev      *code.Code `json:"prev,omitempty"`
	Next      *code.Code `json:"next,omitempty"`
}

func (s *Server) getCode(w http.ResponseWriter, r *http.Request) {
	c, err := code.Parse(chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := codeResponse{Code: c, Value: c.Int(), Canonical: c.Canonical()}
	if prev, err := c.Sub(1); err == nil {
		resp.Prev = &prev
	}
	if next, err := c.Add(1); err == nil {
		resp.Next = &next
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request ID stored by the middleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.String("request_id", RequestID(r.Context())),
					zap.Any("error", rec),
				)
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		rw.status = http.StatusSwitchingProtocols
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
