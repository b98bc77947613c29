package logging

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Station-Manager/errors"
)

// RequestSummary is the payload of the single record written per request.
type RequestSummary struct {
	CorrelationID string `json:"correlationId"`
	Method        string `json:"method"`
	URL           string `json:"url"`
	StatusCode    int    `json:"statusCode"`
	Duration      string `json:"duration"`
	UserAgent     string `json:"userAgent,omitempty"`
	IP            string `json:"ip,omitempty"`
	Aborted       bool   `json:"aborted,omitempty"`
}

type middlewareOptions struct {
	now        func() time.Time
	newID      func() string
	metrics    *Metrics
	trustProxy bool
}

// MiddlewareOption configures RequestCorrelation.
type MiddlewareOption func(*middlewareOptions)

// WithClock replaces time.Now for request timing.
func WithClock(now func() time.Time) MiddlewareOption {
	return func(o *middlewareOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator replaces the generator used when the client sent no id.
func WithIDGenerator(fn func() string) MiddlewareOption {
	return func(o *middlewareOptions) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithMetrics counts every logged request on m.
func WithMetrics(m *Metrics) MiddlewareOption {
	return func(o *middlewareOptions) {
		o.metrics = m
	}
}

// WithTrustProxy takes the client address from the first X-Forwarded-For hop.
// Enable it only behind a proxy that overwrites that header; otherwise the
// address comes from the connection.
func WithTrustProxy(trust bool) MiddlewareOption {
	return func(o *middlewareOptions) {
		o.trustProxy = trust
	}
}

// RequestCorrelation assigns each request a correlation id, echoes it on the
// X-Request-Id response header and, when the request scope ends, writes
// exactly one record through log at the level chosen by the final status.
// Install it outermost so responses produced by the router itself (404, 405)
// and by other middleware are covered.
func RequestCorrelation(log *Logger, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := middlewareOptions{now: time.Now, newID: NewCorrelationID}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
			if id == emptyString {
				id = o.newID()
			}
			w.Header().Set(HeaderRequestID, id)

			scope := &requestScope{
				log:     log,
				opts:    &o,
				rec:     &statusRecorder{ResponseWriter: w},
				request: r,
				id:      id,
				start:   o.now(),
			}
			defer scope.finish()

			next.ServeHTTP(scope.rec, r.WithContext(WithCorrelationID(r.Context(), id)))
		})
	}
}

// requestScope is released exactly once, whichever way the handler returns.
type requestScope struct {
	log     *Logger
	opts    *middlewareOptions
	rec     *statusRecorder
	request *http.Request
	id      string
	start   time.Time
	once    sync.Once
}

func (s *requestScope) finish() {
	p := recover()
	s.once.Do(func() {
		status := s.rec.Status()
		aborted := false
		switch {
		case p == http.ErrAbortHandler && !s.rec.committed():
			status, aborted = StatusClientClosedRequest, true
		case p != nil:
			status = http.StatusInternalServerError
		case !s.rec.committed() && s.request.Context().Err() != nil:
			status, aborted = StatusClientClosedRequest, true
		}
		s.log.LogRequest(status, s.summary(status, aborted))
	})
	if p != nil {
		panic(p)
	}
}

func (s *requestScope) summary(status int, aborted bool) RequestSummary {
	elapsed := s.opts.now().Sub(s.start)
	s.opts.metrics.observeRequest(s.request.Method, status, elapsed)
	return RequestSummary{
		CorrelationID: s.id,
		Method:        s.request.Method,
		URL:           s.request.URL.RequestURI(),
		StatusCode:    status,
		Duration:      fmt.Sprintf("%dms", elapsed.Milliseconds()),
		UserAgent:     s.request.UserAgent(),
		IP:            clientIP(s.request, s.opts.trustProxy),
		Aborted:       aborted,
	}
}

// clientIP is the RemoteAddr host, or the first X-Forwarded-For hop when the
// proxy is trusted.
func clientIP(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != emptyString {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != emptyString {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder remembers the first status written through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	hijacked    bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Status is the status sent to the client, 200 if the handler wrote nothing.
// A connection taken over through Hijack reports 101.
func (w *statusRecorder) Status() int {
	if !w.wroteHeader {
		if w.hijacked {
			return http.StatusSwitchingProtocols
		}
		return http.StatusOK
	}
	return w.status
}

// committed reports whether the handler has responded in any form.
func (w *statusRecorder) committed() bool {
	return w.wroteHeader || w.hijacked
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		if !w.wroteHeader {
			w.WriteHeader(http.StatusOK)
		}
		f.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	const op errors.Op = "logging.statusRecorder.Hijack"
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New(op).Msg("response writer does not support hijacking")
	}
	conn, rw, err := h.Hijack()
	if err == nil {
		w.hijacked = true
	}
	return conn, rw, err
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
