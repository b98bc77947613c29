package logging

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestLogger(t *testing.T) (*Logger, *capture) {
	t.Helper()
	ts := newTestService(t, nil)
	capt := &capture{}
	return ts.Create(ChannelRequestLog).EnableCustomTransport(capt.transport, true), capt
}

func onlySummary(t *testing.T, capt *capture) (Record, RequestSummary) {
	t.Helper()
	records := capt.all()
	require.Len(t, records, 1)
	summary, ok := records[0].Payload.(RequestSummary)
	require.True(t, ok, "payload is %T", records[0].Payload)
	return records[0], summary
}

func TestRequestCorrelation_PropagatesInboundID(t *testing.T) {
	log, capt := newRequestLogger(t)
	clock := newFakeClock()

	var seen string
	h := RequestCorrelation(log, WithClock(clock.Now))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationID(r.Context())
		clock.Advance(37 * time.Millisecond)
		_, _ = w.Write([]byte(`{"id":42}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	req.Header.Set("x-request-id", "abc-123")
	req.Header.Set("User-Agent", "curl/8.0")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "abc-123", seen)

	r, summary := onlySummary(t, capt)
	assert.Equal(t, InfoLevel, r.Level)
	assert.Equal(t, ChannelRequestLog, r.Channel)
	assert.Equal(t, RequestSummary{
		CorrelationID: "abc-123",
		Method:        http.MethodGet,
		URL:           "/users/42",
		StatusCode:    http.StatusOK,
		Duration:      "37ms",
		UserAgent:     "curl/8.0",
		IP:            "192.0.2.1",
	}, summary)
}

func TestRequestCorrelation_GeneratesIDFor404(t *testing.T) {
	log, capt := newRequestLogger(t)
	h := RequestCorrelation(log)(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing?x=1", nil))

	id := rec.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, id)

	r, summary := onlySummary(t, capt)
	assert.Equal(t, WarnLevel, r.Level)
	assert.Equal(t, http.StatusNotFound, summary.StatusCode)
	assert.Equal(t, id, summary.CorrelationID)
	assert.Equal(t, "/missing?x=1", summary.URL)
}

func TestRequestCorrelation_GeneratedIDsAreUnique(t *testing.T) {
	log, capt := newRequestLogger(t)
	h := RequestCorrelation(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get(HeaderRequestID)
		require.NotEmpty(t, id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, capt.len())
}

func TestRequestCorrelation_BlankHeaderIsReplaced(t *testing.T) {
	log, capt := newRequestLogger(t)
	h := RequestCorrelation(log, WithIDGenerator(func() string { return "generated" }))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "   ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "generated", rec.Header().Get(HeaderRequestID))
	_, summary := onlySummary(t, capt)
	assert.Equal(t, "generated", summary.CorrelationID)
	assert.Equal(t, http.StatusOK, summary.StatusCode)
}

func TestRequestCorrelation_ServerErrorLevel(t *testing.T) {
	log, capt := newRequestLogger(t)
	h := RequestCorrelation(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api", nil))

	r, summary := onlySummary(t, capt)
	assert.Equal(t, ErrorLevel, r.Level)
	assert.Equal(t, http.StatusServiceUnavailable, summary.StatusCode)
}

func TestRequestCorrelation_FirstStatusWins(t *testing.T) {
	log, capt := newRequestLogger(t)
	h := RequestCorrelation(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("done"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	r, summary := onlySummary(t, capt)
	assert.Equal(t, InfoLevel, r.Level)
	assert.Equal(t, http.StatusCreated, summary.StatusCode)
}

func TestRequestCorrelation_PanicLogsOnceAndRepanics(t *testing.T) {
	log, capt := newRequestLogger(t)
	h := RequestCorrelation(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	}))

	assert.PanicsWithValue(t, "handler exploded", func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})

	r, summary := onlySummary(t, capt)
	assert.Equal(t, ErrorLevel, r.Level)
	assert.Equal(t, http.StatusInternalServerError, summary.StatusCode)
	assert.False(t, summary.Aborted)
}

func TestRequestCorrelation_AbortHandler(t *testing.T) {
	log, capt := newRequestLogger(t)
	h := RequestCorrelation(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.Panics(t, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})

	r, summary := onlySummary(t, capt)
	assert.Equal(t, WarnLevel, r.Level)
	assert.Equal(t, StatusClientClosedRequest, summary.StatusCode)
	assert.True(t, summary.Aborted)
}

func TestRequestCorrelation_ClientDisconnect(t *testing.T) {
	log, capt := newRequestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	h := RequestCorrelation(log)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		cancel()
		<-r.Context().Done()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil).WithContext(ctx))

	r, summary := onlySummary(t, capt)
	assert.Equal(t, WarnLevel, r.Level)
	assert.Equal(t, StatusClientClosedRequest, summary.StatusCode)
	assert.True(t, summary.Aborted)
}

func TestRequestCorrelation_ForwardedFor(t *testing.T) {
	log, capt := newRequestLogger(t)
	h := RequestCorrelation(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	_, summary := onlySummary(t, capt)
	assert.Equal(t, "192.0.2.1", summary.IP)
}

func TestRequestCorrelation_ForwardedForTrusted(t *testing.T) {
	log, capt := newRequestLogger(t)
	h := RequestCorrelation(log, WithTrustProxy(true))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	_, summary := onlySummary(t, capt)
	assert.Equal(t, "203.0.113.7", summary.IP)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name  string
		fwd   string
		trust bool
		want  string
	}{
		{name: "no header", want: "192.0.2.1"},
		{name: "untrusted header", fwd: "198.51.100.4", want: "192.0.2.1"},
		{name: "trusted header", fwd: " 198.51.100.4 ,10.0.0.1", trust: true, want: "198.51.100.4"},
		{name: "trusted empty hop", fwd: " , 10.0.0.1", trust: true, want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.fwd != "" {
				req.Header.Set("X-Forwarded-For", tt.fwd)
			}
			assert.Equal(t, tt.want, clientIP(req, tt.trust))
		})
	}
}

// hijackRecorder is a ResponseRecorder whose connection can be taken over.
type hijackRecorder struct {
	*httptest.ResponseRecorder
	conn net.Conn
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return h.conn, bufio.NewReadWriter(bufio.NewReader(h.conn), bufio.NewWriter(h.conn)), nil
}

func TestRequestCorrelation_HijackedConnection(t *testing.T) {
	log, capt := newRequestLogger(t)
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })

	h := RequestCorrelation(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		conn, _, err := http.NewResponseController(w).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))

	// The context is already done, as it is once a hijacked client goes away.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil).WithContext(ctx)
	h.ServeHTTP(&hijackRecorder{ResponseRecorder: httptest.NewRecorder(), conn: server}, req)

	r, summary := onlySummary(t, capt)
	assert.Equal(t, InfoLevel, r.Level)
	assert.Equal(t, http.StatusSwitchingProtocols, summary.StatusCode)
	assert.False(t, summary.Aborted)
}

func TestStatusRecorder_HijackUnsupported(t *testing.T) {
	sr := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, _, err := sr.Hijack()
	require.Error(t, err)
	assert.False(t, sr.hijacked)
	assert.Equal(t, http.StatusOK, sr.Status())
}

func TestRequestCorrelation_Metrics(t *testing.T) {
	log, _ := newRequestLogger(t)
	m := NewMetrics(prometheus.NewRegistry())
	h := RequestCorrelation(log, WithMetrics(m))(http.NotFoundHandler())

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	}
	assert.Equal(t, float64(3), testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "404")))
}

func TestStatusRecorder_Unwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec}
	assert.Same(t, rec, sr.Unwrap())
	assert.Equal(t, http.StatusOK, sr.Status())

	sr.Flush()
	assert.True(t, rec.Flushed)
	assert.Equal(t, http.StatusOK, sr.Status())
}

func TestCorrelationID_Context(t *testing.T) {
	assert.Empty(t, CorrelationID(context.Background()))
	ctx := WithCorrelationID(context.Background(), "abc-123")
	assert.Equal(t, "abc-123", CorrelationID(ctx))

	a, b := NewCorrelationID(), NewCorrelationID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
