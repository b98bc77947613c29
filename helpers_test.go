package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Station-Manager/weblog/config"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of the
// console and fallback channels.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// capture is a custom transport that keeps every record it receives.
type capture struct {
	mu      sync.Mutex
	records []Record
}

func (c *capture) transport(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

func (c *capture) all() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.records...)
}

func (c *capture) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, time.March, 9, 14, 30, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testService struct {
	*Service
	console *syncBuffer
	stderr  *syncBuffer
}

// newTestService initializes a Service in a temp dir with a JSON console
// and no compression. mutate may adjust the config before Initialize.
func newTestService(t *testing.T, mutate func(*config.Logging)) *testService {
	t.Helper()
	cfg := config.DefaultLogging()
	cfg.Type = string(FormatJSON)
	cfg.Compress = string(CompressNone)
	if mutate != nil {
		mutate(&cfg)
	}

	ts := &testService{console: &syncBuffer{}, stderr: &syncBuffer{}}
	ts.Service = &Service{
		WorkingDir: t.TempDir(),
		Config:     &cfg,
		Console:    ts.console,
		Stderr:     ts.stderr,
	}
	require.NoError(t, ts.Initialize())
	t.Cleanup(func() { _ = ts.Close() })
	return ts
}

type logLine map[string]any

func decodeLines(t *testing.T, r io.Reader) []logLine {
	t.Helper()
	var out []logLine
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var entry logLine
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	require.NoError(t, sc.Err())
	return out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}
