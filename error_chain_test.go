package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	smerrors "github.com/Station-Manager/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildErrorChain_WithDetailedAndStd(t *testing.T) {
	inner := smerrors.New("db.Connect").Msg("dial tcp 127.0.0.1:5432: connect: connection refused")
	middle := smerrors.New("db.Open").Err(inner).Msg("failed to connect to database")
	outer := smerrors.New("server.Start").Err(middle).Msg("startup failed")

	chain, ops, root, rootOp := buildErrorChain(outer)
	assert.Equal(t, []string{
		"startup failed",
		"failed to connect to database",
		"dial tcp 127.0.0.1:5432: connect: connection refused",
	}, chain)
	assert.Equal(t, []string{"server.Start", "db.Open", "db.Connect"}, ops)
	assert.Equal(t, "dial tcp 127.0.0.1:5432: connect: connection refused", root)
	assert.Equal(t, "db.Connect", rootOp)

	wrapped := smerrors.New("wrap.Std").Errorf("wrap: %w", outer)
	chain2, _, root2, _ := buildErrorChain(wrapped)
	assert.True(t, strings.HasPrefix(chain2[0], "wrap:"))
	assert.Equal(t, root, root2)
}

func TestJoinChain(t *testing.T) {
	assert.Equal(t, "", joinChain(nil))
	assert.Equal(t, "a -> b -> c", joinChain([]string{"a", "b", "c"}))
}

func TestEncodeRecord_EmitsChainFields(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	inner := smerrors.New("db.Connect").Msg("dial tcp 127.0.0.1:5432: connect: connection refused")
	outer := smerrors.New("server.Start").Err(inner).Msg("startup failed")

	encodeRecord(&zl, Record{
		Level:   ErrorLevel,
		Channel: "app",
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Message: "boom",
		Fields:  []Field{{Key: "error", Value: outer}},
	})

	var entry map[string]any
	require.NoError(t, json.NewDecoder(&buf).Decode(&entry))

	assert.Equal(t, "boom", entry["message"])
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "2024-01-02T03:04:05Z", entry["time"])
	assert.Equal(t, "startup failed", entry["error"])
	assert.Equal(t, []any{"startup failed", "dial tcp 127.0.0.1:5432: connect: connection refused"}, entry["error_chain"])
	assert.Equal(t, "dial tcp 127.0.0.1:5432: connect: connection refused", entry["error_root"])
	assert.Equal(t, "startup failed -> dial tcp 127.0.0.1:5432: connect: connection refused", entry["error_history"])
	assert.Equal(t, []any{"server.Start", "db.Connect"}, entry["error_ops"])
	assert.Equal(t, "db.Connect", entry["error_root_op"])
}

func TestEncodeRecord_FieldTypes(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	encodeRecord(&zl, Record{
		Level:   InfoLevel,
		Channel: "app",
		Time:    time.Now(),
		Payload: map[string]any{"statusCode": 200},
		Fields: []Field{
			{Key: "s", Value: "text"},
			{Key: "n", Value: 3},
			{Key: "ok", Value: true},
			{Key: "took", Value: 1500 * time.Millisecond},
			{Key: "tags", Value: []string{"a", "b"}},
		},
	})

	var entry map[string]any
	require.NoError(t, json.NewDecoder(&buf).Decode(&entry))
	assert.Equal(t, map[string]any{"statusCode": float64(200)}, entry["payload"])
	assert.Equal(t, "text", entry["s"])
	assert.Equal(t, float64(3), entry["n"])
	assert.Equal(t, true, entry["ok"])
	assert.Equal(t, "1.5s", entry["took"])
	assert.Equal(t, []any{"a", "b"}, entry["tags"])
	_, hasPosition := entry["position"]
	assert.False(t, hasPosition)
}
