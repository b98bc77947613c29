package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Level
	}{
		{-1, InfoLevel},
		{0, InfoLevel},
		{100, InfoLevel},
		{199, InfoLevel},
		{200, InfoLevel},
		{204, InfoLevel},
		{301, InfoLevel},
		{399, InfoLevel},
		{400, WarnLevel},
		{404, WarnLevel},
		{429, WarnLevel},
		{499, WarnLevel},
		{500, ErrorLevel},
		{503, ErrorLevel},
		{599, ErrorLevel},
		{600, ErrorLevel},
		{999, ErrorLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForStatus(tt.status), "status %d", tt.status)
	}
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"silly", "trace", "debug", "info", "warn", "error", "fatal"} {
		level, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, name, level.String())
	}

	level, err := ParseLevel("  WARN ")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, level)

	level, err = ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, InfoLevel, level)
}

func TestLevel_Ordering(t *testing.T) {
	assert.True(t, SillyLevel < TraceLevel)
	assert.True(t, TraceLevel < DebugLevel)
	assert.True(t, DebugLevel < InfoLevel)
	assert.True(t, InfoLevel < WarnLevel)
	assert.True(t, WarnLevel < ErrorLevel)
	assert.True(t, ErrorLevel < FatalLevel)
	assert.Equal(t, "unknown", Level(42).String())
}
