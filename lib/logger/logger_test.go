package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}

func TestSubsystemLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewSubsystemLogger(SubsystemMonitor, Config{Level: slog.LevelInfo, Output: &buf}, nil)

	ctx := AddToContext(context.Background(), log)
	FromContext(ctx).InfoContext(ctx, "tick", "containers", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "monitor", rec["subsystem"])
	assert.Equal(t, "tick", rec["msg"])
	assert.EqualValues(t, 3, rec["containers"])
}

func TestTeeHandlerWritesToAll(t *testing.T) {
	var a, b bytes.Buffer
	other := slog.NewTextHandler(&b, nil)
	log := New(Config{Level: slog.LevelInfo, Output: &a}, other)

	log.Info("hello")

	assert.Contains(t, a.String(), `"msg":"hello"`)
	assert.Contains(t, b.String(), "msg=hello")
}
