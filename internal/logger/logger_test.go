package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		" warn ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got, s)
	}

	got, ok := ParseLogLevel("unknown")
	require.False(t, ok)
	require.Equal(t, zapcore.InfoLevel, got)
}

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()
	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithKV_AttachesFields ensures fields added to the context logger reach the output.
func TestWithKV_AttachesFields(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithKV(ctx, "request_id", "abc")
	InfoKV(ctx, "enrolled", "label", "Alice")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "enrolled", entries[0].Message)
	fields := entries[0].ContextMap()
	require.Equal(t, "abc", fields["request_id"])
	require.Equal(t, "Alice", fields["label"])
}
