package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestContextFieldsAreAttached(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	ctx := WithTraceID(context.Background(), "abc")
	ctx = WithWorkerID(ctx, 2)
	ctx = WithEventID(ctx, 42)
	ctx = WithQueue(ctx, "events")

	l.Infof(ctx, "[Test] hello %s", "world")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		e := entries[0]
		assert.Equal(t, "[Test] hello world", e.Message)
		fields := e.ContextMap()
		assert.Equal(t, "abc", fields["trace_id"])
		assert.Equal(t, int64(2), fields["worker_id"])
		assert.Equal(t, int64(42), fields["event_id"])
		assert.Equal(t, "events", fields["queue"])
	}
}

func TestNilContextIsTolerated(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	l.Warnf(nil, "no ctx")
	assert.Equal(t, 1, logs.Len())
}
