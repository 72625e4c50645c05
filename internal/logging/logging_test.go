package logging

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
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNew_WritesJSONWithContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "debug", Service: "roombook-server"})

	ctx := AppendCtx(context.Background(), slog.String("rpc", "Admit"))
	ctx = AppendCtx(ctx, slog.String("requester_id", "u1"))
	log.With(slog.String("component", "test")).DebugContext(ctx, "hello", slog.String(ErrKey, "none"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "roombook-server", rec["service"])
	assert.Equal(t, "test", rec["component"])
	assert.Equal(t, "Admit", rec["rpc"])
	assert.Equal(t, "u1", rec["requester_id"])
	assert.Equal(t, "none", rec[ErrKey])
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "warn"})
	log.Info("dropped")
	assert.Zero(t, buf.Len())
}

func TestAppendCtxDoesNotShareBacking(t *testing.T) {
	base := AppendCtx(context.Background(), slog.String("a", "1"))
	left := AppendCtx(base, slog.String("b", "2"))
	right := AppendCtx(base, slog.String("c", "3"))

	l := left.Value(slogFields).([]slog.Attr)
	r := right.Value(slogFields).([]slog.Attr)
	assert.Equal(t, "b", l[1].Key)
	assert.Equal(t, "c", r[1].Key)
}
