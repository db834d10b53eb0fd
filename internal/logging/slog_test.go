package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "msg=dbg", "a=1",
		"level=INFO", "msg=inf", "b=2",
		"level=WARN", "msg=wrn", "c=3",
		"level=ERROR", "msg=err", "d=4",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSlogLogger_With(t *testing.T) {
	log, buf := newTestLogger(t)
	log.With("module", "sync").Info(context.Background(), "hello", "k", "v")

	out := buf.String()
	assert.Contains(t, out, "module=sync")
	assert.Contains(t, out, "k=v")
}

func TestNew_WritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	log := New(Options{Format: "json", Level: "warn", File: path})

	log.Info(context.Background(), "skipped")
	log.Warn(context.Background(), "kept", "n", 1)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.False(t, strings.Contains(out, "skipped"))
	assert.Contains(t, out, `"msg":"kept"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestNop_DoesNotPanic(t *testing.T) {
	l := Nop()
	l.Info(context.TODO(), "x")
	l.With("a", 1).Error(context.TODO(), "y")
}
