package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentLoader, Handler: slog.NewTextHandler(&buf, nil)})
	l.Info("hello", FieldRows, 3)
	out := buf.String()
	if !strings.Contains(out, "component=loader") || !strings.Contains(out, "rows=3") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestContextLogger(t *testing.T) {
	l := Discard().WithComponent(ComponentHTTP)
	if got := FromContext(NewContext(context.Background(), l)); got != l {
		t.Fatalf("expected the stored logger, got %+v", got)
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("missing logger should fall back to default")
	}
}

func TestStructuredLoggerDataset(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Component: ComponentApp, Handler: slog.NewTextHandler(&buf, nil)}))
	sl.LogDatasetLoaded(context.Background(), "data.xlsx", "abc", 3, 2, 3)
	sl.LogError(context.Background(), "boom", errors.New("bad"), ComponentLoader, OpLoad, nil)
	out := buf.String()
	for _, want := range []string{"identity=abc", "entries=3", "error=bad", "operation=load"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}
