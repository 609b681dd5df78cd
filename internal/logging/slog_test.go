package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	got := entries(t, buf)
	if len(got) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(got))
	}
	want := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	for i, e := range got {
		if e["level"] != want[i] {
			t.Fatalf("entry %d: want level %s, got %v", i, want[i], e["level"])
		}
	}
	if got[1]["msg"] != "inf" || got[1]["b"] != float64(2) {
		t.Fatalf("unexpected info entry: %v", got[1])
	}
}

func TestSlogLogger_ContextFields(t *testing.T) {
	log, buf := newTestLogger(t)

	ctx := ContextWith(context.Background(), "request_id", "r-1")
	ctx = ContextWith(ctx, "user_id", "u1")
	log.With("module", "dispatcher").Warn(ctx, "credit leak", "amount", 3)

	got := entries(t, buf)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	for k, v := range map[string]any{"request_id": "r-1", "user_id": "u1", "module": "dispatcher", "amount": float64(3)} {
		if got[0][k] != v {
			t.Fatalf("want %s=%v, got %v", k, v, got[0][k])
		}
	}
}

func TestContextWith_DoesNotLeakIntoParent(t *testing.T) {
	log, buf := newTestLogger(t)

	parent := ContextWith(context.Background(), "a", 1)
	_ = ContextWith(parent, "b", 2)
	log.Info(parent, "x")

	got := entries(t, buf)
	if _, ok := got[0]["b"]; ok {
		t.Fatalf("child field leaked into parent context: %v", got[0])
	}
}

func TestSlogLogger_NilContext(t *testing.T) {
	log, buf := newTestLogger(t)

	log.Info(nil, "no ctx")
	if !strings.Contains(buf.String(), "no ctx") {
		t.Fatalf("entry not written: %s", buf.String())
	}
}

func TestNewSlogLogger_NilFallsBackToDefault(t *testing.T) {
	log := NewSlogLogger(nil)
	log.Info(context.Background(), "default-ok")
}
