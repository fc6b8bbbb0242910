package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestFromContextCarriesRequestAndOwner(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "debug", "json")

	ctx := WithOwner(WithRequestID(context.Background(), "req-1"), "user-42")
	FromContext(ctx).Info("retrieval complete")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["owner_id"] != "user-42" {
		t.Errorf("owner_id = %v", entry["owner_id"])
	}
	if RequestID(ctx) != "req-1" {
		t.Errorf("RequestID() = %q", RequestID(ctx))
	}
}

func TestContextAttrsOnPlainCalls(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "info", "json")

	ctx := WithRequestID(context.Background(), "req-7")
	slog.Default().With("component", "indexer").InfoContext(ctx, "indexing complete")
	slog.Info("no context")

	dec := json.NewDecoder(&buf)
	var first, second map[string]any
	if err := dec.Decode(&first); err != nil {
		t.Fatal(err)
	}
	if err := dec.Decode(&second); err != nil {
		t.Fatal(err)
	}
	if first["request_id"] != "req-7" || first["component"] != "indexer" {
		t.Errorf("first entry = %v", first)
	}
	if _, ok := first["owner_id"]; ok {
		t.Errorf("owner_id set without WithOwner: %v", first)
	}
	if _, ok := second["request_id"]; ok {
		t.Errorf("request_id leaked into a context-free entry: %v", second)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"debug-2": slog.LevelDebug - 2,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
