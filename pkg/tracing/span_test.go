package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
)

func TestSpanTree(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-1")
	ctx, root := Start(ctx, "analyze")
	if root.TraceID != "req-1" {
		t.Errorf("root TraceID = %q, want req-1", root.TraceID)
	}

	childCtx, child := Start(ctx, "retrieve")
	_, grandchild := Start(childCtx, "embed")
	grandchild.End()
	child.End()
	root.End()

	if FromContext(childCtx) != child {
		t.Error("FromContext did not return the child span")
	}
	if got := root.Children(); len(got) != 1 || got[0] != child {
		t.Fatalf("root children = %v", got)
	}
	if grandchild.TraceID != "req-1" {
		t.Errorf("grandchild TraceID = %q", grandchild.TraceID)
	}

	d := root.Duration()
	root.End()
	if root.Duration() != d {
		t.Error("second End changed the duration")
	}
}

func TestSpanLog(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	logger.SetupWriter(&buf, "debug", "text")

	ctx, root := Start(context.Background(), "score")
	root.SetAttr("grade", "B")
	_, child := Start(ctx, "keywords")
	child.End()
	root.End()
	root.Log(ctx)

	out := buf.String()
	if strings.Count(out, "msg=span") != 2 {
		t.Errorf("expected two span records, got:\n%s", out)
	}
	if !strings.Contains(out, "grade=B") || !strings.Contains(out, "span=keywords") {
		t.Errorf("span attributes missing:\n%s", out)
	}
}
