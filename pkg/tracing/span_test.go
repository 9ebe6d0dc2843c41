package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "query", "701")
	_, parse := StartChildSpan(ctx, "parse")
	parse.SetAttr("nodes", 3)
	parse.End()
	root.End()

	require.Len(t, root.Children, 1)
	assert.Equal(t, "701", root.Children[0].TraceID)
	assert.Same(t, root, SpanFromContext(ctx))

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	assert.Contains(t, buf.String(), "span=parse")
	assert.Contains(t, buf.String(), "nodes=3")
}

func TestChildWithoutParent(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
}
