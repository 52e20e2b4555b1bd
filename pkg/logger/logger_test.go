package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/kachra/pkg/logger"
)

func TestWithCtxReturnsInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	tagged := slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "abc123")

	ctx := logger.InjectLogger(context.Background(), tagged)
	logger.WithCtx(ctx).Info("resolved")

	assert.Contains(t, buf.String(), "request_id=abc123")
	assert.Contains(t, buf.String(), "msg=resolved")
}

func TestWithCtxFallsBackToBase(t *testing.T) {
	assert.Same(t, logger.L, logger.WithCtx(context.Background()))
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := logger.NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h).With("component", "negotiation")

	log.Info("accepted")
	log.Error("integrity")

	assert.Contains(t, a.String(), "accepted")
	assert.Contains(t, a.String(), "integrity")
	assert.NotContains(t, b.String(), "accepted")
	assert.Contains(t, b.String(), "component=negotiation")
}
