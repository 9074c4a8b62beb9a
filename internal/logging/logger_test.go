package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(Options{Development: true})
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(Options{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.False(t, logger.Core().Enabled(zap.DebugLevel))
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("production logger ready")
}

func TestNewLevelOverride(t *testing.T) {
	t.Parallel()

	logger, err := New(Options{Level: "debug"})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = New(Options{Development: true, Level: "warn"})
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = New(Options{Level: "chatty"})
	require.Error(t, err)
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	scoped := zap.New(core).With(zap.String("request_id", "req-1"))

	ctx := WithContext(context.Background(), scoped)
	FromContext(ctx, nil).Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "req-1", entries[0].ContextMap()["request_id"])

	fallback := zap.NewExample()
	require.Same(t, fallback, FromContext(context.Background(), fallback))
	require.NotNil(t, FromContext(context.Background(), nil))
}
