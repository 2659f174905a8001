package signal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stats-collector/pkg/signal"
)

func TestWaitForShutdown_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := signal.WaitForShutdown(ctx, func() error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestWaitForShutdown_ReturnsShutdownError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	boom := errors.New("boom")
	assert.ErrorIs(t, signal.WaitForShutdown(ctx, func() error { return boom }), boom)
}
