package logger_test

import (
	"testing"

	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fatalHook 捕获 fatal 日志（不退出进程）
type fatalHook struct {
	called bool
}

func (h *fatalHook) OnWrite(*zapcore.CheckedEntry, []zapcore.Field) {
	h.called = true
}

func TestLoggerLevels(t *testing.T) {
	t.Cleanup(func() { logger.SetLogger(nil) })

	cfg := &config.ZapLogConfig{
		Level:  "debug",
		Format: "console",
		Path:   t.TempDir(),
		MaxAge: 1,
	}
	l, err := logger.InitLogger(cfg)
	require.NoError(t, err)
	assert.Same(t, l, logger.GetGlobalLogger())

	// 普通日志
	logger.Debug("debug msg")
	logger.Info("info msg", zap.String("collector", "cpu"))
	logger.Warn("warn msg")
	logger.Error("error msg")

	// Panic 测试
	assert.Panics(t, func() { logger.Panic("panic msg") })

	// Fatal 测试（自定义 hook，不触发 os.Exit）
	hook := &fatalHook{}
	logger.GetGlobalLogger().WithOptions(zap.WithFatalHook(hook)).Fatal("fatal msg")
	assert.True(t, hook.called)

	assert.NoError(t, logger.Sync())
}

func TestSetLogger_Observer(t *testing.T) {
	t.Cleanup(func() { logger.SetLogger(nil) })

	core, logs := observer.New(zapcore.InfoLevel)
	logger.SetLogger(zap.New(core))

	logger.Debug("dropped")
	logger.Warn("parse failure", zap.String("collector", "lsof"), zap.Int("line", 3))
	logger.With(zap.String("target", "primary")).Info("cycle done")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "parse failure", entries[0].Message)
	assert.Equal(t, "lsof", entries[0].ContextMap()["collector"])
	assert.Equal(t, int64(3), entries[0].ContextMap()["line"])
	assert.Equal(t, "primary", entries[1].ContextMap()["target"])
}

func TestDefaultLoggerIsNoop(t *testing.T) {
	logger.SetLogger(nil)
	assert.NotPanics(t, func() { logger.Info("nobody listens") })
	assert.NoError(t, logger.Sync())
}
