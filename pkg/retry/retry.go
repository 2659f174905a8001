package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/logger"
)

// Policy 有上限的固定间隔重试
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// FromConfig 由配置生成重试策略
func FromConfig(c config.RetryConfig) Policy {
	return Policy{MaxAttempts: c.MaxAttempts, Delay: c.Delay}
}

func (p Policy) attempts() uint {
	if p.MaxAttempts < 1 {
		return 1
	}
	return uint(p.MaxAttempts)
}

// Permanent 标记不可重试的错误
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do 执行 op，失败后按策略重试，返回最后一次的错误。name 仅用于日志。
func Do[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	v, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		return op(ctx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(p.attempts()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("attempt failed, retrying",
				zap.String("target", name),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", int(p.attempts())),
				zap.Duration("retry_in", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		return v, fmt.Errorf("%s: giving up after %d attempt(s): %w", name, attempt, err)
	}
	if attempt > 1 {
		logger.Info("connected after retry", zap.String("target", name), zap.Int("attempt", attempt))
	}
	return v, nil
}
