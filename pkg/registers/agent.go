package registers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stats-collector/pkg/goid"
	"github.com/stats-collector/pkg/logger"
)

// AgentImpl 实现 registers.Agent 接口。
// 每个采集器一个 goroutine 和一个定时器，同一采集器的周期串行执行，互不重叠；
// 不同采集器（监控目标）之间并行。
type AgentImpl struct {
	collectors   []Collector
	interval     time.Duration
	cycleTimeout time.Duration // 单个周期内外部调用的上限，0 表示不限制
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.Mutex
}

// NewAgent 创建采集器调度器
func NewAgent(interval, cycleTimeout time.Duration) *AgentImpl {
	return &AgentImpl{
		collectors:   make([]Collector, 0),
		interval:     interval,
		cycleTimeout: cycleTimeout,
	}
}

// Register 注册采集器
func (r *AgentImpl) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors = append(r.collectors, c)
}

// Collectors 已注册的采集器（副本）
func (r *AgentImpl) Collectors() []Collector {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]Collector, len(r.collectors))
	copy(copied, r.collectors)
	return copied
}

// InitAll 依次初始化，遇到第一个失败即返回
func (r *AgentImpl) InitAll() error {
	for _, coll := range r.Collectors() {
		if err := coll.Init(); err != nil {
			return fmt.Errorf("collector %s init failed: %w", coll.Name(), err)
		}
		logger.Debug("collector initialized successfully", zap.String("name", coll.Name()))
	}
	return nil
}

// Start 启动所有采集循环，立即执行第一个周期。ctx 取消后不再开始新的周期。
func (r *AgentImpl) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	collectors := r.collectors
	r.mu.Unlock()

	logger.Info("collector agent started",
		zap.Duration("interval", r.interval),
		zap.Int("registered-collectors-count", len(collectors)))

	for _, c := range collectors {
		r.wg.Add(1)
		go r.loop(ctx, c)
	}
}

func (r *AgentImpl) loop(ctx context.Context, c Collector) {
	defer r.wg.Done()
	logger.Debug("collector loop started", zap.String("name", c.Name()), goid.Field())

	r.runOnce(ctx, c)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx, c)
		case <-ctx.Done():
			logger.Debug("collector loop stopped", zap.String("name", c.Name()))
			return
		}
	}
}

// runOnce 周期一旦开始就执行完；外部调用不随 ctx 取消，只受 cycleTimeout 限制
func (r *AgentImpl) runOnce(ctx context.Context, c Collector) {
	if ctx.Err() != nil {
		return
	}
	cctx := context.WithoutCancel(ctx)
	if r.cycleTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(cctx, r.cycleTimeout)
		defer cancel()
	}
	if err := c.Collect(cctx); err != nil {
		logger.Warn("collection failed", zap.String("name", c.Name()), zap.Error(err))
	}
}

// Shutdown 停止调度并等待进行中的周期结束，然后关闭所有采集器
func (r *AgentImpl) Shutdown(ctx context.Context) error {
	logger.Info("starting to shutdown collector agent")

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for running cycles: %w", ctx.Err())
	}
	return r.CloseAll()
}

// CollectAll 按注册顺序各执行一个周期（单次运行模式）
func (r *AgentImpl) CollectAll(ctx context.Context) error {
	var errs []error
	for _, c := range r.Collectors() {
		if err := c.Collect(ctx); err != nil {
			logger.Warn("collection failed", zap.String("name", c.Name()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseAll 关闭所有采集器，单个失败不阻断其它
func (r *AgentImpl) CloseAll() error {
	var errs []error
	for _, c := range r.Collectors() {
		if err := c.Close(); err != nil {
			logger.Error("failed to close collector", zap.String("name", c.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.Name(), err))
			continue
		}
		logger.Debug("collector closed successfully", zap.String("name", c.Name()))
	}
	return errors.Join(errs...)
}
