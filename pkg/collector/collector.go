// Package collector 各类采集器。每个采集器对应一个监控目标，持有自己的差值引擎与记录组装器，
// 一个采集周期依次完成：获取原始数据 -> 解析 -> 计算差值 -> 组装 -> 下发 -> 提交基线。
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stats-collector/pkg/delta"
	"github.com/stats-collector/pkg/logger"
	"github.com/stats-collector/pkg/metrics"
	"github.com/stats-collector/pkg/parser"
	"github.com/stats-collector/pkg/record"
	"github.com/stats-collector/pkg/sink"
)

// ErrEmptyResult 数据源调用成功但没有任何可用数据
var ErrEmptyResult = errors.New("empty result")

// Deps 所有采集器共享的依赖
type Deps struct {
	Hostname string
	Sink     sink.Dispatcher
	Metrics  *metrics.AgentMetrics
	Interval time.Duration
	Clock    func() time.Time // 为空时使用 time.Now
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// base 采集周期的公共流程
type base struct {
	name   string
	deps   Deps
	engine *delta.Engine
	asm    *record.Assembler
	// missed 距上一次成功提交之间失败的周期数，用于还原真实间隔
	missed int
}

func newBase(name, plugin, target string, deps Deps) base {
	dopts := []delta.Option{delta.WithClock(deps.now)}
	ropts := []record.Option{record.WithClock(deps.now)}
	if target != "" {
		ropts = append(ropts, record.WithTarget(target))
	}
	return base{
		name:   name,
		deps:   deps,
		engine: delta.NewEngine(dopts...),
		asm:    record.NewAssembler(plugin, deps.Hostname, ropts...),
	}
}

// Name 采集器名称（唯一标识）
func (b *base) Name() string { return b.name }

// cycle 一个进行中的采集周期
type cycle struct {
	b       *base
	delta   *delta.Cycle
	stamp   record.Stamp
	records []record.Record
}

// runCycle 执行一个周期。gather 返回错误或没有产生记录时，本周期不下发任何记录，基线保持不变；
// 否则下发全部记录并提交基线。下发是尽力而为的：单条失败只记日志和指标，不让周期失败。
func (b *base) runCycle(ctx context.Context, gather func(ctx context.Context, c *cycle) error) error {
	start := time.Now()
	defer func() {
		b.deps.Metrics.CollectDuration.WithLabelValues(b.name).Observe(time.Since(start).Seconds())
	}()

	c := &cycle{b: b, delta: b.engine.Begin(), stamp: b.asm.NewStamp()}
	err := gather(ctx, c)
	if err == nil && len(c.records) == 0 {
		err = ErrEmptyResult
	}
	if err != nil {
		c.delta.Discard()
		b.missed++
		b.deps.Metrics.CollectErrors.WithLabelValues(b.name).Inc()
		return fmt.Errorf("%s cycle %s: %w", b.name, c.stamp.CycleID, err)
	}

	dropped := b.dispatch(ctx, c)
	c.delta.Commit()
	b.missed = 0
	b.deps.Metrics.LastSuccess.WithLabelValues(b.name).SetToCurrentTime()
	logger.Debug("poll cycle completed",
		zap.String("collector", b.name),
		zap.String("cycle_id", c.stamp.CycleID),
		zap.Int("records", len(c.records)),
		zap.Int("dropped", dropped),
		zap.Duration("took", time.Since(start)))
	return nil
}

// dispatch 按顺序下发，返回下发失败的记录数
func (b *base) dispatch(ctx context.Context, c *cycle) int {
	dropped := 0
	for _, r := range c.records {
		if err := b.deps.Sink.Dispatch(ctx, r); err != nil {
			dropped++
			b.deps.Metrics.DispatchErrors.WithLabelValues(b.name, r.DocumentType()).Inc()
			logger.Warn("dispatch failed, record dropped",
				zap.String("collector", b.name),
				zap.String("cycle_id", c.stamp.CycleID),
				zap.String("document_type", r.DocumentType()),
				zap.Error(err))
			continue
		}
		b.deps.Metrics.RecordsEmitted.WithLabelValues(b.name, r.DocumentType()).Inc()
	}
	return dropped
}

// interval 本周期对应的秒数；之前有失败的周期时按实际跨越的周期数放大
func (c *cycle) interval() float64 {
	return c.b.deps.Interval.Seconds() * float64(c.b.missed+1)
}

// observe 计数器差值，检测到回退时计数并记录日志，负差值原样返回
func (c *cycle) observe(key string, current float64) delta.Result {
	r := c.delta.Observe(key, current, c.interval())
	if r.Reset {
		c.b.deps.Metrics.CounterResets.WithLabelValues(c.b.name).Inc()
		logger.Info("counter decreased, new value becomes the baseline",
			zap.String("collector", c.b.name),
			zap.String("key", key),
			zap.Float64("delta", r.Delta))
	}
	return r
}

// emit 组装一条记录，按调用顺序下发
func (c *cycle) emit(docType string, fields map[string]any, layout record.Layout) {
	c.records = append(c.records, c.b.asm.Assemble(c.stamp, docType, fields, layout))
}

// parse 逐行解析命令输出，失败的行记录日志后跳过
func (c *cycle) parse(kind parser.Kind, text string) []parser.Record {
	batch := parser.ParseBatch(kind, text)
	for _, f := range batch.Failures {
		c.b.deps.Metrics.ParseFailures.WithLabelValues(c.b.name).Inc()
		logger.Warn("skipping unparsable line",
			zap.String("collector", c.b.name),
			zap.String("cycle_id", c.stamp.CycleID),
			zap.Int("line", f.LineNo),
			zap.String("reason", f.Reason),
			zap.String("raw", f.Line))
	}
	return batch.Records
}
