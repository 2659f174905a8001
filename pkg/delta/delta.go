package delta

import (
	"time"
)

// Sample 某个计数器最近一次提交的观测值
type Sample struct {
	Value      float64
	Cycle      uint64
	ObservedAt time.Time
}

// PollCycleState 单个监控目标的计数器状态：key -> 上一周期的样本，以及单调递增的周期号。
// 只由该目标自己的采集周期读写，不跨目标共享。
type PollCycleState struct {
	samples map[string]Sample
	cycle   uint64
}

// Result 一次观测的结果
type Result struct {
	Delta float64
	// Rate 为 nil 表示间隔未知或非正
	Rate *float64
	// Baseline 该 key 首次出现，Delta/Rate 均为 0
	Baseline bool
	// Stale 上一个样本不是紧邻的上一周期写入的
	Stale bool
	// Reset 计数器回退（通常是服务重启），Delta 为负且原样返回
	Reset bool
}

// RateOr Rate 为 nil 时返回 def
func (r Result) RateOr(def float64) float64 {
	if r.Rate == nil {
		return def
	}
	return *r.Rate
}

// Option Engine 配置项
type Option func(*Engine)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine 计数器差值引擎，每个监控目标持有一个
type Engine struct {
	state PollCycleState
	now   func() time.Time
}

// NewEngine 创建差值引擎
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		state: PollCycleState{samples: make(map[string]Sample)},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Observe 单个 key 的一次观测，结果立即成为该 key 的基线。
// 不推进周期号：相对该 key 自己的上一个样本计算，其它 key 的观测不影响它。
func (e *Engine) Observe(key string, current, intervalSeconds float64) Result {
	number := e.state.cycle + 1
	if prev, ok := e.state.samples[key]; ok {
		number = prev.Cycle + 1
	}
	c := &Cycle{engine: e, number: number, pending: make(map[string]Sample, 1)}
	r := c.Observe(key, current, intervalSeconds)
	e.state.samples[key] = c.pending[key]
	return r
}

// Begin 开始一个新周期。周期内的观测只暂存，Commit 之后才成为下一周期的基线；
// 未提交的周期不会改动 PollCycleState。
func (e *Engine) Begin() *Cycle {
	return &Cycle{
		engine:  e,
		number:  e.state.cycle + 1,
		pending: make(map[string]Sample),
	}
}

// CycleNumber 最近一次提交的周期号
func (e *Engine) CycleNumber() uint64 {
	return e.state.cycle
}

// Len 已保存的计数器数量
func (e *Engine) Len() int {
	return len(e.state.samples)
}

// Baseline 返回 key 当前的基线
func (e *Engine) Baseline(key string) (Sample, bool) {
	s, ok := e.state.samples[key]
	return s, ok
}

// Cycle 一个尚未提交的采集周期
type Cycle struct {
	engine    *Engine
	number    uint64
	pending   map[string]Sample
	committed bool
}

// Number 本周期的周期号
func (c *Cycle) Number() uint64 {
	return c.number
}

// Observe 计算 key 相对上一次提交样本的差值与速率，并暂存 current 作为新基线
func (c *Cycle) Observe(key string, current, intervalSeconds float64) Result {
	now := c.engine.now()
	c.pending[key] = Sample{Value: current, Cycle: c.number, ObservedAt: now}

	prev, ok := c.engine.state.samples[key]
	if !ok {
		zero := 0.0
		return Result{Rate: &zero, Baseline: true}
	}

	r := Result{Delta: current - prev.Value}
	r.Reset = r.Delta < 0
	r.Stale = prev.Cycle+1 < c.number

	interval := intervalSeconds
	if r.Stale && interval > 0 {
		// 跨越了多个周期，用真实经过的时间计算速率
		if elapsed := now.Sub(prev.ObservedAt).Seconds(); elapsed > 0 {
			interval = elapsed
		}
	}
	if interval > 0 {
		rate := r.Delta / interval
		r.Rate = &rate
	}
	return r
}

// Commit 把暂存的样本写入 PollCycleState，重复调用无效
func (c *Cycle) Commit() {
	if c.committed {
		return
	}
	c.committed = true
	st := &c.engine.state
	for k, s := range c.pending {
		st.samples[k] = s
	}
	st.cycle = c.number
}

// Discard 放弃本周期的所有观测
func (c *Cycle) Discard() {
	c.committed = true
	c.pending = nil
}
