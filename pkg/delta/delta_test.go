package delta_test

import (
	"testing"
	"time"

	"github.com/stats-collector/pkg/delta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 手动推进的时钟
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0)} }

func TestObserve_FirstSampleIsBaseline(t *testing.T) {
	e := delta.NewEngine()

	r := e.Observe("k", 500, 10)
	assert.True(t, r.Baseline)
	assert.Equal(t, 0.0, r.Delta)
	require.NotNil(t, r.Rate)
	assert.Equal(t, 0.0, *r.Rate)

	s, ok := e.Baseline("k")
	require.True(t, ok)
	assert.Equal(t, 500.0, s.Value)
}

func TestObserve_DeltaAndRate(t *testing.T) {
	e := delta.NewEngine()
	e.Observe("k", 500, 10)

	r := e.Observe("k", 530, 10)
	assert.False(t, r.Baseline)
	assert.Equal(t, 30.0, r.Delta)
	require.NotNil(t, r.Rate)
	assert.Equal(t, 3.0, *r.Rate)
}

func TestObserve_ZeroIntervalGivesNilRate(t *testing.T) {
	e := delta.NewEngine()
	e.Observe("k", 500, 10)

	r := e.Observe("k", 530, 0)
	assert.Equal(t, 30.0, r.Delta)
	assert.Nil(t, r.Rate)
	assert.Equal(t, -1.0, r.RateOr(-1))

	r = e.Observe("k", 540, -5)
	assert.Nil(t, r.Rate)
}

func TestObserve_CounterResetIsSurfaced(t *testing.T) {
	e := delta.NewEngine()
	e.Observe("k", 1000, 10)

	r := e.Observe("k", 40, 10)
	assert.True(t, r.Reset)
	assert.Equal(t, -960.0, r.Delta)
	require.NotNil(t, r.Rate)
	assert.Equal(t, -96.0, *r.Rate)

	// 回退后的值成为新基线
	r = e.Observe("k", 100, 10)
	assert.False(t, r.Reset)
	assert.Equal(t, 60.0, r.Delta)
}

func TestObserve_InterleavedKeysKeepCallerInterval(t *testing.T) {
	clk := newFakeClock()
	e := delta.NewEngine(delta.WithClock(clk.now))

	e.Observe("k", 500, 10)
	e.Observe("other", 1, 10)
	clk.advance(time.Millisecond)
	r := e.Observe("k", 530, 10)
	assert.False(t, r.Stale)
	assert.Equal(t, 30.0, r.Delta)
	require.NotNil(t, r.Rate)
	assert.Equal(t, 3.0, *r.Rate)

	e.Observe("other", 2, 10)
	r = e.Observe("k", 560, 0)
	assert.Equal(t, 30.0, r.Delta)
	assert.Nil(t, r.Rate)
	assert.Equal(t, uint64(0), e.CycleNumber())
}

func TestCycle_StaleKeyWithoutIntervalHasNilRate(t *testing.T) {
	clk := newFakeClock()
	e := delta.NewEngine(delta.WithClock(clk.now))

	c := e.Begin()
	c.Observe("a", 0, 10)
	c.Observe("b", 0, 10)
	c.Commit()

	clk.advance(10 * time.Second)
	c = e.Begin()
	c.Observe("a", 1, 10)
	c.Commit()

	clk.advance(10 * time.Second)
	c = e.Begin()
	r := c.Observe("b", 50, 0)
	c.Commit()
	assert.True(t, r.Stale)
	assert.Nil(t, r.Rate)
}

func TestCycle_UncommittedLeavesStateUntouched(t *testing.T) {
	e := delta.NewEngine()
	e.Observe("k", 100, 10)

	c := e.Begin()
	r := c.Observe("k", 150, 10)
	assert.Equal(t, 50.0, r.Delta)
	c.Discard()

	assert.Equal(t, uint64(0), e.CycleNumber())
	s, _ := e.Baseline("k")
	assert.Equal(t, 100.0, s.Value)

	// 下一个成功周期仍然基于最后一次成功的样本
	r = e.Observe("k", 170, 10)
	assert.Equal(t, 70.0, r.Delta)
	assert.False(t, r.Stale)
}

func TestCycle_CommitIsIdempotent(t *testing.T) {
	e := delta.NewEngine()
	c := e.Begin()
	c.Observe("a", 1, 10)
	c.Observe("b", 2, 10)
	c.Commit()
	c.Commit()

	assert.Equal(t, uint64(1), e.CycleNumber())
	assert.Equal(t, 2, e.Len())
}

func TestCycle_StaleKeyUsesElapsedTime(t *testing.T) {
	clk := newFakeClock()
	e := delta.NewEngine(delta.WithClock(clk.now))

	c := e.Begin()
	c.Observe("a", 0, 10)
	c.Observe("b", 0, 10)
	c.Commit()

	// 两个周期只观测到 a
	for i := 0; i < 2; i++ {
		clk.advance(10 * time.Second)
		c = e.Begin()
		c.Observe("a", float64(i+1), 10)
		c.Commit()
	}

	clk.advance(10 * time.Second)
	c = e.Begin()
	ra := c.Observe("a", 3, 10)
	rb := c.Observe("b", 300, 10)
	c.Commit()

	assert.False(t, ra.Stale)
	assert.True(t, rb.Stale)
	assert.Equal(t, 300.0, rb.Delta)
	require.NotNil(t, rb.Rate)
	assert.Equal(t, 10.0, *rb.Rate) // 300 / 30s
}

func TestEngines_AreIndependent(t *testing.T) {
	a := delta.NewEngine()
	b := delta.NewEngine()

	a.Observe("queries", 10, 10)
	r := b.Observe("queries", 99, 10)
	assert.True(t, r.Baseline)

	r = a.Observe("queries", 15, 10)
	assert.Equal(t, 5.0, r.Delta)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 0.0, delta.Ratio(0, 0))
	assert.Equal(t, 0.0, delta.Ratio(7, 0))
	assert.Equal(t, 0.0, delta.Ratio(7, -3))
	assert.Equal(t, 0.25, delta.Ratio(3, 12))

	assert.Equal(t, 0.0, delta.HitRate(0, 0))
	assert.Equal(t, 0.75, delta.HitRate(3, 1))
	assert.Equal(t, 50.0, delta.Percent(1, 2))
}
