package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stats-collector/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentMetrics_SharedAcrossCollectors(t *testing.T) {
	reg := metrics.NewRegistry(false)
	f := metrics.NewMetricFactory(metrics.NewPromRegistry(reg))

	a := f.NewAgentMetrics()
	var b *metrics.AgentMetrics
	require.NotPanics(t, func() { b = f.NewAgentMetrics() })
	assert.Same(t, a.CollectErrors, b.CollectErrors)

	a.CollectErrors.WithLabelValues("lsof").Inc()
	b.CollectErrors.WithLabelValues("lsof").Inc()
	a.RecordsEmitted.WithLabelValues("mysql/primary", "serverDetails").Add(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(a.CollectErrors.WithLabelValues("lsof")))
	assert.Equal(t, 3.0, testutil.ToFloat64(b.RecordsEmitted.WithLabelValues("mysql/primary", "serverDetails")))

	n, err := testutil.GatherAndCount(reg, "agent_collect_errors_total", "agent_records_emitted_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFactory_PanicsOnConflictingDefinition(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "cpu_usage_percent", Help: "conflict"}))
	f := metrics.NewMetricFactory(metrics.NewPromRegistry(reg))

	assert.Panics(t, func() { f.NewCPUUsagePercent() })
}

func TestSocketAndCPUMetrics(t *testing.T) {
	reg := metrics.NewRegistry(true)
	f := metrics.NewMetricFactory(metrics.NewPromRegistry(reg))

	s := f.NewSocketMetrics()
	s.Connections.WithLabelValues("tcp", "LISTEN").Set(4)
	c := f.NewCPUMetrics()
	c.Load.WithLabelValues("1m").Set(0.5)

	assert.Equal(t, 4.0, testutil.ToFloat64(s.Connections.WithLabelValues("tcp", "LISTEN")))
	assert.Equal(t, 0.5, testutil.ToFloat64(c.Load.WithLabelValues("1m")))
}
