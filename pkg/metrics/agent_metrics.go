package metrics

import "github.com/prometheus/client_golang/prometheus"

// AgentMetrics 采集器自身的运行指标，所有采集器共享，按 collector 标签区分
type AgentMetrics struct {
	CollectErrors   *prometheus.CounterVec
	CollectDuration *prometheus.HistogramVec
	ParseFailures   *prometheus.CounterVec
	RecordsEmitted  *prometheus.CounterVec
	DispatchErrors  *prometheus.CounterVec
	CounterResets   *prometheus.CounterVec
	LastSuccess     *prometheus.GaugeVec
}

// NewAgentMetrics 创建（或取回已注册的）全部自身指标
func (m *MetricFactory) NewAgentMetrics() *AgentMetrics {
	return &AgentMetrics{
		CollectErrors:   m.NewAgentCollectErrorsTotal(),
		CollectDuration: m.NewAgentCollectDurationSeconds(),
		ParseFailures:   m.NewAgentParseFailuresTotal(),
		RecordsEmitted:  m.NewAgentRecordsEmittedTotal(),
		DispatchErrors:  m.NewAgentDispatchErrorsTotal(),
		CounterResets:   m.NewAgentCounterResetsTotal(),
		LastSuccess:     m.NewAgentLastSuccessTimestamp(),
	}
}

// NewAgentCollectErrorsTotal 创建「采集周期失败总数」指标
// 指标类型：Counter，一个周期无论失败原因只计一次
// 标签说明：
// collector: 采集器名称（如 "lsof"、"mysql/primary"）
func (m *MetricFactory) NewAgentCollectErrorsTotal() *prometheus.CounterVec {
	return register(m, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_collect_errors_total",
		Help: "Total failed poll cycles",
	}, []string{"collector"}))
}

// NewAgentCollectDurationSeconds 创建「采集周期耗时分布」指标
// 指标类型：Histogram，使用Prometheus默认分桶 [0.005 ... 10] 秒
func (m *MetricFactory) NewAgentCollectDurationSeconds() *prometheus.HistogramVec {
	return register(m, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agent_collect_duration_seconds",
		Help:    "Poll cycle duration per collector",
		Buckets: prometheus.DefBuckets,
	}, []string{"collector"}))
}

// NewAgentParseFailuresTotal 无法解析而被跳过的输出行数
func (m *MetricFactory) NewAgentParseFailuresTotal() *prometheus.CounterVec {
	return register(m, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_parse_failures_total",
		Help: "Total skipped lines that could not be parsed",
	}, []string{"collector"}))
}

// NewAgentRecordsEmittedTotal 成功下发的记录数
func (m *MetricFactory) NewAgentRecordsEmittedTotal() *prometheus.CounterVec {
	return register(m, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_records_emitted_total",
		Help: "Total records handed to the sinks",
	}, []string{"collector", "document_type"}))
}

// NewAgentDispatchErrorsTotal 下发失败而丢弃的记录数（不影响周期结果）
func (m *MetricFactory) NewAgentDispatchErrorsTotal() *prometheus.CounterVec {
	return register(m, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_dispatch_errors_total",
		Help: "Total records the sinks failed to accept",
	}, []string{"collector", "document_type"}))
}

// NewAgentCounterResetsTotal 检测到的计数器回退（通常是被监控服务重启）
func (m *MetricFactory) NewAgentCounterResetsTotal() *prometheus.CounterVec {
	return register(m, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_counter_resets_total",
		Help: "Total monitored counters observed to decrease between cycles",
	}, []string{"collector"}))
}

// NewAgentLastSuccessTimestamp 最近一次成功周期的 Unix 时间（秒）
func (m *MetricFactory) NewAgentLastSuccessTimestamp() *prometheus.GaugeVec {
	return register(m, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "agent_last_success_timestamp_seconds",
		Help: "Unix time of the last successful poll cycle",
	}, []string{"collector"}))
}
