package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CPUMetrics CPU 采集器同时暴露的 Prometheus 指标
type CPUMetrics struct {
	UsagePercent     *prometheus.GaugeVec
	UsageModePercent *prometheus.GaugeVec
	Load             *prometheus.GaugeVec
	Info             *prometheus.GaugeVec
}

// NewCPUMetrics 创建 CPU 指标
func (m *MetricFactory) NewCPUMetrics() *CPUMetrics {
	return &CPUMetrics{
		UsagePercent:     m.NewCPUUsagePercent(),
		UsageModePercent: m.NewCPUUsageModePercent(),
		Load:             m.NewCPULoad(),
		Info:             m.NewCPUInfo(),
	}
}

// NewCPUUsagePercent 创建并注册 CPU 总体使用率指标
// 这个指标通常是一个 Gauge，因为它表示的是一个瞬时值
func (m *MetricFactory) NewCPUUsagePercent() *prometheus.GaugeVec {
	return register(m, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cpu_usage_percent",
		Help: "Total CPU usage percentage",
	}, []string{"cpu"}))
}

// NewCPUUsageModePercent 按模式（user, system, idle等）划分的 CPU 使用率
func (m *MetricFactory) NewCPUUsageModePercent() *prometheus.GaugeVec {
	return register(m, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cpu_usage_mode_percent",
		Help: "CPU usage percentage by mode (user, system, idle, iowait, etc.)",
	}, []string{"cpu", "mode"}))
}

// NewCPULoad 1/5/15 分钟负载，period 标签取 1m/5m/15m
func (m *MetricFactory) NewCPULoad() *prometheus.GaugeVec {
	return register(m, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cpu_load_average",
		Help: "Load average",
	}, []string{"period"}))
}

// NewCPUInfo CPU 元信息，值固定为 1
func (m *MetricFactory) NewCPUInfo() *prometheus.GaugeVec {
	return register(m, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cpu_info",
		Help: "CPU information (model, cores)",
	}, []string{"model", "cores"}))
}
