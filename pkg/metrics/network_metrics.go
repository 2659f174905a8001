package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SocketMetrics 套接字采集器同时暴露的 Prometheus 指标，每个周期整体重置后重新写入
type SocketMetrics struct {
	Connections *prometheus.GaugeVec
	QueueBytes  *prometheus.GaugeVec
}

// NewSocketMetrics 创建套接字指标
func (f *MetricFactory) NewSocketMetrics() *SocketMetrics {
	return &SocketMetrics{
		Connections: f.NewSocketConnections(),
		QueueBytes:  f.NewSocketQueueBytes(),
	}
}

// NewSocketConnections 按协议与状态统计的连接数
func (f *MetricFactory) NewSocketConnections() *prometheus.GaugeVec {
	return register(f, prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_network_connections",
			Help: "Sockets by protocol and state",
		},
		[]string{"protocol", "state"},
	))
}

// NewSocketQueueBytes 所有套接字接收/发送队列中积压的字节数
func (f *MetricFactory) NewSocketQueueBytes() *prometheus.GaugeVec {
	return register(f, prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_network_queue_bytes",
			Help: "Bytes waiting in socket receive/send queues",
		},
		[]string{"protocol", "queue"},
	))
}
