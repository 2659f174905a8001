package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricFactory 指标工厂，用于统一创建指标（counter/gauge/histogram）。
// 同名指标重复创建时返回已注册的那个，多个采集器实例可以共享同一组指标。
type MetricFactory struct {
	reg Registers
}

// NewMetricFactory 创建指标工厂
func NewMetricFactory(reg Registers) *MetricFactory {
	return &MetricFactory{reg: reg}
}

func register[T prometheus.Collector](m *MetricFactory, c T) T {
	if err := m.reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
