package registers

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/stats-collector/pkg/collector"
	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/logger"
	"github.com/stats-collector/pkg/metrics"
	"github.com/stats-collector/pkg/retry"
	"github.com/stats-collector/pkg/sink"
	"github.com/stats-collector/pkg/source"
)

type Module struct {
	Enabled bool
	Name    string
	NewFunc func() (Collector, error)
}

// Sources 采集器使用的数据源，测试中可替换
type Sources struct {
	Runner     source.CommandRunner
	Host       source.Host
	CPU        source.CPUSource
	OpenMySQL  func(t config.MySQLTarget) (source.Querier, error)
	OpenRedis  func(t config.RedisTarget) source.Store
	NewFetcher func(name string) source.Fetcher
}

// DefaultSources 真实环境的数据源：sh -c、gopsutil、MySQL、Redis、HTTP
func DefaultSources(ctx context.Context, cfg *config.MonitorConfig) Sources {
	local := source.NewLocalHost(ctx)
	policy := retry.FromConfig(cfg.Retry)
	timeout := cfg.CommandTimeout
	return Sources{
		Runner: source.NewShellRunner(timeout),
		Host:   local,
		CPU:    local,
		OpenMySQL: func(t config.MySQLTarget) (source.Querier, error) {
			return source.OpenMySQL(t, policy, timeout)
		},
		OpenRedis: func(t config.RedisTarget) source.Store {
			return source.NewRedisStore(t, policy, timeout)
		},
		NewFetcher: func(name string) source.Fetcher {
			return source.NewHTTPFetcher(name, timeout)
		},
	}
}

// Runtime InitAgent 的返回值
// Registry  Prometheus 指标注册器，用于 /metrics
// Agent     已启动的采集调度器
// Sink      所有记录的下发出口，关闭时需要 Close
// Memory    启用 memory 输出时的内存缓冲，供 /records 读取，否则为 nil
type Runtime struct {
	Registry *prometheus.Registry
	Agent    *AgentImpl
	Sink     *sink.Multi
	Memory   *sink.Memory
}

// Close 关闭下发出口
func (rt *Runtime) Close() error {
	return rt.Sink.Close()
}

// InitAgent 创建指标、输出与采集器。start 为 false 时只初始化不启动（单次运行模式）。
func InitAgent(ctx context.Context, enableProcess bool, cfg *config.Config, src Sources, start bool) (*Runtime, error) {
	// 仅注册进程指标（可选），不注册Go指标
	promReg := metrics.NewRegistry(enableProcess)
	metricFactory := metrics.NewMetricFactory(metrics.NewPromRegistry(promReg))

	out, mem, err := sink.New(cfg.Sink)
	if err != nil {
		return nil, fmt.Errorf("init sinks: %w", err)
	}

	agent := NewAgent(cfg.Monitor.Interval, cfg.Monitor.CommandTimeout)
	deps := collector.Deps{
		Hostname: src.Host.Hostname(),
		Sink:     out,
		Metrics:  metricFactory.NewAgentMetrics(),
		Interval: cfg.Monitor.Interval,
	}
	registered, err := RegisterCollectors(agent, cfg, metricFactory, src, deps)
	if err == nil {
		err = agent.InitAll()
	}
	if err != nil {
		logger.Error("failed to register collectors", zap.Error(err))
		_ = agent.CloseAll()
		_ = out.Close()
		return nil, err
	}

	if start {
		agent.Start(ctx)
	}
	logger.Info("collector monitor ready",
		zap.Int("collectors", len(registered)),
		zap.Strings("enabled", cfg.Monitor.Collectors.EnabledNames()),
		zap.Duration("interval", cfg.Monitor.Interval),
		zap.Bool("started", start))

	return &Runtime{Registry: promReg, Agent: agent, Sink: out, Memory: mem}, nil
}

// RegisterCollectors 采集器注册统一入口，新增采集器只需在 modules 列表添加一条。
// 数据库/缓存/代理类采集器每个监控目标注册一个实例，各自维护计数器基线。
func RegisterCollectors(agent Agent, cfg *config.Config, metricFactory *metrics.MetricFactory, src Sources, deps collector.Deps) ([]Collector, error) {
	cc := cfg.Monitor.Collectors

	modules := []Module{
		{
			Enabled: cc.CPU.Enable,
			Name:    "cpu",
			NewFunc: func() (Collector, error) {
				return collector.NewCPUCollector(cc.CPU, src.CPU, metricFactory.NewCPUMetrics(), deps), nil
			},
		},
		{
			Enabled: cc.Lsof.Enable,
			Name:    "lsof",
			NewFunc: func() (Collector, error) {
				return collector.NewLsofCollector(cc.Lsof, src.Runner, deps), nil
			},
		},
		{
			Enabled: cc.Process.Enable,
			Name:    "process",
			NewFunc: func() (Collector, error) {
				return collector.NewProcessCollector(cc.Process, src.Runner, deps), nil
			},
		},
		{
			Enabled: cc.Socket.Enable,
			Name:    "socket",
			NewFunc: func() (Collector, error) {
				return collector.NewSocketCollector(cc.Socket, src.Runner, metricFactory.NewSocketMetrics(), deps), nil
			},
		},
	}
	for _, t := range cc.MySQL.Targets {
		modules = append(modules, Module{
			Enabled: cc.MySQL.Enable,
			Name:    "mysql/" + t.DisplayName(),
			NewFunc: func() (Collector, error) {
				q, err := src.OpenMySQL(t)
				if err != nil {
					return nil, err
				}
				return collector.NewMySQLCollector(cc.MySQL, t, q, deps), nil
			},
		})
	}
	for _, t := range cc.Redis.Targets {
		modules = append(modules, Module{
			Enabled: cc.Redis.Enable,
			Name:    "redis/" + t.DisplayName(),
			NewFunc: func() (Collector, error) {
				return collector.NewRedisCollector(cc.Redis, t, src.OpenRedis(t), deps), nil
			},
		})
	}
	for _, t := range cc.Nginx.Targets {
		name := "nginx/" + t.DisplayName()
		modules = append(modules, Module{
			Enabled: cc.Nginx.Enable,
			Name:    name,
			NewFunc: func() (Collector, error) {
				return collector.NewNginxCollector(cc.Nginx, t, src.NewFetcher(name), src.Host, deps), nil
			},
		})
	}

	var registered []Collector
	for _, m := range modules {
		if !m.Enabled {
			logger.Debug("collector disabled", zap.String("name", m.Name))
			continue
		}
		c, err := m.NewFunc()
		if err != nil {
			return registered, fmt.Errorf("create collector %s: %w", m.Name, err)
		}
		agent.Register(c)
		registered = append(registered, c)
		logger.Debug("registered collector", zap.String("name", m.Name))
	}
	if len(registered) == 0 {
		return nil, fmt.Errorf("no collectors enabled; check monitor.collectors")
	}

	var names []string
	for _, c := range registered {
		names = append(names, c.Name())
	}
	logger.Debug("all enabled collectors registered", zap.Strings("enabled_collectors", names))
	return registered, nil
}

// ShutdownTimeout 关闭时等待进行中周期的上限：单个周期的外部调用上限再加一点余量
func ShutdownTimeout(cfg *config.MonitorConfig) time.Duration {
	return cfg.CommandTimeout + 5*time.Second
}
