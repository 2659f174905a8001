package collector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"

	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/convert"
	"github.com/stats-collector/pkg/delta"
	"github.com/stats-collector/pkg/logger"
	"github.com/stats-collector/pkg/metrics"
	"github.com/stats-collector/pkg/source"
)

const (
	PluginCPU = "cpustats"
	DocCPU    = "cpuStats"
)

// cpuModes 参与计算的时间片，顺序即输出字段顺序
var cpuModes = []string{"user", "nice", "system", "idle", "iowait", "irq", "softirq", "steal"}

// CPUCollector 按累计时间片的差值计算各模式占比（实现Collector接口）
type CPUCollector struct {
	base
	src     source.CPUSource
	perCore bool
	metrics *metrics.CPUMetrics
}

// NewCPUCollector 创建CPU采集器
func NewCPUCollector(cfg config.CPUConfig, src source.CPUSource, cm *metrics.CPUMetrics, deps Deps) *CPUCollector {
	return &CPUCollector{
		base:    newBase("cpu", PluginCPU, "", deps),
		src:     src,
		perCore: cfg.CollectPerCore,
		metrics: cm,
	}
}

// Init 预检查CPU时间片是否可读，并写入静态信息
func (c *CPUCollector) Init() error {
	ctx := context.Background()
	if _, err := c.src.Times(ctx, c.perCore); err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	info, err := c.src.Info(ctx)
	if err != nil || len(info) == 0 {
		// 型号信息只用于展示
		logger.Warn("cpu info unavailable", zap.Error(err))
		return nil
	}
	var cores int32
	for _, i := range info {
		cores += i.Cores
	}
	if c.metrics != nil {
		c.metrics.Info.WithLabelValues(info[0].ModelName, strconv.Itoa(int(cores))).Set(1)
	}
	return nil
}

func (c *CPUCollector) Collect(ctx context.Context) error {
	return c.runCycle(ctx, func(ctx context.Context, cy *cycle) error {
		times, err := c.src.Times(ctx, c.perCore)
		if err != nil {
			return err
		}
		avg, err := c.src.LoadAvg(ctx)
		if err != nil {
			return err
		}
		if c.metrics != nil {
			c.metrics.Load.WithLabelValues("1m").Set(avg.Load1)
			c.metrics.Load.WithLabelValues("5m").Set(avg.Load5)
			c.metrics.Load.WithLabelValues("15m").Set(avg.Load15)
		}

		for _, t := range times {
			fields := c.usage(cy, t)
			fields["load1"] = avg.Load1
			fields["load5"] = avg.Load5
			fields["load15"] = avg.Load15
			cy.emit(DocCPU, fields, nil)
		}
		return nil
	})
}

// usage 单个CPU的各模式占比；首次采集（只有基线）时全部为 0
func (c *CPUCollector) usage(cy *cycle, t cpu.TimesStat) map[string]any {
	label := cpuLabel(t.CPU)
	current := map[string]float64{
		"user":    t.User,
		"nice":    t.Nice,
		"system":  t.System,
		"idle":    t.Idle,
		"iowait":  t.Iowait,
		"irq":     t.Irq,
		"softirq": t.Softirq,
		"steal":   t.Steal,
	}

	deltas := make(map[string]float64, len(cpuModes))
	var total float64
	baseline := false
	for _, mode := range cpuModes {
		r := cy.observe(label+"."+mode, current[mode])
		baseline = baseline || r.Baseline
		deltas[mode] = r.Delta
		total += r.Delta
	}

	fields := map[string]any{"cpu": label}
	for _, mode := range cpuModes {
		pct := convert.Round2(delta.Percent(deltas[mode], total))
		fields[mode] = pct
		if c.metrics != nil && !baseline {
			c.metrics.UsageModePercent.WithLabelValues(label, mode).Set(pct)
		}
	}
	used := convert.Round2(delta.Percent(total-deltas["idle"], total))
	fields["usage"] = used
	if c.metrics != nil && !baseline {
		c.metrics.UsagePercent.WithLabelValues(label).Set(used)
	}
	return fields
}

func (c *CPUCollector) Close() error { return nil }

// cpuLabel 总览行统一命名为 total
func cpuLabel(name string) string {
	if name == "cpu-total" || name == "cpu" || name == "" {
		return "total"
	}
	return name
}
