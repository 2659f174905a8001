package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/metrics"
	"github.com/stats-collector/pkg/parser"
	"github.com/stats-collector/pkg/source"
)

// 插件标识与记录类型
const (
	PluginLsof    = "lsofstats"
	PluginProcess = "psstats"
	PluginSocket  = "socketstats"

	DocLsof    = "lsof_stats"
	DocProcess = "process_stats"
	DocSocket  = "netstats"
)

// CommandCollector 执行 shell 命令并逐行解析输出（lsof / ps / netstat）
type CommandCollector struct {
	base
	runner  source.CommandRunner
	command string
	kind    parser.Kind
	docType string
	// afterParse 组装前查看整个批次（如更新套接字指标），不修改解析结果
	afterParse func(recs []parser.Record)
	// decorate 组装时给第 i 条记录的字段补充批次相关的值（如进程序号）
	decorate func(i int, fields map[string]any)
}

func newCommandCollector(name, plugin, docType, command string, kind parser.Kind, runner source.CommandRunner, deps Deps) *CommandCollector {
	return &CommandCollector{
		base:    newBase(name, plugin, "", deps),
		runner:  runner,
		command: command,
		kind:    kind,
		docType: docType,
	}
}

// NewLsofCollector 打开文件列表
func NewLsofCollector(cfg config.CommandConfig, runner source.CommandRunner, deps Deps) *CommandCollector {
	return newCommandCollector("lsof", PluginLsof, DocLsof, cfg.Command, parser.KindFileHandle, runner, deps)
}

// NewSocketCollector 套接字列表；sm 不为空时同时更新连接数指标
func NewSocketCollector(cfg config.CommandConfig, runner source.CommandRunner, sm *metrics.SocketMetrics, deps Deps) *CommandCollector {
	c := newCommandCollector("socket", PluginSocket, DocSocket, cfg.Command, parser.KindSocket, runner, deps)
	if sm != nil {
		c.afterParse = func(recs []parser.Record) { updateSocketMetrics(sm, recs) }
	}
	return c
}

// NewProcessCollector 进程列表，按 CPU 或内存排序，可只取前 N 个
func NewProcessCollector(cfg config.ProcessConfig, runner source.CommandRunner, deps Deps) *CommandCollector {
	c := newCommandCollector("process", PluginProcess, DocProcess, ProcessCommand(cfg), parser.KindProcess, runner, deps)
	c.decorate = numberProcess
	return c
}

// ProcessCommand 由配置生成 ps 命令
func ProcessCommand(cfg config.ProcessConfig) string {
	sortKey := "-pcpu"
	if cfg.SortBy == "mem" {
		sortKey = "-pmem"
	}
	cmd := fmt.Sprintf("ps -wweo %s --sort=%s --no-headers", parser.ProcessColumns, sortKey)
	if cfg.NumProcesses > 0 {
		cmd += fmt.Sprintf(" | head -n %d", cfg.NumProcesses)
	}
	return cmd
}

// Command 实际执行的命令
func (c *CommandCollector) Command() string { return c.command }

func (c *CommandCollector) Init() error {
	if strings.TrimSpace(c.command) == "" {
		return fmt.Errorf("%s: empty command", c.name)
	}
	return nil
}

func (c *CommandCollector) Collect(ctx context.Context) error {
	return c.runCycle(ctx, func(ctx context.Context, cy *cycle) error {
		out, err := c.runner.Run(ctx, c.command)
		if err != nil {
			return err
		}
		recs := cy.parse(c.kind, out)
		if len(recs) == 0 {
			return nil
		}
		if c.afterParse != nil {
			c.afterParse(recs)
		}
		for i, r := range recs {
			fields := r.Fields()
			if c.decorate != nil {
				c.decorate(i, fields)
			}
			cy.emit(c.docType, fields, nil)
		}
		return nil
	})
}

func (c *CommandCollector) Close() error { return nil }

// numberProcess 序号从 1 开始，按输出顺序
func numberProcess(i int, fields map[string]any) {
	fields["order"] = i + 1
}

func updateSocketMetrics(sm *metrics.SocketMetrics, recs []parser.Record) {
	sm.Connections.Reset()
	sm.QueueBytes.Reset()
	for _, r := range recs {
		s, ok := r.(*parser.Socket)
		if !ok {
			continue
		}
		sm.Connections.WithLabelValues(s.Protocol, s.State).Inc()
		sm.QueueBytes.WithLabelValues(s.Protocol, "recv").Add(float64(s.RecvQ))
		sm.QueueBytes.WithLabelValues(s.Protocol, "send").Add(float64(s.SendQ))
	}
}
