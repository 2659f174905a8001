package source

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo 按名称查找到的进程
type ProcessInfo struct {
	PID     int32
	Started time.Time
}

// Host 本机信息数据源
type Host interface {
	Hostname() string
	// Platform 操作系统发行版，如 ubuntu、centos
	Platform(ctx context.Context) (string, error)
	// FindProcesses 返回进程名等于 name 的所有进程
	FindProcesses(ctx context.Context, name string) ([]ProcessInfo, error)
}

// CPUSource CPU 时间片、负载与型号信息
type CPUSource interface {
	// Times 累计 CPU 时间（秒），perCPU 为 false 时只返回一条 "cpu-total"
	Times(ctx context.Context, perCPU bool) ([]cpu.TimesStat, error)
	LoadAvg(ctx context.Context) (*load.AvgStat, error)
	Info(ctx context.Context) ([]cpu.InfoStat, error)
}

// LocalHost 基于 gopsutil 的 Host 与 CPUSource
type LocalHost struct {
	hostname string
}

// NewLocalHost 启动时解析一次主机名
func NewLocalHost(ctx context.Context) *LocalHost {
	name := ""
	if info, err := host.InfoWithContext(ctx); err == nil {
		name = info.Hostname
	}
	if name == "" {
		name, _ = os.Hostname()
	}
	return &LocalHost{hostname: name}
}

func (h *LocalHost) Hostname() string {
	return h.hostname
}

func (h *LocalHost) Platform(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", upstream("host", err)
	}
	return info.Platform, nil
}

func (h *LocalHost) FindProcesses(ctx context.Context, name string) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, upstream("host", err)
	}
	var out []ProcessInfo
	for _, p := range procs {
		// 进程可能在遍历期间退出，忽略单个进程的错误
		n, err := p.NameWithContext(ctx)
		if err != nil || n != name {
			continue
		}
		created, err := p.CreateTimeWithContext(ctx)
		if err != nil {
			continue
		}
		out = append(out, ProcessInfo{PID: p.Pid, Started: time.UnixMilli(created)})
	}
	return out, nil
}

func (h *LocalHost) Times(ctx context.Context, perCPU bool) ([]cpu.TimesStat, error) {
	times, err := cpu.TimesWithContext(ctx, perCPU)
	if err != nil {
		return nil, upstream("cpu", err)
	}
	return times, nil
}

func (h *LocalHost) LoadAvg(ctx context.Context) (*load.AvgStat, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, upstream("load", err)
	}
	return avg, nil
}

func (h *LocalHost) Info(ctx context.Context) ([]cpu.InfoStat, error) {
	info, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, upstream("cpu", err)
	}
	return info, nil
}
