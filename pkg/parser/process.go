package parser

import (
	"strconv"
	"strings"

	"github.com/stats-collector/pkg/convert"
)

// ProcessColumns ps 输出列顺序，与 Process 字段一一对应
const ProcessColumns = "uname,pid,psr,pcpu,cputime,pmem,rsz,vsz,tty,s,etime,args"

const processMinTokens = 12

// Process ps 输出中的一条进程记录
type Process struct {
	User        string
	PID         int64
	Processor   string
	CPUPercent  float64
	CPUTime     string
	MemPercent  float64
	ResidentKiB float64
	VirtualKiB  float64
	TTY         string
	State       string
	Elapsed     string
	Command     string
}

func (*Process) Kind() Kind { return KindProcess }

func (p *Process) Fields() map[string]any {
	return map[string]any{
		"pid":                  p.PID,
		"process_user":         p.User,
		"virt_memory":          p.VirtualKiB,
		"res_memory":           p.ResidentKiB,
		"processor":            p.Processor,
		"controlling_terminal": p.TTY,
		"status_code":          p.State,
		"cpu_percent":          p.CPUPercent,
		"cpu_time":             p.CPUTime,
		"memory_percent":       p.MemPercent,
		"process_command":      p.Command,
		"elapsed_time":         p.Elapsed,
	}
}

// ParseProcess 解析 `ps -wweo <ProcessColumns>` 的一行，内存列带单位后缀，统一换算为 KiB
func ParseProcess(line string) (*Process, error) {
	tokens := strings.Fields(line)
	if len(tokens) < processMinTokens {
		return nil, failf(KindProcess, line, "expected at least %d tokens, got %d", processMinTokens, len(tokens))
	}
	pid, err := strconv.ParseInt(tokens[1], 10, 64)
	if err != nil {
		return nil, failf(KindProcess, line, "invalid pid %q", tokens[1])
	}
	cpu, err := strconv.ParseFloat(tokens[3], 64)
	if err != nil {
		return nil, failf(KindProcess, line, "invalid cpu percent %q", tokens[3])
	}
	mem, err := strconv.ParseFloat(tokens[5], 64)
	if err != nil {
		return nil, failf(KindProcess, line, "invalid memory percent %q", tokens[5])
	}

	return &Process{
		User:        tokens[0],
		PID:         pid,
		Processor:   tokens[2],
		CPUPercent:  cpu,
		CPUTime:     tokens[4],
		MemPercent:  mem,
		ResidentKiB: convert.SizeStringToKiB(tokens[6]),
		VirtualKiB:  convert.SizeStringToKiB(tokens[7]),
		TTY:         tokens[8],
		State:       tokens[9],
		Elapsed:     tokens[10],
		Command:     strings.Trim(strings.Join(tokens[11:], " "), nameBrackets),
	}, nil
}
