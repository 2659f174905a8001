package parser

import (
	"fmt"
	"strings"
)

// Kind 命令输出的来源类型（封闭集合）
type Kind int

const (
	KindFileHandle Kind = iota // lsof
	KindProcess                // ps
	KindSocket                 // netstat
)

func (k Kind) String() string {
	switch k {
	case KindFileHandle:
		return "file-handle"
	case KindProcess:
		return "process"
	case KindSocket:
		return "socket"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Record 单行解析结果
type Record interface {
	Kind() Kind
	// Fields 返回完整字段集合，缺失值使用默认值填充
	Fields() map[string]any
}

// ParseFailure 单行解析失败（可恢复，批次继续）
type ParseFailure struct {
	Kind   Kind
	LineNo int // 批次内行号，从 1 开始；单行解析时为 0
	Line   string
	Reason string
}

func (f *ParseFailure) Error() string {
	if f.LineNo > 0 {
		return fmt.Sprintf("parse %s line %d: %s: %q", f.Kind, f.LineNo, f.Reason, f.Line)
	}
	return fmt.Sprintf("parse %s line: %s: %q", f.Kind, f.Reason, f.Line)
}

func failf(kind Kind, line string, format string, args ...any) *ParseFailure {
	return &ParseFailure{Kind: kind, Line: line, Reason: fmt.Sprintf(format, args...)}
}

// Batch 批量解析结果：成功与失败分两个序列，均保持原始顺序
type Batch struct {
	Records  []Record
	Failures []*ParseFailure
}

// Empty 批次中没有任何可用记录
func (b Batch) Empty() bool {
	return len(b.Records) == 0
}

// ParseLine 按来源类型解析一行
func ParseLine(kind Kind, line string) (Record, error) {
	switch kind {
	case KindFileHandle:
		return ParseFileHandle(line)
	case KindProcess:
		return ParseProcess(line)
	case KindSocket:
		return ParseSocket(line)
	default:
		return nil, failf(kind, line, "unsupported source kind")
	}
}

// ParseBatch 逐行解析命令输出，空行跳过，单行失败不影响其它行（不限制单行长度）
func ParseBatch(kind Kind, text string) Batch {
	var b Batch
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := ParseLine(kind, line)
		if err != nil {
			pf, ok := err.(*ParseFailure)
			if !ok {
				pf = failf(kind, line, "%v", err)
			}
			pf.LineNo = i + 1
			b.Failures = append(b.Failures, pf)
			continue
		}
		b.Records = append(b.Records, rec)
	}
	return b
}
