package sink

import (
	"context"
	"sync"

	"github.com/stats-collector/pkg/record"
)

// Memory 保留最近 size 条记录的环形缓冲
type Memory struct {
	mu    sync.RWMutex
	buf   []record.Record
	next  int
	full  bool
	total uint64
}

// NewMemory size <= 0 时按 1 处理
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 1
	}
	return &Memory{buf: make([]record.Record, size)}
}

func (*Memory) Name() string { return "memory" }

func (m *Memory) Dispatch(_ context.Context, r record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf[m.next] = r
	m.next = (m.next + 1) % len(m.buf)
	if m.next == 0 {
		m.full = true
	}
	m.total++
	return nil
}

// Snapshot 按写入顺序（旧 -> 新）返回缓冲中的记录；docType 非空时只返回该类型，limit > 0 时只保留最新的 limit 条
func (m *Memory) Snapshot(docType string, limit int) []record.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ordered []record.Record
	if m.full {
		ordered = append(ordered, m.buf[m.next:]...)
	}
	ordered = append(ordered, m.buf[:m.next]...)

	out := make([]record.Record, 0, len(ordered))
	for _, r := range ordered {
		if docType != "" && r.DocumentType() != docType {
			continue
		}
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Total 累计写入的记录数（含已被覆盖的）
func (m *Memory) Total() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

func (*Memory) Close() error { return nil }
