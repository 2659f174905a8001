// Package sink 记录下发：日志、JSON 行文件、内存环形缓冲，以及组合多个输出的 Multi。
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/record"
)

// ErrClosed 向已关闭的输出写入
var ErrClosed = errors.New("sink closed")

// Dispatcher 接收一条组装完成的记录
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, r record.Record) error
	Close() error
}

// Multi 依次写入所有输出，任一输出失败都返回错误，但不会跳过后面的输出
type Multi struct {
	sinks []Dispatcher
}

// NewMulti 组合多个输出
func NewMulti(sinks ...Dispatcher) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Name() string {
	return "multi"
}

func (m *Multi) Dispatch(ctx context.Context, r record.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Dispatch(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// New 按配置创建输出。启用 memory 输出时同时返回该内存缓冲，供 HTTP /records 读取。
func New(cfg config.SinkConfig) (*Multi, *Memory, error) {
	var (
		sinks []Dispatcher
		mem   *Memory
	)
	for _, out := range cfg.Outputs {
		switch out {
		case "log":
			sinks = append(sinks, NewLog())
		case "file":
			f, err := NewFile(cfg.FilePath)
			if err != nil {
				_ = NewMulti(sinks...).Close()
				return nil, nil, err
			}
			sinks = append(sinks, f)
		case "memory":
			mem = NewMemory(cfg.MemorySize)
			sinks = append(sinks, mem)
		default:
			_ = NewMulti(sinks...).Close()
			return nil, nil, fmt.Errorf("unknown sink output %q", out)
		}
	}
	return NewMulti(sinks...), mem, nil
}
