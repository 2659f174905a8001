package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"

	"github.com/stats-collector/pkg/record"
)

// File 以 JSON 行的形式写入按天滚动的文件 <dir>/records-YYYYMMDD.jsonl
type File struct {
	mu     sync.Mutex
	w      *rotatelogs.RotateLogs
	closed bool
}

// NewFile 创建文件输出
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create sink dir %s: %w", dir, err)
	}
	w, err := rotatelogs.New(
		filepath.Join(dir, "records-%Y%m%d.jsonl"),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("create sink writer: %w", err)
	}
	return &File{w: w}, nil
}

func (*File) Name() string { return "file" }

func (f *File) Dispatch(_ context.Context, r record.Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	b = append(b, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	_, err = f.w.Write(b)
	return err
}

// CurrentFileName 当前写入的文件
func (f *File) CurrentFileName() string {
	return f.w.CurrentFileName()
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.w.Close()
}
