package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/stats-collector/pkg/logger"
	"github.com/stats-collector/pkg/record"
)

// Log 把记录写到全局日志
type Log struct{}

// NewLog 创建日志输出
func NewLog() *Log {
	return &Log{}
}

func (*Log) Name() string { return "log" }

func (*Log) Dispatch(_ context.Context, r record.Record) error {
	logger.Info("record",
		zap.String("plugin", asString(r[record.FieldPlugin])),
		zap.String("document_type", r.DocumentType()),
		zap.Any("fields", map[string]any(r)))
	return nil
}

func (*Log) Close() error { return nil }

func asString(v any) string {
	s, _ := v.(string)
	return s
}
