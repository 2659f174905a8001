// Package source 采集周期依赖的外部数据源：shell 命令、MySQL、Redis、HTTP 接口以及本机信息。
// 所有数据源的失败都包装为 *UpstreamError，调用方用 errors.Is(err, ErrUpstreamUnavailable) 判断。
package source

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable 数据源调用失败或超时
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// UpstreamError 某个数据源的失败
type UpstreamError struct {
	Source string // 如 "shell", "mysql/primary"
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstreamUnavailable, e.Err}
}

func upstream(source string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Source: source, Err: err}
}
