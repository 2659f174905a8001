package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Validate 日志配置校验：级别大小写不敏感，path 必须是可创建的目录
func (l *ZapLogConfig) Validate() error {
	if err := valid.Struct(l); err != nil {
		return asConfigError(err)
	}

	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return newConfigError("log.level", "invalid (valid: debug/info/warn/error), got %s", l.Level)
	}

	abs, err := filepath.Abs(l.Path)
	if err != nil {
		return &ConfigError{Field: "log.path", Reason: "cannot resolve " + l.Path, Err: err}
	}
	if err := ensureDir(abs); err != nil {
		return &ConfigError{Field: "log.path", Reason: "directory is not writable: " + l.Path, Err: err}
	}
	return nil
}

// ensureDir 目录不存在时创建，存在但不是目录时报错
func ensureDir(path string) error {
	stat, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return os.MkdirAll(path, 0o755)
	case err != nil:
		return err
	case !stat.IsDir():
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
