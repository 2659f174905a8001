package goid

import (
	"runtime"

	"go.uber.org/zap"
)

// GetGID 当前 goroutine 的 ID，只用于日志排查
func GetGID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	// "goroutine 123 [running]:\n"
	const prefix = len("goroutine ")
	var id uint64
	for i := prefix; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

// Field 以 zap 字段形式附带 goroutine ID
func Field() zap.Field {
	return zap.Uint64("goid", GetGID())
}
