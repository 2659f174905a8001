package parser

import (
	"strings"
)

// Info INFO 命令输出（key:value 文本）解析后的结果
type Info struct {
	Values    map[string]string
	Malformed int // 无法识别的行数
}

// Get 取值，不存在时返回 nil，便于交给 convert.*OrDefault 处理
func (i Info) Get(key string) any {
	v, ok := i.Values[key]
	if !ok {
		return nil
	}
	return v
}

// ParseInfo 解析 Redis INFO 文本。# 开头为分节标题，空行忽略，没有 ':' 的行计为 Malformed。
func ParseInfo(text string) Info {
	info := Info{Values: make(map[string]string)}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || key == "" {
			info.Malformed++
			continue
		}
		info.Values[key] = value
	}
	return info
}

// ParseKeyspace 解析 keyspace 值，如 "keys=1,expires=0,avg_ttl=0"
func ParseKeyspace(value string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
