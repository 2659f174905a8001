package convert

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// 单位换算表（以 KiB 为基准）
var unitToKiB = map[byte]float64{
	'k': 1,
	'm': 1024,
	'g': 1048576,
	't': 1073741824,
}

// None 上游返回的“空值”字面量
const None = "None"

// BytesToKiB 字节转 KiB，保留小数（不取整）
func BytesToKiB(b float64) float64 {
	return b / 1024
}

// BytesToMiB 字节转 MiB
func BytesToMiB(b float64) float64 {
	return b / (1024 * 1024)
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SizeStringToKiB 解析带单位后缀的容量字符串（如 "2m"、"1g"、"500"），返回 KiB。
// 数值取开头的十进制部分，单位取第一个字母，缺省为 k；无法识别的单位按 KiB 处理。
func SizeStringToKiB(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))

	end := 0
	dot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !dot {
			dot = true
			end++
			continue
		}
		break
	}
	magnitude, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}

	unit := byte('k')
	for i := end; i < len(s); i++ {
		if s[i] >= 'a' && s[i] <= 'z' {
			unit = s[i]
			break
		}
	}
	mul, ok := unitToKiB[unit]
	if !ok {
		mul = 1
	}
	return magnitude * mul
}

// IsAbsent nil、"None" 以及空串都视为缺失
func IsAbsent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == "" || t == None
	case []byte:
		return len(t) == 0 || string(t) == None
	}
	return false
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return strings.TrimSpace(string(b))
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

// Float64OrDefault 转为 float64，缺失或无法转换时返回 def
func Float64OrDefault(v any, def float64) float64 {
	if IsAbsent(v) {
		return def
	}
	f, err := cast.ToFloat64E(normalize(v))
	if err != nil {
		return def
	}
	return f
}

// Int64OrDefault 转为 int64，"12.0" 这类浮点字面量按截断处理
func Int64OrDefault(v any, def int64) int64 {
	if IsAbsent(v) {
		return def
	}
	n := normalize(v)
	if i, err := cast.ToInt64E(n); err == nil {
		return i
	}
	if f, err := cast.ToFloat64E(n); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f)
	}
	return def
}

// StringOrDefault 转为字符串
func StringOrDefault(v any, def string) string {
	if IsAbsent(v) {
		return def
	}
	s, err := cast.ToStringE(normalize(v))
	if err != nil {
		return def
	}
	return s
}
