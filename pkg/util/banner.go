package util

import (
	"fmt"
	"io"
	"strings"

	"github.com/common-nighthawk/go-figure"
)

// 定义颜色常量
const (
	ColorReset  = "\x1b[0m"
	ColorRed    = "\x1b[1;31m"
	ColorGreen  = "\x1b[1;32m"
	ColorYellow = "\x1b[1;33m"
	ColorBlue   = "\x1b[1;34m"
	ColorCyan   = "\x1b[1;36m"
)

var colors = map[string]string{
	"red":    ColorRed,
	"green":  ColorGreen,
	"yellow": ColorYellow,
	"blue":   ColorBlue,
	"cyan":   ColorCyan,
}

// colorCode 颜色名转 ANSI 颜色码，未知名称不着色
func colorCode(name string) string {
	if c, ok := colors[strings.ToLower(name)]; ok {
		return c
	}
	return ""
}

// Banner 生成统一颜色的 ASCII banner，每行一个元素
func Banner(text, color string) []string {
	lines := figure.NewFigure(text, "", true).Slicify()
	code := colorCode(color)
	if code == "" {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, code+line+ColorReset)
	}
	return out
}

// PrintBanner 打印 banner 和版本行
func PrintBanner(w io.Writer, text, color, version string) {
	for _, line := range Banner(text, color) {
		_, _ = fmt.Fprintln(w, line)
	}
	if version != "" {
		_, _ = fmt.Fprintf(w, "%s %s\n\n", text, version)
	}
}
