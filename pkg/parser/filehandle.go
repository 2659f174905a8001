package parser

import (
	"strconv"
	"strings"

	"github.com/stats-collector/pkg/convert"
)

const nameBrackets = "[]{}()"

var bracketStripper = strings.NewReplacer("[", "", "]", "", "{", "", "}", "", "(", "", ")", "")

// FileHandle lsof 输出中的一条打开文件记录
type FileHandle struct {
	Command string
	PID     int64
	User    string
	FD      string
	Type    string
	Device  string // 无设备时为 "None"
	Node    string // netlink 时为整数，unknown 时为 "None"
	SizeKiB float64
	Name    string
}

func (*FileHandle) Kind() Kind { return KindFileHandle }

func (f *FileHandle) Fields() map[string]any {
	return map[string]any{
		"processCommand": f.Command,
		"pid":            f.PID,
		"user":           f.User,
		"fileDescriptor": f.FD,
		"fileType":       f.Type,
		"device":         f.Device,
		"node":           f.Node,
		"size":           f.SizeKiB,
		"name":           f.Name,
	}
}

// ParseFileHandle 解析 `lsof -nPs -Ki` 的一行。
// 前五列固定：command pid user fd type；其余列的含义由 type 决定：
//
//	netlink  node(int) name...
//	unknown  name...
//	其它     device size node name...，size/node 非数字时退化为 device node name...
func ParseFileHandle(line string) (*FileHandle, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 5 {
		return nil, failf(KindFileHandle, line, "expected at least 5 tokens, got %d", len(tokens))
	}
	pid, err := strconv.ParseInt(tokens[1], 10, 64)
	if err != nil {
		return nil, failf(KindFileHandle, line, "invalid pid %q", tokens[1])
	}

	fh := &FileHandle{
		Command: tokens[0],
		PID:     pid,
		User:    tokens[2],
		FD:      tokens[3],
		Type:    tokens[4],
	}
	rest := tokens[5:]

	var nameTokens []string
	switch fh.Type {
	case "netlink":
		if len(rest) < 1 {
			return nil, failf(KindFileHandle, line, "netlink entry without node")
		}
		if _, err := strconv.ParseInt(rest[0], 10, 64); err != nil {
			return nil, failf(KindFileHandle, line, "invalid netlink node %q", rest[0])
		}
		fh.Device = convert.None
		fh.Node = rest[0]
		nameTokens = rest[1:]
	case "unknown":
		fh.Device = convert.None
		fh.Node = convert.None
		nameTokens = rest
	default:
		if len(rest) < 3 {
			return nil, failf(KindFileHandle, line, "expected device, size/node and name, got %d tokens", len(rest))
		}
		fh.Device = rest[0]
		rest = rest[1:]

		_, nodeErr := strconv.ParseInt(rest[1], 10, 64)
		size, sizeErr := strconv.ParseInt(rest[0], 10, 64)
		if nodeErr == nil && sizeErr == nil {
			fh.Node = rest[1]
			fh.SizeKiB = convert.BytesToKiB(float64(size))
			nameTokens = rest[2:]
		} else {
			fh.Node = rest[0]
			nameTokens = rest[1:]
		}
	}

	fh.Name = bracketStripper.Replace(strings.Join(nameTokens, " "))
	return fh, nil
}
