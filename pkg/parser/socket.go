package parser

import (
	"strconv"
	"strings"
)

// StateStateless UDP 无连接状态
const StateStateless = "STATELESS"

// Socket netstat 输出中的一条套接字记录
type Socket struct {
	Protocol string
	RecvQ    int64
	SendQ    int64
	Local    string
	Foreign  string
	State    string
}

func (*Socket) Kind() Kind { return KindSocket }

func (s *Socket) Fields() map[string]any {
	return map[string]any{
		"connProtocol":   s.Protocol,
		"recvQ":          s.RecvQ,
		"sendQ":          s.SendQ,
		"localAddress":   s.Local,
		"foreignAddress": s.Foreign,
		"connState":      s.State,
	}
}

// ParseSocket 解析 `netstat -aenp` 的一行：proto recv-q send-q local foreign state ...
// udp 行没有状态列，一律记为 STATELESS
func ParseSocket(line string) (*Socket, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, failf(KindSocket, line, "empty line")
	}
	proto := tokens[0]
	udp := strings.HasPrefix(proto, "udp")
	if !udp && !strings.HasPrefix(proto, "tcp") {
		return nil, failf(KindSocket, line, "unsupported protocol %q", proto)
	}

	need := 6
	if udp {
		need = 5
	}
	if len(tokens) < need {
		return nil, failf(KindSocket, line, "expected at least %d tokens, got %d", need, len(tokens))
	}

	recvQ, err := strconv.ParseInt(tokens[1], 10, 64)
	if err != nil {
		return nil, failf(KindSocket, line, "invalid recv-q %q", tokens[1])
	}
	sendQ, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return nil, failf(KindSocket, line, "invalid send-q %q", tokens[2])
	}

	s := &Socket{
		Protocol: proto,
		RecvQ:    recvQ,
		SendQ:    sendQ,
		Local:    tokens[3],
		Foreign:  tokens[4],
		State:    StateStateless,
	}
	if !udp {
		s.State = tokens[5]
	}
	return s, nil
}
