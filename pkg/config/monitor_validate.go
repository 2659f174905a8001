package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Validate HTTP服务配置校验
func (h *ServerConfig) Validate() error {
	if err := valid.Struct(h); err != nil {
		return asConfigError(err)
	}
	// 	用net包解析地址，验证格式合法性
	if _, err := net.ResolveTCPAddr("tcp", h.Addr); err != nil {
		return &ConfigError{Field: "server.addr", Reason: fmt.Sprintf("format invalid (expected :port or ip:port), got %s", h.Addr), Err: err}
	}
	return nil
}

func (m *MonitorConfig) Validate() error {
	if err := valid.Struct(m); err != nil {
		return asConfigError(err)
	}
	if m.Interval < time.Second || m.Interval > 3600*time.Second {
		return newConfigError("monitor.interval", "must be between 1 and 3600 seconds, got %s", m.Interval)
	}
	return m.Collectors.validate()
}

// 校验至少启用一个采集，否则没有意义
func (col *CollectorConfig) validate() error {
	if err := valid.Struct(col); err != nil {
		return asConfigError(err)
	}
	if len(col.EnabledNames()) == 0 {
		return newConfigError("monitor.collectors", "at least one collector must be enabled (cpu/lsof/process/socket/mysql/redis/nginx)")
	}

	if col.Lsof.Enable && strings.TrimSpace(col.Lsof.Command) == "" {
		return newConfigError("monitor.collectors.lsof.command", "cannot be empty")
	}
	if col.Socket.Enable && strings.TrimSpace(col.Socket.Command) == "" {
		return newConfigError("monitor.collectors.socket.command", "cannot be empty")
	}
	if err := col.MySQL.Validate(); err != nil {
		return err
	}
	if err := col.Redis.Validate(); err != nil {
		return err
	}
	return col.Nginx.Validate()
}

// EnabledNames 已启用的采集器名称
func (col *CollectorConfig) EnabledNames() []string {
	var names []string
	for _, e := range []struct {
		name string
		on   bool
	}{
		{"cpu", col.CPU.Enable},
		{"lsof", col.Lsof.Enable},
		{"process", col.Process.Enable},
		{"socket", col.Socket.Enable},
		{"mysql", col.MySQL.Enable},
		{"redis", col.Redis.Enable},
		{"nginx", col.Nginx.Enable},
	} {
		if e.on {
			names = append(names, e.name)
		}
	}
	return names
}

// Validate 未启用时不校验；启用时至少一个目标，host 必填，名称不可重复
func (c *MySQLConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if len(c.Targets) == 0 {
		return newConfigError("monitor.collectors.mysql.targets", "at least one target is required")
	}
	seen := map[string]bool{}
	for i, t := range c.Targets {
		field := fmt.Sprintf("monitor.collectors.mysql.targets[%d]", i)
		if strings.TrimSpace(t.Host) == "" {
			return newConfigError(field+".host", "cannot be empty")
		}
		if t.Port < 0 || t.Port > 65535 {
			return newConfigError(field+".port", "out of range: %d", t.Port)
		}
		if strings.TrimSpace(t.User) == "" {
			return newConfigError(field+".user", "cannot be empty")
		}
		name := t.DisplayName()
		if seen[name] {
			return newConfigError(field+".name", "duplicated target %q", name)
		}
		seen[name] = true
	}
	return nil
}

// DisplayName 未配置 name 时使用 host:port
func (t MySQLTarget) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return net.JoinHostPort(t.Host, fmt.Sprint(t.PortOrDefault()))
}

// PortOrDefault 端口为 0 时使用 3306
func (t MySQLTarget) PortOrDefault() int {
	if t.Port == 0 {
		return 3306
	}
	return t.Port
}

func (c *RedisConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if len(c.Targets) == 0 {
		return newConfigError("monitor.collectors.redis.targets", "at least one target is required")
	}
	seen := map[string]bool{}
	for i, t := range c.Targets {
		field := fmt.Sprintf("monitor.collectors.redis.targets[%d]", i)
		if strings.TrimSpace(t.Host) == "" {
			return newConfigError(field+".host", "cannot be empty")
		}
		if t.Port < 0 || t.Port > 65535 {
			return newConfigError(field+".port", "out of range: %d", t.Port)
		}
		if t.DB < 0 {
			return newConfigError(field+".db", "cannot be negative")
		}
		name := t.DisplayName()
		if seen[name] {
			return newConfigError(field+".name", "duplicated target %q", name)
		}
		seen[name] = true
	}
	return nil
}

// Addr host:port，端口为 0 时使用 6379
func (t RedisTarget) Addr() string {
	port := t.Port
	if port == 0 {
		port = 6379
	}
	return net.JoinHostPort(t.Host, fmt.Sprint(port))
}

// DisplayName 未配置 name 时使用地址
func (t RedisTarget) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Addr()
}

func (c *NginxConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if len(c.Targets) == 0 {
		return newConfigError("monitor.collectors.nginx.targets", "at least one target is required")
	}
	seen := map[string]bool{}
	for i, t := range c.Targets {
		field := fmt.Sprintf("monitor.collectors.nginx.targets[%d]", i)
		u, err := url.Parse(t.BaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return &ConfigError{Field: field + ".base_url", Reason: fmt.Sprintf("must be an absolute http(s) url, got %q", t.BaseURL), Err: err}
		}
		name := t.DisplayName()
		if seen[name] {
			return newConfigError(field+".name", "duplicated target %q", name)
		}
		seen[name] = true
	}
	return nil
}

// DisplayName 未配置 name 时使用 base_url
func (t NginxTarget) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.BaseURL
}

// Validate 下发配置校验
func (s *SinkConfig) Validate() error {
	if err := valid.Struct(s); err != nil {
		return asConfigError(err)
	}
	seen := map[string]bool{}
	for _, o := range s.Outputs {
		if seen[o] {
			return newConfigError("sink.outputs", "duplicated output %q", o)
		}
		seen[o] = true
	}
	if seen["file"] && strings.TrimSpace(s.FilePath) == "" {
		return newConfigError("sink.file_path", "required when the file output is enabled")
	}
	if seen["memory"] && s.MemorySize <= 0 {
		return newConfigError("sink.memory_size", "must be positive when the memory output is enabled")
	}
	return nil
}
