package agent

import (
	"github.com/spf13/cobra"
)

func initMonitorFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	m := defaultCfg.Monitor
	cc := m.Collectors
	p := "monitor.collectors."

	f.Duration("monitor.interval", m.Interval, "-> Collection interval | 采集间隔")
	f.Duration("monitor.command_timeout", m.CommandTimeout, "-> Timeout of a single external call | 单次外部调用超时")
	f.Int("monitor.retry.max_attempts", m.Retry.MaxAttempts, "-> Connection attempts for MySQL/Redis | 连接最大尝试次数")
	f.Duration("monitor.retry.delay", m.Retry.Delay, "-> Delay between connection attempts | 重试间隔")

	f.Bool(p+"cpu.enable", cc.CPU.Enable, "-> Enable cpu collector | 启用 CPU 采集")
	f.Bool(p+"cpu.collect_per_core", cc.CPU.CollectPerCore, "-> Emit per-core usage | 按每核心输出")

	f.Bool(p+"lsof.enable", cc.Lsof.Enable, "-> Enable lsof collector | 启用打开文件采集")
	f.String(p+"lsof.command", cc.Lsof.Command, "-> lsof command line | lsof 命令")

	f.Bool(p+"process.enable", cc.Process.Enable, "-> Enable ps collector | 启用进程采集")
	f.Int(p+"process.num_processes", cc.Process.NumProcesses, "-> Top N processes, 0 for all | 输出前 N 个进程")
	f.String(p+"process.sort_by", cc.Process.SortBy, "-> Sort processes by [cpu,mem] | 排序字段")

	f.Bool(p+"socket.enable", cc.Socket.Enable, "-> Enable netstat collector | 启用套接字采集")
	f.String(p+"socket.command", cc.Socket.Command, "-> netstat command line | netstat 命令")

	f.Bool(p+"mysql.enable", cc.MySQL.Enable, "-> Enable MySQL collector (targets from config file) | 启用 MySQL 采集")
	f.Int(p+"mysql.table_limit", cc.MySQL.TableLimit, "-> Max tables per database, 0 for unlimited | 每个库最多输出的表数量")
	f.StringSlice(p+"mysql.document_types", cc.MySQL.DocumentTypes, "-> MySQL record types to emit | 输出的记录类型")

	f.Bool(p+"redis.enable", cc.Redis.Enable, "-> Enable Redis collector (targets from config file) | 启用 Redis 采集")
	f.StringSlice(p+"redis.document_types", cc.Redis.DocumentTypes, "-> Redis record types to emit | 输出的记录类型")

	f.Bool(p+"nginx.enable", cc.Nginx.Enable, "-> Enable NGINX Plus collector (targets from config file) | 启用 NGINX Plus 采集")
	f.StringSlice(p+"nginx.document_types", cc.Nginx.DocumentTypes, "-> NGINX record types to emit | 输出的记录类型")
}
