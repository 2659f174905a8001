package collector

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/convert"
	"github.com/stats-collector/pkg/delta"
	"github.com/stats-collector/pkg/logger"
	"github.com/stats-collector/pkg/parser"
	"github.com/stats-collector/pkg/record"
	"github.com/stats-collector/pkg/source"
)

const (
	PluginRedis = "redisdb"

	DocRedisDetails = "redisDetails"
	DocRedisStat    = "redisStat"
	DocKeyspaceStat = "keyspaceStat"
)

// redisSections 依次执行 INFO <section>
var redisSections = []string{"server", "clients", "stats", "memory", "persistence", "replication", "keyspace"}

// redisCounters INFO 字段 -> 输出字段，输出本周期增量
var redisCounters = []struct{ info, field string }{
	{"total_connections_received", "totalConnReceived"},
	{"total_commands_processed", "totalCommandsProcessed"},
	{"expired_keys", "expiredKeys"},
	{"evicted_keys", "evictedKeys"},
	{"rejected_connections", "rejectedConn"},
}

var (
	redisDetailsLayout = record.Layout{
		"version":                 convert.None,
		"buildId":                 convert.None,
		"mode":                    convert.None,
		"os":                      convert.None,
		"upTime":                  int64(0),
		"role":                    convert.None,
		"masterLinkStatus":        convert.None,
		"masterLinkDownSinceSecs": convert.None,
		"totalSystemMemory":       0.0,
		"memoryAllocator":         convert.None,
	}
	redisStatLayout = record.Layout{
		"masterLastIOSecsAgo": convert.None,
	}
)

// RedisCollector 单个 Redis 实例的 INFO 指标
type RedisCollector struct {
	base
	store    source.Store
	docTypes []string
}

// NewRedisCollector 每个监控目标一个采集器
func NewRedisCollector(cfg config.RedisConfig, target config.RedisTarget, store source.Store, deps Deps) *RedisCollector {
	name := target.DisplayName()
	return &RedisCollector{
		base:     newBase("redis/"+name, PluginRedis, name, deps),
		store:    store,
		docTypes: cfg.DocumentTypes,
	}
}

func (c *RedisCollector) Init() error { return nil }

func (c *RedisCollector) Collect(ctx context.Context) error {
	return c.runCycle(ctx, func(ctx context.Context, cy *cycle) error {
		latency, err := c.store.Ping(ctx)
		if err != nil {
			return err
		}
		info, err := c.info(ctx, cy)
		if err != nil {
			return err
		}
		if len(info.Values) == 0 {
			return fmt.Errorf("info: %w", ErrEmptyResult)
		}

		stat := c.statFields(cy, info)
		stat["latency"] = convert.Round2(float64(latency.Microseconds()) / 1000)
		keyspaces := keyspaceFields(info)
		var keys int64
		for _, ks := range keyspaces {
			keys += ks["keys"].(int64)
		}
		stat["totKeys"] = keys
		stat["totalDatabases"] = int64(len(keyspaces))

		if record.Allowed(c.docTypes, DocRedisDetails) {
			cy.emit(DocRedisDetails, detailFields(info), redisDetailsLayout)
		}
		if record.Allowed(c.docTypes, DocRedisStat) {
			cy.emit(DocRedisStat, stat, redisStatLayout)
		}
		if record.Allowed(c.docTypes, DocKeyspaceStat) {
			for _, ks := range keyspaces {
				cy.emit(DocKeyspaceStat, ks, nil)
			}
		}
		return nil
	})
}

func (c *RedisCollector) Close() error { return c.store.Close() }

// info 合并各 section 的结果，无法识别的行计入解析失败
func (c *RedisCollector) info(ctx context.Context, cy *cycle) (parser.Info, error) {
	merged := parser.Info{Values: make(map[string]string)}
	for _, section := range redisSections {
		text, err := c.store.Info(ctx, section)
		if err != nil {
			return merged, err
		}
		part := parser.ParseInfo(text)
		for k, v := range part.Values {
			merged.Values[k] = v
		}
		merged.Malformed += part.Malformed
	}
	if merged.Malformed > 0 {
		c.deps.Metrics.ParseFailures.WithLabelValues(c.name).Add(float64(merged.Malformed))
		logger.Warn("skipping unparsable info lines",
			zap.String("collector", c.name),
			zap.String("cycle_id", cy.stamp.CycleID),
			zap.Int("lines", merged.Malformed))
	}
	return merged, nil
}

func detailFields(info parser.Info) map[string]any {
	str := func(key string) any {
		if convert.IsAbsent(info.Get(key)) {
			return nil
		}
		return convert.StringOrDefault(info.Get(key), convert.None)
	}
	fields := map[string]any{
		"version":           str("redis_version"),
		"buildId":           str("redis_build_id"),
		"mode":              str("redis_mode"),
		"os":                str("os"),
		"upTime":            convert.Int64OrDefault(info.Get("uptime_in_seconds"), 0),
		"role":              str("role"),
		"masterLinkStatus":  str("master_link_status"),
		"totalSystemMemory": mb(info.Get("total_system_memory")),
		"memoryAllocator":   str("mem_allocator"),
	}
	if v := info.Get("master_link_down_since_seconds"); !convert.IsAbsent(v) {
		fields["masterLinkDownSinceSecs"] = convert.Int64OrDefault(v, 0)
	}
	return fields
}

func (c *RedisCollector) statFields(cy *cycle, info parser.Info) map[string]any {
	num := func(key string) float64 { return convert.Float64OrDefault(info.Get(key), 0) }
	integer := func(key string) int64 { return convert.Int64OrDefault(info.Get(key), 0) }

	fields := map[string]any{
		"blockedClients":         integer("blocked_clients"),
		"connectedClients":       integer("connected_clients"),
		"instantaneousOpsPerSec": integer("instantaneous_ops_per_sec"),
		"memoryUsed":             mb(info.Get("used_memory")),
		"usedMemoryPeak":         mb(info.Get("used_memory_peak")),
		"memFragmentationRatio":  num("mem_fragmentation_ratio"),
		"lastSaveTime":           integer("rdb_last_save_time"),
		"lastSaveChanges":        integer("rdb_changes_since_last_save"),
		"connectedSlaves":        integer("connected_slaves"),
	}
	if v := info.Get("master_last_io_seconds_ago"); !convert.IsAbsent(v) {
		fields["masterLastIOSecsAgo"] = convert.Int64OrDefault(v, 0)
	}
	for _, m := range redisCounters {
		fields[m.field] = int64(cy.observe(m.field, num(m.info)).Delta)
	}

	hits := cy.observe("keyspaceHits", num("keyspace_hits")).Delta
	misses := cy.observe("keyspaceMisses", num("keyspace_misses")).Delta
	fields["keyspaceHits"] = int64(hits)
	fields["keyspaceMisses"] = int64(misses)
	// 没有访问时两个比例都为 0
	fields["keyspaceHitRate"] = convert.Round2(delta.HitRate(hits, misses))
	fields["keyspaceMissRate"] = convert.Round2(delta.HitRate(misses, hits))

	in := cy.observe("totalNetInputBytes", convert.BytesToMiB(num("total_net_input_bytes")))
	out := cy.observe("totalNetOutputBytes", convert.BytesToMiB(num("total_net_output_bytes")))
	fields["totalNetInputBytes"] = convert.Round2(in.Delta)
	fields["totalNetOutputBytes"] = convert.Round2(out.Delta)
	fields["readThroughput"] = convert.Round2(in.RateOr(0))
	fields["writeThroughput"] = convert.Round2(out.RateOr(0))
	return fields
}

// keyspaceFields 每个 dbN 一条，按库编号排序
func keyspaceFields(info parser.Info) []map[string]any {
	var names []string
	for k := range info.Values {
		if _, err := dbIndex(k); err == nil {
			names = append(names, k)
		}
	}
	slices.SortFunc(names, func(a, b string) int {
		ia, _ := dbIndex(a)
		ib, _ := dbIndex(b)
		return cmp.Compare(ia, ib)
	})

	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		kv := parser.ParseKeyspace(info.Values[name])
		out = append(out, map[string]any{
			"name":    name,
			"keys":    convert.Int64OrDefault(kv["keys"], 0),
			"expires": convert.Int64OrDefault(kv["expires"], 0),
			"avgTtl":  convert.Int64OrDefault(kv["avg_ttl"], 0),
		})
	}
	return out
}

func dbIndex(key string) (int, error) {
	rest, ok := strings.CutPrefix(key, "db")
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(rest)
}

// mb 字节转 MB，保留两位小数
func mb(v any) float64 {
	return convert.Round2(convert.BytesToMiB(convert.Float64OrDefault(v, 0)))
}
