package collector_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stats-collector/pkg/collector"
	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/source"
)

// fakeStore 按 section 返回 INFO 文本；stats 每次调用取队列中的下一段
type fakeStore struct {
	sections map[string]string
	stats    []string
	calls    int
	pingErr  error
}

func (f *fakeStore) Info(_ context.Context, section string) (string, error) {
	if section != "stats" {
		return f.sections[section], nil
	}
	i := f.calls
	if i >= len(f.stats) {
		i = len(f.stats) - 1
	}
	f.calls++
	return f.stats[i], nil
}

func (f *fakeStore) Ping(context.Context) (time.Duration, error) {
	if f.pingErr != nil {
		return 0, f.pingErr
	}
	return 1500 * time.Microsecond, nil
}

func (f *fakeStore) Close() error { return nil }

func newFakeStore(stats ...string) *fakeStore {
	return &fakeStore{
		sections: map[string]string{
			"server":      "# Server\r\nredis_version:7.2.4\r\nredis_mode:standalone\r\nos:Linux 6.1 x86_64\r\nuptime_in_seconds:3600\r\n",
			"clients":     "# Clients\r\nconnected_clients:12\r\nblocked_clients:1\r\n",
			"memory":      "# Memory\r\nused_memory:2097152\r\nused_memory_peak:3145728\r\ntotal_system_memory:1073741824\r\nmem_fragmentation_ratio:1.25\r\nmem_allocator:jemalloc-5.3.0\r\n",
			"persistence": "# Persistence\r\nrdb_changes_since_last_save:7\r\nrdb_last_save_time:1714560000\r\n",
			"replication": "# Replication\r\nrole:master\r\nconnected_slaves:0\r\n",
			"keyspace":    "# Keyspace\r\ndb10:keys=5,expires=0,avg_ttl=0\r\ndb0:keys=100,expires=3,avg_ttl=5000\r\n",
		},
		stats: stats,
	}
}

func redisStats(hits, misses, inBytes string) string {
	return "# Stats\r\ninstantaneous_ops_per_sec:9\r\ntotal_connections_received:40\r\n" +
		"keyspace_hits:" + hits + "\r\nkeyspace_misses:" + misses + "\r\n" +
		"total_net_input_bytes:" + inBytes + "\r\ntotal_net_output_bytes:0\r\nthis line is broken\r\n"
}

func TestRedisCollector_Records(t *testing.T) {
	fx := newFixture(t)
	store := newFakeStore(redisStats("100", "50", "0"), redisStats("130", "40", "20971520"))
	c := collector.NewRedisCollector(config.RedisConfig{}, config.RedisTarget{Host: "127.0.0.1", Port: 6379}, store, fx.deps)
	require.NoError(t, c.Init())

	require.NoError(t, c.Collect(context.Background()))
	recs := fx.mem.Snapshot("", 0)
	require.Len(t, recs, 4)

	details := recs[0]
	assert.Equal(t, collector.DocRedisDetails, details.DocumentType())
	assert.Equal(t, collector.PluginRedis, details["plugin"])
	assert.Equal(t, "7.2.4", details["version"])
	assert.Equal(t, "None", details["buildId"])
	assert.Equal(t, int64(3600), details["upTime"])
	assert.Equal(t, "master", details["role"])
	assert.Equal(t, 1024.0, details["totalSystemMemory"])
	assert.Equal(t, "None", details["masterLinkDownSinceSecs"])

	stat := recs[1]
	assert.Equal(t, collector.DocRedisStat, stat.DocumentType())
	assert.Equal(t, int64(12), stat["connectedClients"])
	assert.Equal(t, int64(0), stat["keyspaceHits"])
	assert.Equal(t, 0.0, stat["keyspaceHitRate"])
	assert.Equal(t, 0.0, stat["readThroughput"])
	assert.Equal(t, 1.5, stat["latency"])
	assert.Equal(t, 2.0, stat["memoryUsed"])
	assert.Equal(t, 3.0, stat["usedMemoryPeak"])
	assert.Equal(t, 1.25, stat["memFragmentationRatio"])
	assert.Equal(t, int64(105), stat["totKeys"])
	assert.Equal(t, int64(2), stat["totalDatabases"])
	assert.Equal(t, "None", stat["masterLastIOSecsAgo"])

	assert.Equal(t, "db0", recs[2]["name"])
	assert.Equal(t, int64(5000), recs[2]["avgTtl"])
	assert.Equal(t, "db10", recs[3]["name"])
	assert.Equal(t, collector.DocKeyspaceStat, recs[3].DocumentType())

	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.ParseFailures.WithLabelValues("redis/127.0.0.1:6379")))

	require.NoError(t, c.Collect(context.Background()))
	stat = fx.mem.Snapshot(collector.DocRedisStat, 1)[0]
	assert.Equal(t, int64(30), stat["keyspaceHits"])
	assert.Equal(t, int64(-10), stat["keyspaceMisses"])
	assert.Equal(t, 20.0, stat["totalNetInputBytes"])
	assert.Equal(t, 2.0, stat["readThroughput"])
	assert.Equal(t, int64(0), stat["totalConnReceived"])
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.CounterResets.WithLabelValues("redis/127.0.0.1:6379")))
}

func TestRedisCollector_HitRate(t *testing.T) {
	fx := newFixture(t)
	store := newFakeStore(redisStats("100", "50", "0"), redisStats("130", "60", "0"))
	c := collector.NewRedisCollector(config.RedisConfig{DocumentTypes: []string{collector.DocRedisStat}},
		config.RedisTarget{Name: "cache", Host: "127.0.0.1"}, store, fx.deps)

	require.NoError(t, c.Collect(context.Background()))
	require.NoError(t, c.Collect(context.Background()))

	recs := fx.mem.Snapshot("", 0)
	require.Len(t, recs, 2)
	assert.Equal(t, 0.75, recs[1]["keyspaceHitRate"])
	assert.Equal(t, 0.25, recs[1]["keyspaceMissRate"])
	assert.Equal(t, "cache", recs[1]["_target"])
}

func TestRedisCollector_PingFailure(t *testing.T) {
	fx := newFixture(t)
	store := newFakeStore(redisStats("0", "0", "0"))
	store.pingErr = &source.UpstreamError{Source: "redis/cache", Err: context.DeadlineExceeded}
	c := collector.NewRedisCollector(config.RedisConfig{}, config.RedisTarget{Name: "cache"}, store, fx.deps)

	err := c.Collect(context.Background())
	assert.ErrorIs(t, err, source.ErrUpstreamUnavailable)
	assert.Zero(t, fx.mem.Total())
	assert.Zero(t, store.calls)
}

func TestRedisCollector_EmptyInfo(t *testing.T) {
	fx := newFixture(t)
	store := &fakeStore{sections: map[string]string{}, stats: []string{""}}
	c := collector.NewRedisCollector(config.RedisConfig{}, config.RedisTarget{Name: "cache"}, store, fx.deps)

	assert.ErrorIs(t, c.Collect(context.Background()), collector.ErrEmptyResult)
}
