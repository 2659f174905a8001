package sink_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/logger"
	"github.com/stats-collector/pkg/record"
	"github.com/stats-collector/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func rec(docType string, n int) record.Record {
	return record.Record{
		record.FieldPlugin:       "psstats",
		record.FieldDocumentType: docType,
		"order":                  n,
	}
}

func TestMemory_RingKeepsNewest(t *testing.T) {
	m := sink.NewMemory(3)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, m.Dispatch(ctx, rec("process_stats", i)))
	}

	got := m.Snapshot("", 0)
	require.Len(t, got, 3)
	assert.Equal(t, 3, got[0]["order"])
	assert.Equal(t, 4, got[1]["order"])
	assert.Equal(t, 5, got[2]["order"])
	assert.Equal(t, uint64(5), m.Total())
}

func TestMemory_SnapshotFilterAndLimit(t *testing.T) {
	m := sink.NewMemory(10)
	ctx := context.Background()
	_ = m.Dispatch(ctx, rec("a", 1))
	_ = m.Dispatch(ctx, rec("b", 2))
	_ = m.Dispatch(ctx, rec("a", 3))
	_ = m.Dispatch(ctx, rec("a", 4))

	got := m.Snapshot("a", 2)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0]["order"])
	assert.Equal(t, 4, got[1]["order"])

	assert.Empty(t, sink.NewMemory(2).Snapshot("", 0))
}

func TestFile_WritesJSONLines(t *testing.T) {
	f, err := sink.NewFile(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, f.Dispatch(ctx, rec("netstats", 1)))
	require.NoError(t, f.Dispatch(ctx, rec("netstats", 2)))
	name := f.CurrentFileName()
	require.NoError(t, f.Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "netstats", first[record.FieldDocumentType])
	assert.Equal(t, float64(1), first["order"])

	assert.ErrorIs(t, f.Dispatch(ctx, rec("netstats", 3)), sink.ErrClosed)
}

func TestLog_WritesRecord(t *testing.T) {
	t.Cleanup(func() { logger.SetLogger(nil) })
	core, logs := observer.New(zapcore.InfoLevel)
	logger.SetLogger(zap.New(core))

	require.NoError(t, sink.NewLog().Dispatch(context.Background(), rec("lsof_stats", 1)))
	entries := logs.FilterMessage("record").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "lsof_stats", entries[0].ContextMap()["document_type"])
	assert.Equal(t, "psstats", entries[0].ContextMap()["plugin"])
}

type failing struct{ closed bool }

func (*failing) Name() string { return "failing" }
func (*failing) Dispatch(context.Context, record.Record) error {
	return errors.New("downstream full")
}
func (f *failing) Close() error { f.closed = true; return nil }

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	mem := sink.NewMemory(5)
	bad := &failing{}
	m := sink.NewMulti(bad, mem)

	err := m.Dispatch(context.Background(), rec("x", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink failing")
	assert.Len(t, mem.Snapshot("", 0), 1)

	require.NoError(t, m.Close())
	assert.True(t, bad.closed)
}

func TestNew_FromConfig(t *testing.T) {
	m, mem, err := sink.New(config.SinkConfig{
		Outputs:    []string{"log", "file", "memory"},
		FilePath:   t.TempDir(),
		MemorySize: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, mem)
	require.NoError(t, m.Dispatch(context.Background(), rec("x", 1)))
	assert.Len(t, mem.Snapshot("", 0), 1)
	require.NoError(t, m.Close())

	_, _, err = sink.New(config.SinkConfig{Outputs: []string{"kafka"}})
	assert.Error(t, err)
}
