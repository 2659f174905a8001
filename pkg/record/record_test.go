package record_test

import (
	"testing"
	"time"

	"github.com/stats-collector/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.UnixMilli(1700000000123)

func TestAssemble_CommonTagsAndDefaults(t *testing.T) {
	a := record.NewAssembler("mysql", "db-host", record.WithClock(func() time.Time { return fixed }), record.WithTarget("primary"))
	st := a.NewStamp()
	require.NotEmpty(t, st.CycleID)

	layout := record.Layout{"dbSize": 0.0, "numTables": int64(0), "_dbName": "None"}
	r := a.Assemble(st, "databaseDetails", map[string]any{"_dbName": "shop", "numTables": nil}, layout)

	assert.Equal(t, int64(1700000000123), r[record.FieldTimestamp])
	assert.Equal(t, "mysql", r[record.FieldPlugin])
	assert.Equal(t, "mysql", r[record.FieldActualPluginType])
	assert.Equal(t, "databaseDetails", r.DocumentType())
	assert.Equal(t, "db-host", r[record.FieldHostname])
	assert.Equal(t, "primary", r[record.FieldTarget])
	assert.Equal(t, st.CycleID, r[record.FieldCycleID])

	assert.Equal(t, "shop", r["_dbName"])
	assert.Equal(t, int64(0), r["numTables"])
	assert.Equal(t, 0.0, r["dbSize"])
}

func TestAssemble_CommonTagsCannotBeOverridden(t *testing.T) {
	a := record.NewAssembler("psstats", "h1")
	r := a.Assemble(a.NewStamp(), "process_stats", map[string]any{record.FieldPlugin: "spoofed"}, nil)
	assert.Equal(t, "psstats", r[record.FieldPlugin])
	_, hasTarget := r[record.FieldTarget]
	assert.False(t, hasTarget)
}

func TestAssembleBatch_PreservesOrder(t *testing.T) {
	a := record.NewAssembler("psstats", "h1")
	st := a.NewStamp()
	rows := []map[string]any{{"pid": 3}, {"pid": 1}, {"pid": 2}}

	out := a.AssembleBatch(st, "process_stats", rows, nil)
	require.Len(t, out, 3)
	for i, want := range []int{3, 1, 2} {
		assert.Equal(t, want, out[i]["pid"])
		assert.Equal(t, st.CycleID, out[i][record.FieldCycleID])
	}
}

func TestAllowed(t *testing.T) {
	assert.True(t, record.Allowed(nil, "serverDetails"))
	assert.True(t, record.Allowed([]string{"serverDetails"}, "serverDetails"))
	assert.False(t, record.Allowed([]string{"tableDetails"}, "serverDetails"))
}
