package collector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stats-collector/pkg/collector"
	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/record"
	"github.com/stats-collector/pkg/retry"
	"github.com/stats-collector/pkg/source"
)

const mb = 1024 * 1024

func newMySQL(t *testing.T, fx *fixture, cfg config.MySQLConfig) (*collector.MySQLCollector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	q := source.NewSQLQuerier("mysql/primary", db, retry.Policy{})
	c := collector.NewMySQLCollector(cfg, config.MySQLTarget{Name: "primary", Host: "10.0.0.1"}, q, fx.deps)
	t.Cleanup(func() { _ = c.Close() })
	return c, mock
}

func statusRows(kv ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"Variable_name", "Value"})
	for i := 0; i+1 < len(kv); i += 2 {
		rows.AddRow(kv[i], kv[i+1])
	}
	return rows
}

func schemaRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"dbName", "numTables", "dbSize", "indexSize", "dataFree", "dataLen"}).
		AddRow("shop", 2, 3*mb, 1*mb, nil, 2*mb)
}

func TestMySQLCollector_CountersStartFromBaseline(t *testing.T) {
	fx := newFixture(t)
	c, mock := newMySQL(t, fx, config.MySQLConfig{DocumentTypes: []string{collector.DocServerDetails}})

	mock.ExpectQuery("SHOW GLOBAL STATUS").WillReturnRows(statusRows(
		"Uptime", "7200", "Threads_connected", "3", "Bytes_received", "10485760",
		"Connections", "50", "Com_select", "100", "Qcache_hits", "300"))
	mock.ExpectQuery("information_schema.SCHEMATA").WillReturnRows(schemaRows())
	mock.ExpectQuery("SHOW GLOBAL STATUS").WillReturnRows(statusRows(
		"Uptime", "7210", "Threads_connected", "4", "Bytes_received", "20971520",
		"Connections", "55", "Com_select", "150", "Qcache_hits", "300"))
	mock.ExpectQuery("information_schema.SCHEMATA").WillReturnRows(schemaRows())

	require.NoError(t, c.Collect(context.Background()))
	first := fx.mem.Snapshot("", 0)
	require.Len(t, first, 1)
	srv := first[0]
	assert.Equal(t, collector.DocServerDetails, srv.DocumentType())
	assert.Equal(t, "primary", srv[record.FieldTarget])
	assert.Equal(t, collector.PluginMySQL, srv[record.FieldActualPluginType])
	assert.Equal(t, 2.0, srv["upTime"])
	assert.Equal(t, int64(3), srv["threadsConnected"])
	assert.Equal(t, int64(0), srv["numConnections"])
	assert.Equal(t, int64(0), srv["numSelect"])
	assert.Equal(t, 0.0, srv["bytesReceivedMB"])
	assert.Equal(t, 0.75, srv["qhitRate"])
	assert.Equal(t, int64(1), srv["numDatabases"])
	assert.Equal(t, 3.0, srv["dbSize"])
	assert.Equal(t, 1.0, srv["indexSize"])

	require.NoError(t, c.Collect(context.Background()))
	srv = fx.mem.Snapshot("", 1)[0]
	assert.Equal(t, int64(5), srv["numConnections"])
	assert.Equal(t, int64(50), srv["numSelect"])
	assert.Equal(t, 1.0, srv["bytesReceivedMB"])
	assert.Equal(t, 0.67, srv["qhitRate"])
	// 状态中没有的变量按 0 处理
	assert.Equal(t, int64(0), srv["slowQueries"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCollector_DatabaseAndTableDetails(t *testing.T) {
	fx := newFixture(t)
	c, mock := newMySQL(t, fx, config.MySQLConfig{TableLimit: 100})

	mock.ExpectQuery("SHOW GLOBAL STATUS").WillReturnRows(statusRows("Uptime", "60"))
	mock.ExpectQuery("information_schema.SCHEMATA").WillReturnRows(schemaRows())
	mock.ExpectQuery("FROM information_schema.TABLES").WithArgs("shop", 100).WillReturnRows(
		sqlmock.NewRows([]string{"tableName", "dbName", "engine", "dataFree", "dataLen", "indexSize", "tableRows"}).
			AddRow("orders", "shop", "InnoDB", nil, 2*mb, 1*mb, 42).
			AddRow("v_orders", "shop", nil, nil, nil, nil, nil))

	require.NoError(t, c.Collect(context.Background()))
	recs := fx.mem.Snapshot("", 0)
	require.Len(t, recs, 4)
	assert.Equal(t, collector.DocServerDetails, recs[0].DocumentType())

	db := recs[1]
	assert.Equal(t, collector.DocDatabaseDetails, db.DocumentType())
	assert.Equal(t, "shop", db["_dbName"])
	assert.Equal(t, int64(2), db["numTables"])
	assert.Equal(t, 0.0, db["dataFree"])
	assert.Equal(t, 2.0, db["dataLen"])

	orders := recs[2]
	assert.Equal(t, collector.DocTableDetails, orders.DocumentType())
	assert.Equal(t, "orders", orders["_tableName"])
	assert.Equal(t, "InnoDB", orders["_engine"])
	assert.Equal(t, 2.0, orders["dataLen"])
	assert.Equal(t, 0.0, orders["dataFree"])
	assert.Equal(t, int64(42), orders["tableRows"])

	view := recs[3]
	assert.Equal(t, "v_orders", view["_tableName"])
	assert.Equal(t, "None", view["_engine"])
	assert.Equal(t, int64(0), view["tableRows"])
	assert.Equal(t, 0.0, view["indexSize"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCollector_NoDatabasesIsEmptyResult(t *testing.T) {
	fx := newFixture(t)
	c, mock := newMySQL(t, fx, config.MySQLConfig{})

	mock.ExpectQuery("SHOW GLOBAL STATUS").WillReturnRows(statusRows("Uptime", "60"))
	mock.ExpectQuery("information_schema.SCHEMATA").WillReturnRows(
		sqlmock.NewRows([]string{"dbName", "numTables", "dbSize", "indexSize", "dataFree", "dataLen"}))

	err := c.Collect(context.Background())
	assert.ErrorIs(t, err, collector.ErrEmptyResult)
	assert.Zero(t, fx.mem.Total())
}

func TestMySQLCollector_QueryErrorDiscardsCycle(t *testing.T) {
	fx := newFixture(t)
	c, mock := newMySQL(t, fx, config.MySQLConfig{DocumentTypes: []string{collector.DocServerDetails}})

	mock.ExpectQuery("SHOW GLOBAL STATUS").WillReturnRows(statusRows("Connections", "50"))
	mock.ExpectQuery("information_schema.SCHEMATA").WillReturnError(errors.New("lost connection"))
	mock.ExpectQuery("SHOW GLOBAL STATUS").WillReturnRows(statusRows("Connections", "70"))
	mock.ExpectQuery("information_schema.SCHEMATA").WillReturnRows(schemaRows())
	mock.ExpectQuery("SHOW GLOBAL STATUS").WillReturnRows(statusRows("Connections", "75"))
	mock.ExpectQuery("information_schema.SCHEMATA").WillReturnRows(schemaRows())

	err := c.Collect(context.Background())
	assert.ErrorIs(t, err, source.ErrUpstreamUnavailable)
	assert.Zero(t, fx.mem.Total())

	// 失败周期的观测值不会成为基线
	require.NoError(t, c.Collect(context.Background()))
	assert.Equal(t, int64(0), fx.mem.Snapshot("", 1)[0]["numConnections"])
	require.NoError(t, c.Collect(context.Background()))
	assert.Equal(t, int64(5), fx.mem.Snapshot("", 1)[0]["numConnections"])
}
