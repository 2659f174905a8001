package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/convert"
	"github.com/stats-collector/pkg/delta"
	"github.com/stats-collector/pkg/record"
	"github.com/stats-collector/pkg/source"
)

const (
	PluginMySQL = "mysql"

	DocServerDetails   = "serverDetails"
	DocDatabaseDetails = "databaseDetails"
	DocTableDetails    = "tableDetails"
)

const (
	globalStatusQuery = "SHOW GLOBAL STATUS"

	schemaQuery = `SELECT s.SCHEMA_NAME AS dbName,
	COUNT(t.TABLE_NAME) AS numTables,
	SUM(t.DATA_LENGTH + t.INDEX_LENGTH) AS dbSize,
	SUM(t.INDEX_LENGTH) AS indexSize,
	SUM(t.DATA_FREE) AS dataFree,
	SUM(t.DATA_LENGTH) AS dataLen
FROM information_schema.SCHEMATA s
LEFT JOIN information_schema.TABLES t ON t.TABLE_SCHEMA = s.SCHEMA_NAME
WHERE s.SCHEMA_NAME NOT IN ('information_schema', 'performance_schema', 'mysql', 'sys')
GROUP BY s.SCHEMA_NAME
ORDER BY s.SCHEMA_NAME`

	tableQuery = `SELECT TABLE_NAME AS tableName,
	TABLE_SCHEMA AS dbName,
	ENGINE AS engine,
	DATA_FREE AS dataFree,
	DATA_LENGTH AS dataLen,
	INDEX_LENGTH AS indexSize,
	TABLE_ROWS AS tableRows
FROM information_schema.TABLES
WHERE TABLE_SCHEMA = ?
ORDER BY TABLE_NAME`
)

// mysqlCounters 状态变量 -> 输出字段，输出本周期增量
var mysqlCounters = []struct{ status, field string }{
	{"CONNECTIONS", "numConnections"},
	{"ABORTED_CONNECTS", "numAbortedConnects"},
	{"THREADS_CREATED", "threadsCreated"},
	{"CREATED_TMP_FILES", "numCreatedTempFiles"},
	{"CREATED_TMP_TABLES", "numCreatedTempTables"},
	{"QUERIES", "numQueries"},
	{"COM_SELECT", "numSelect"},
	{"COM_INSERT", "numInsert"},
	{"COM_UPDATE", "numUpdate"},
	{"COM_DELETE", "numDelete"},
	{"SLOW_QUERIES", "slowQueries"},
	{"QCACHE_HITS", "qcacheHits"},
	{"QCACHE_INSERTS", "qcacheInserts"},
}

var (
	tableLayout = record.Layout{
		"_tableName": convert.None,
		"_dbName":    convert.None,
		"_engine":    convert.None,
		"dataFree":   0.0,
		"dataLen":    0.0,
		"indexSize":  0.0,
		"tableRows":  int64(0),
	}
	databaseLayout = record.Layout{
		"_dbName":   convert.None,
		"dbSize":    0.0,
		"numTables": int64(0),
		"indexSize": 0.0,
		"dataFree":  0.0,
		"dataLen":   0.0,
	}
)

// MySQLCollector 单个 MySQL 实例的服务端/库/表指标
type MySQLCollector struct {
	base
	q          source.Querier
	docTypes   []string
	tableLimit int
}

// NewMySQLCollector 每个监控目标一个采集器
func NewMySQLCollector(cfg config.MySQLConfig, target config.MySQLTarget, q source.Querier, deps Deps) *MySQLCollector {
	name := target.DisplayName()
	return &MySQLCollector{
		base:       newBase("mysql/"+name, PluginMySQL, name, deps),
		q:          q,
		docTypes:   cfg.DocumentTypes,
		tableLimit: cfg.TableLimit,
	}
}

func (c *MySQLCollector) Init() error { return nil }

func (c *MySQLCollector) Collect(ctx context.Context) error {
	return c.runCycle(ctx, func(ctx context.Context, cy *cycle) error {
		if err := c.q.Ping(ctx); err != nil {
			return err
		}
		status, err := c.globalStatus(ctx)
		if err != nil {
			return err
		}
		schemas, err := c.q.Query(ctx, schemaQuery)
		if err != nil {
			return err
		}
		if len(schemas) == 0 {
			return fmt.Errorf("no databases: %w", ErrEmptyResult)
		}

		server := c.serverFields(cy, status)
		server["numDatabases"] = int64(len(schemas))
		var dbSize, indexSize float64
		databases := make([]map[string]any, 0, len(schemas))
		for _, s := range schemas {
			db := databaseFields(s)
			dbSize += db["dbSize"].(float64)
			indexSize += db["indexSize"].(float64)
			databases = append(databases, db)
		}
		server["dbSize"] = convert.Round2(dbSize)
		server["indexSize"] = convert.Round2(indexSize)

		if record.Allowed(c.docTypes, DocServerDetails) {
			cy.emit(DocServerDetails, server, nil)
		}
		for _, db := range databases {
			if record.Allowed(c.docTypes, DocDatabaseDetails) {
				cy.emit(DocDatabaseDetails, db, databaseLayout)
			}
			if !record.Allowed(c.docTypes, DocTableDetails) {
				continue
			}
			tables, err := c.tables(ctx, db["_dbName"].(string))
			if err != nil {
				return err
			}
			for _, t := range tables {
				cy.emit(DocTableDetails, tableFields(t), tableLayout)
			}
		}
		return nil
	})
}

func (c *MySQLCollector) Close() error { return c.q.Close() }

// globalStatus 状态变量名统一转为大写
func (c *MySQLCollector) globalStatus(ctx context.Context) (map[string]any, error) {
	rows, err := c.q.Query(ctx, globalStatusQuery)
	if err != nil {
		return nil, err
	}
	status := make(map[string]any, len(rows))
	for _, r := range rows {
		name := convert.StringOrDefault(r["Variable_name"], "")
		if name == "" {
			continue
		}
		status[strings.ToUpper(name)] = r["Value"]
	}
	if len(status) == 0 {
		return nil, fmt.Errorf("global status: %w", ErrEmptyResult)
	}
	return status, nil
}

func (c *MySQLCollector) tables(ctx context.Context, db string) ([]source.Row, error) {
	if c.tableLimit > 0 {
		return c.q.Query(ctx, tableQuery+" LIMIT ?", db, c.tableLimit)
	}
	return c.q.Query(ctx, tableQuery, db)
}

func (c *MySQLCollector) serverFields(cy *cycle, status map[string]any) map[string]any {
	num := func(key string) float64 { return convert.Float64OrDefault(status[key], 0) }

	fields := map[string]any{
		"threadsConnected": convert.Int64OrDefault(status["THREADS_CONNECTED"], 0),
		"threadsCached":    convert.Int64OrDefault(status["THREADS_CACHED"], 0),
		"threadsRunning":   convert.Int64OrDefault(status["THREADS_RUNNING"], 0),
		"upTime":           convert.Round2(num("UPTIME") / 3600),
		"qhitRate":         convert.Round2(delta.HitRate(num("QCACHE_HITS"), num("COM_SELECT"))),
	}
	// 流量按 MB/s 输出
	fields["bytesReceivedMB"] = convert.Round2(cy.observe("bytesReceivedMB", convert.BytesToMiB(num("BYTES_RECEIVED"))).RateOr(0))
	fields["bytesSentMB"] = convert.Round2(cy.observe("bytesSentMB", convert.BytesToMiB(num("BYTES_SENT"))).RateOr(0))
	for _, m := range mysqlCounters {
		fields[m.field] = int64(cy.observe(m.field, num(m.status)).Delta)
	}
	return fields
}

func databaseFields(r source.Row) map[string]any {
	mb := func(key string) float64 {
		return convert.Round2(convert.BytesToMiB(convert.Float64OrDefault(r[key], 0)))
	}
	return map[string]any{
		"_dbName":   convert.StringOrDefault(r["dbName"], convert.None),
		"dbSize":    mb("dbSize"),
		"numTables": convert.Int64OrDefault(r["numTables"], 0),
		"indexSize": mb("indexSize"),
		"dataFree":  mb("dataFree"),
		"dataLen":   mb("dataLen"),
	}
}

// tableFields NULL 列保持为 nil，由 tableLayout 补默认值
func tableFields(r source.Row) map[string]any {
	opt := func(key string, conv func(any) any) any {
		if convert.IsAbsent(r[key]) {
			return nil
		}
		return conv(r[key])
	}
	str := func(v any) any { return convert.StringOrDefault(v, convert.None) }
	mb := func(v any) any { return convert.Round2(convert.BytesToMiB(convert.Float64OrDefault(v, 0))) }
	return map[string]any{
		"_tableName": opt("tableName", str),
		"_dbName":    opt("dbName", str),
		"_engine":    opt("engine", str),
		"dataFree":   opt("dataFree", mb),
		"dataLen":    opt("dataLen", mb),
		"indexSize":  opt("indexSize", mb),
		"tableRows":  opt("tableRows", func(v any) any { return convert.Int64OrDefault(v, 0) }),
	}
}
