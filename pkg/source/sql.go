package source

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/retry"
)

// Row 一行查询结果，列名 -> 值。[]byte 已转换为 string，NULL 为 nil。
type Row map[string]any

// Querier 关系型数据库数据源
type Querier interface {
	// Ping 检查连接，失败时按重试策略重连
	Ping(ctx context.Context) error
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	Close() error
}

// SQLQuerier 基于 database/sql 的 Querier
type SQLQuerier struct {
	name   string
	db     *sql.DB
	policy retry.Policy
}

// NewSQLQuerier 包装一个已打开的 *sql.DB
func NewSQLQuerier(name string, db *sql.DB, policy retry.Policy) *SQLQuerier {
	return &SQLQuerier{name: name, db: db, policy: policy}
}

// MySQLDSN 由监控目标生成 DSN
func MySQLDSN(t config.MySQLTarget, timeout time.Duration) string {
	c := mysql.NewConfig()
	c.User = t.User
	c.Passwd = t.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(t.Host, strconv.Itoa(t.PortOrDefault()))
	c.DBName = t.Database
	if c.DBName == "" {
		c.DBName = "information_schema"
	}
	c.Timeout = timeout
	c.ReadTimeout = timeout
	return c.FormatDSN()
}

// OpenMySQL 打开 MySQL 连接池（不建立连接，首次 Ping 时连接）
func OpenMySQL(t config.MySQLTarget, policy retry.Policy, timeout time.Duration) (*SQLQuerier, error) {
	name := "mysql/" + t.DisplayName()
	db, err := sql.Open("mysql", MySQLDSN(t, timeout))
	if err != nil {
		return nil, upstream(name, err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)
	return NewSQLQuerier(name, db, policy), nil
}

func (q *SQLQuerier) Ping(ctx context.Context) error {
	_, err := retry.Do(ctx, q.policy, q.name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, q.db.PingContext(ctx)
	})
	return upstream(q.name, err)
}

func (q *SQLQuerier) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, upstream(q.name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, upstream(q.name, err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, upstream(q.name, fmt.Errorf("scan: %w", err))
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream(q.name, err)
	}
	return out, nil
}

func (q *SQLQuerier) Close() error {
	return q.db.Close()
}
