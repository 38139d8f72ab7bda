package gormstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taoyao-code/deploy-sentinel/internal/storage"
)

// Store 基于 GORM 的 storage.Store 实现。
// 表名与列名全部来自配置而非请求输入，拼接前仍做引号包裹。
type Store struct {
	db *gorm.DB
}

// Open 连接 Postgres 并返回 Store。
// 连接池规格与 pgx 探测池共用同一份配置；非法值回退到小规格默认。
func Open(dsn string, maxOpen, maxIdle int, maxLifetime time.Duration) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	maxOpen, maxIdle, maxLifetime = poolSizing(maxOpen, maxIdle, maxLifetime)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLifetime)

	return &Store{db: db}, nil
}

// poolSizing 归一化连接池参数，非正值取默认
func poolSizing(maxOpen, maxIdle int, maxLifetime time.Duration) (int, int, time.Duration) {
	if maxOpen <= 0 {
		maxOpen = 5
	}
	if maxIdle <= 0 {
		maxIdle = 2
	}
	if maxLifetime <= 0 {
		maxLifetime = 30 * time.Minute
	}
	return maxOpen, maxIdle, maxLifetime
}

// New 复用已有 *gorm.DB（测试注入用）
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Select 按等值条件查询，limit<=0 表示不限制
func (s *Store) Select(ctx context.Context, table string, filter storage.Filter, limit int) ([]storage.Row, error) {
	var rows []map[string]any
	q := s.db.WithContext(ctx).Table(table)
	if len(filter) > 0 {
		q = q.Where(map[string]any(filter))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]storage.Row, len(rows))
	for i, r := range rows {
		out[i] = storage.Row(r)
	}
	return out, nil
}

// Insert 插入一行
func (s *Store) Insert(ctx context.Context, table string, row storage.Row) error {
	return s.db.WithContext(ctx).Table(table).Create(map[string]any(row)).Error
}

// Delete 按等值条件删除，返回删除行数。
// 空条件直接拒绝，防止清理逻辑误清全表。
func (s *Store) Delete(ctx context.Context, table string, filter storage.Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("delete on %s: empty filter not allowed", table)
	}

	where, args := buildWhere(filter)
	res := s.db.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s", quoteIdent(table), where), args...)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Close 关闭底层连接池
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// buildWhere 将等值条件展开为确定顺序的 WHERE 片段
func buildWhere(filter storage.Filter) (string, []any) {
	cols := make([]string, 0, len(filter))
	for col := range filter {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		parts[i] = quoteIdent(col) + " = ?"
		args[i] = filter[col]
	}
	return strings.Join(parts, " AND "), args
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, ``) + `"`
}

var _ storage.Store = (*Store)(nil)
