package storage

import "context"

// Filter 等值过滤条件：列名 -> 期望值。检查套件只需要等值匹配。
type Filter map[string]any

// Row 一行记录
type Row map[string]any

// Store 数据存储协作方。检查引擎只依赖这三个操作：
// 顺序套件用 Insert/Select 制造并验证记录，Cleanup 用 Delete 兜底清理。
type Store interface {
	Select(ctx context.Context, table string, filter Filter, limit int) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) error
	Delete(ctx context.Context, table string, filter Filter) (int64, error)
}

// Unavailable 返回一个所有操作都失败并携带原因的 Store。
// 数据库连接建立失败时注入，让链路检查把真实的连接错误报告出来，
// 而不是在运行途中解引用 nil。
func Unavailable(err error) Store {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) Select(context.Context, string, Filter, int) ([]Row, error) {
	return nil, u.err
}

func (u unavailable) Insert(context.Context, string, Row) error {
	return u.err
}

func (u unavailable) Delete(context.Context, string, Filter) (int64, error) {
	return 0, u.err
}
