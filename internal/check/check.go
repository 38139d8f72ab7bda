package check

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Status 单项检查结果状态
type Status string

const (
	StatusPassed  Status = "passed"  // 通过
	StatusFailed  Status = "failed"  // 失败（required 检查失败）
	StatusSkipped Status = "skipped" // 跳过（可选检查失败时记为跳过）
)

// OverallStatus 整体状态，严重度递增：ok < degraded < critical
type OverallStatus string

const (
	OverallOK       OverallStatus = "ok"
	OverallDegraded OverallStatus = "degraded"
	OverallCritical OverallStatus = "critical"
)

// Mode 批次执行模式
type Mode string

const (
	// ModeParallel 并行独立模式：所有检查并发执行，各自使用独立 RunContext
	ModeParallel Mode = "parallel"
	// ModeSequential 顺序有状态模式：按声明顺序执行，共享同一 RunContext
	ModeSequential Mode = "sequential"
)

// DefaultTimeout 单项检查默认超时
const DefaultTimeout = 10 * time.Second

// ProbeFunc 探测函数。返回 nil 表示通过；任何 error 都会被执行器
// 转换为结构化结果，不会向上传播。
type ProbeFunc func(ctx context.Context, rc *RunContext) error

// Check 一个命名的校验单元。定义在编排开始时创建，单次运行内不可变。
type Check struct {
	Name     string        // 检查名（分类内唯一）
	Category string        // 分类，如 "Demo"、"Supabase"
	Required bool          // false 时失败记为 skipped 而非 failed
	Timeout  time.Duration // 为零时使用 DefaultTimeout
	Probe    ProbeFunc
}

// Outcome 单项检查的执行结果，生成后不可变
type Outcome struct {
	Category   string `json:"category"`
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// RunContext 一次顺序运行内共享的键值暂存区。
// 由 Orchestrator 独占持有，运行结束（Cleanup 之后）即废弃，
// 绝不跨运行、跨并行检查共享。
type RunContext struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewRunContext 创建空的 RunContext
func NewRunContext() *RunContext {
	return &RunContext{values: make(map[string]string)}
}

// Set 写入键值
func (c *RunContext) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Get 读取键值
func (c *RunContext) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// MustGet 读取键值，键不存在时返回描述性错误。
// 链式检查依赖前序检查写入的值时应使用本方法快速失败，而不是崩溃。
func (c *RunContext) MustGet(key string) (string, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	return "", fmt.Errorf("run context: key %q not set (earlier check failed or missing)", key)
}

// Delete 删除键
func (c *RunContext) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

// Keys 返回当前全部键（排序后）
func (c *RunContext) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len 当前键数量
func (c *RunContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
