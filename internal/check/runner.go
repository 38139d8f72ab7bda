package check

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrTimeout 检查超出自身 deadline。
// 错误文案固定为 "Timeout"，JSON 消费方依赖该值。
var ErrTimeout = errors.New("Timeout")

// Runner 单项检查执行器：负责超时控制与异常兜底。
// 任何探测抛出的错误（断言失败、网络错误、panic）都会被转换为
// 结构化 Outcome，绝不向调用方传播。
type Runner struct {
	logger *zap.Logger
}

// NewRunner 创建执行器
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

// Execute 执行单项检查。
// rc 为 nil 时使用全新的空 RunContext（并行模式）；顺序模式传入共享实例。
// 无论结果如何都会记录耗时。
func (r *Runner) Execute(ctx context.Context, c Check, rc *RunContext) Outcome {
	start := time.Now()

	if rc == nil {
		rc = NewRunContext()
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 缓冲为 1：超时后探测 goroutine 仍可写入并退出，不会泄漏
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("panic: %v", p)
			}
		}()
		done <- c.Probe(ctx, rc)
	}()

	var failure error
	select {
	case err := <-done:
		failure = err
	case <-ctx.Done():
		// 依赖底层协作方（HTTP/数据库客户端）的取消契约释放连接
		failure = ErrTimeout
	}

	out := Outcome{
		Category:   c.Category,
		Name:       c.Name,
		Status:     StatusPassed,
		DurationMs: time.Since(start).Milliseconds(),
	}

	if failure != nil {
		if c.Required {
			out.Status = StatusFailed
		} else {
			out.Status = StatusSkipped
		}
		out.Error = failure.Error()
		r.logger.Warn("check did not pass",
			zap.String("category", c.Category),
			zap.String("name", c.Name),
			zap.String("status", string(out.Status)),
			zap.String("error", out.Error),
			zap.Int64("duration_ms", out.DurationMs))
	}

	return out
}
