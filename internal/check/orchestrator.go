package check

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CleanupFunc 顺序运行结束后的清理钩子。尽力而为：
// 实现方自行消化错误（记录日志），不得影响报告结果。
type CleanupFunc func(ctx context.Context, rc *RunContext)

// Orchestrator 检查编排器：按指定模式执行一批检查并产出健康报告。
// 检查与清理内部的任何错误都不会中断批次；编排器自身不返回错误。
type Orchestrator struct {
	runner  *Runner
	agg     *Aggregator
	cleanup CleanupFunc
	logger  *zap.Logger

	// seqMu 串行化顺序运行：RunContext 只允许被一个在途运行独占
	seqMu sync.Mutex
}

// NewOrchestrator 创建编排器。cleanup 可为 nil。
func NewOrchestrator(runner *Runner, agg *Aggregator, cleanup CleanupFunc, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		runner:  runner,
		agg:     agg,
		cleanup: cleanup,
		logger:  logger,
	}
}

// RunAll 执行一批检查并返回健康报告。
//
// 并行模式：所有检查并发启动（fan-out），各自持有独立 RunContext，
// 等待全部完成后聚合（fan-in），结果保持声明顺序。
//
// 顺序模式：严格按声明顺序执行，共享同一 RunContext；失败不短路，
// 后续检查照常执行（读取缺失键的检查应自行快速失败）。批次结束后
// 无条件调用 Cleanup。同一时间只允许一个顺序运行在途，并发调用排队。
func (o *Orchestrator) RunAll(ctx context.Context, mode Mode, checks []Check) *HealthReport {
	startedAt := time.Now()
	outcomes := make([]Outcome, len(checks))

	switch mode {
	case ModeSequential:
		o.seqMu.Lock()
		rc := NewRunContext()
		for i, c := range checks {
			outcomes[i] = o.runner.Execute(ctx, c, rc)
		}
		o.runCleanup(ctx, rc)
		o.seqMu.Unlock()
	default:
		var wg sync.WaitGroup
		for i, c := range checks {
			wg.Add(1)
			go func(i int, c Check) {
				defer wg.Done()
				// 并行检查之间不允许共享状态，各自一份空上下文
				outcomes[i] = o.runner.Execute(ctx, c, nil)
			}(i, c)
		}
		wg.Wait()
	}

	report := o.agg.Aggregate(outcomes)
	report.StartedAt = startedAt
	report.EndedAt = time.Now()
	report.DurationMs = report.EndedAt.Sub(startedAt).Milliseconds()

	o.logger.Info("check batch finished",
		zap.String("mode", string(mode)),
		zap.String("status", string(report.OverallStatus)),
		zap.Int("total", report.TotalCount()),
		zap.Int("failed", report.FailedCount()),
		zap.Int64("duration_ms", report.DurationMs))

	return report
}

// runCleanup 调用清理钩子。钩子 panic 只记录，不影响报告。
func (o *Orchestrator) runCleanup(ctx context.Context, rc *RunContext) {
	if o.cleanup == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("cleanup panicked", zap.Any("panic", p))
		}
	}()
	o.cleanup(ctx, rc)
}
