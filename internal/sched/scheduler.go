package sched

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunFunc 一次定时运行
type RunFunc func(ctx context.Context)

// Scheduler 按固定间隔触发检查运行。
// 运行本身由 RunFunc 消化错误与告警，调度器只负责节拍。
type Scheduler struct {
	interval time.Duration
	run      RunFunc
	logger   *zap.Logger
}

// New 创建调度器。interval<=0 时回退到 24h。
func New(interval time.Duration, run RunFunc, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{interval: interval, run: run, logger: logger}
}

// Start 阻塞运行调度循环，直到 ctx 取消。
// 启动时立即触发一次，之后按间隔触发；两次触发不会重叠
// （上一次运行未结束时下一拍顺延）。
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}
