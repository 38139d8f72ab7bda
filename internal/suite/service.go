package suite

import (
	"context"

	"go.uber.org/zap"

	"github.com/taoyao-code/deploy-sentinel/internal/check"
	"github.com/taoyao-code/deploy-sentinel/internal/metrics"
	"github.com/taoyao-code/deploy-sentinel/internal/notify"
)

// Service 检查服务：CLI、HTTP 层与定时器共用的运行入口。
// 每次运行结束后更新指标并交由告警决策器判断是否通知。
type Service struct {
	orch         *check.Orchestrator
	notifier     *notify.Notifier
	metrics      *metrics.AppMetrics
	logger       *zap.Logger
	statusChecks []check.Check
	e2eChecks    []check.Check
}

// NewService 创建检查服务。notifier、m 允许为 nil（纯本地运行）。
func NewService(orch *check.Orchestrator, notifier *notify.Notifier, m *metrics.AppMetrics,
	logger *zap.Logger, statusChecks, e2eChecks []check.Check) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orch:         orch,
		notifier:     notifier,
		metrics:      m,
		logger:       logger,
		statusChecks: statusChecks,
		e2eChecks:    e2eChecks,
	}
}

// AppendStatusChecks 在状态检查集尾部追加检查（检查计划文件用）
func (s *Service) AppendStatusChecks(extra []check.Check) {
	s.statusChecks = append(s.statusChecks, extra...)
}

// RunStatus 并行执行状态检查集
func (s *Service) RunStatus(ctx context.Context) *check.HealthReport {
	r := s.orch.RunAll(ctx, check.ModeParallel, s.statusChecks)
	s.finish(ctx, check.ModeParallel, r)
	return r
}

// RunFull 顺序执行端到端链路
func (s *Service) RunFull(ctx context.Context) *check.HealthReport {
	r := s.orch.RunAll(ctx, check.ModeSequential, s.e2eChecks)
	s.finish(ctx, check.ModeSequential, r)
	return r
}

func (s *Service) finish(ctx context.Context, mode check.Mode, r *check.HealthReport) {
	s.observe(mode, r)
	if s.notifier != nil {
		s.notifier.MaybeNotify(ctx, r)
	}
}

func (s *Service) observe(mode check.Mode, r *check.HealthReport) {
	if s.metrics == nil {
		return
	}
	s.metrics.RunTotal.WithLabelValues(string(mode), string(r.OverallStatus)).Inc()
	s.metrics.RunLastStatus.Set(statusGaugeValue(r.OverallStatus))
	for _, o := range r.Outcomes {
		s.metrics.CheckTotal.WithLabelValues(o.Category, string(o.Status)).Inc()
		s.metrics.CheckDuration.WithLabelValues(o.Category).Observe(float64(o.DurationMs) / 1000)
	}
}

func statusGaugeValue(s check.OverallStatus) float64 {
	switch s {
	case check.OverallCritical:
		return 2
	case check.OverallDegraded:
		return 1
	default:
		return 0
	}
}
