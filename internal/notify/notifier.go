package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/deploy-sentinel/internal/check"
	"github.com/taoyao-code/deploy-sentinel/internal/metrics"
	"github.com/taoyao-code/deploy-sentinel/internal/report"
)

// Notifier 告警决策器：检查报告是否需要通知操作人员。
// 发送失败只记录，绝不影响运行结果；不做跨运行去重——
// 每个含失败的运行恰好触发一次发送尝试（压制告警可能掩盖真实故障）。
type Notifier struct {
	mailer  Mailer
	appName string
	logger  *zap.Logger
	metrics *metrics.AppMetrics
}

// NewNotifier 创建告警决策器。mailer 为 nil 表示未配置邮件，通知直接跳过。
func NewNotifier(mailer Mailer, appName string, logger *zap.Logger, m *metrics.AppMetrics) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{mailer: mailer, appName: appName, logger: logger, metrics: m}
}

// MaybeNotify 当且仅当报告含有 failed 结果且邮件协作方已配置时发送告警
func (n *Notifier) MaybeNotify(ctx context.Context, r *check.HealthReport) {
	failed := r.FailedCount()
	if failed == 0 {
		return
	}

	if n.mailer == nil {
		// 未配置不是错误，只是跳过
		n.logger.Info("alert suppressed: email collaborator not configured",
			zap.Int("failed", failed))
		n.count("skipped")
		return
	}

	html, err := report.RenderEmailHTML(r)
	if err != nil {
		n.logger.Error("alert email render failed", zap.Error(err))
		n.count("error")
		return
	}

	subject := fmt.Sprintf("[%s] %d/%d checks failed — %s",
		n.appName, failed, r.TotalCount(), r.OverallStatus)

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := n.mailer.Send(sendCtx, subject, string(html)); err != nil {
		n.logger.Error("alert email send failed",
			zap.String("subject", subject),
			zap.Error(err))
		n.count("error")
		return
	}

	n.logger.Info("alert email sent",
		zap.Int("failed", failed),
		zap.Int("total", r.TotalCount()),
		zap.String("status", string(r.OverallStatus)))
	n.count("sent")
}

func (n *Notifier) count(result string) {
	if n.metrics != nil {
		n.metrics.NotifyTotal.WithLabelValues(result).Inc()
	}
}
