package suite

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/deploy-sentinel/internal/check"
	cfgpkg "github.com/taoyao-code/deploy-sentinel/internal/config"
	"github.com/taoyao-code/deploy-sentinel/internal/metrics"
	"github.com/taoyao-code/deploy-sentinel/internal/probe"
	"github.com/taoyao-code/deploy-sentinel/internal/storage"
)

// 顺序链路在 RunContext 中传递的键
const (
	KeySessionID      = "session_id"
	KeyDashboardToken = "dashboard_token"
	KeyEventCount     = "event_count"
)

// E2EDeps 端到端链路的外部协作方
type E2EDeps struct {
	Probe *probe.Client
	Store storage.Store
}

// BuildE2EChecks 构建顺序端到端链路：写入真实会话行、登录后台、
// 写入事件并验证可见性。链路各步通过 RunContext 传递会话 ID 与令牌，
// 前序失败时后续步骤因键缺失快速失败，但仍然全部执行。
func BuildE2EChecks(cfg *cfgpkg.Config, deps E2EDeps) []check.Check {
	store := deps.Store
	client := deps.Probe
	sessionTable := cfg.Checks.SessionTable
	eventTable := cfg.Checks.EventTable

	checks := []check.Check{
		{
			Name:     "Create Session",
			Category: "Database",
			Required: true,
			Probe: func(ctx context.Context, rc *check.RunContext) error {
				id := uuid.NewString()
				err := store.Insert(ctx, sessionTable, storage.Row{
					"id":         id,
					"source":     "deploy-sentinel",
					"created_at": time.Now().UTC(),
				})
				if err != nil {
					return err
				}
				rc.Set(KeySessionID, id)
				return nil
			},
		},
		{
			Name:     "Verify Session Persisted",
			Category: "Database",
			Required: true,
			Probe: func(ctx context.Context, rc *check.RunContext) error {
				id, err := rc.MustGet(KeySessionID)
				if err != nil {
					return err
				}
				rows, err := store.Select(ctx, sessionTable, storage.Filter{"id": id}, 1)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					return fmt.Errorf("session %s not found after insert", id)
				}
				return nil
			},
		},
	}

	// 后台登录链路需要配置了凭据的后台
	if d, ok := dashboardWithCredentials(cfg); ok {
		checks = append(checks,
			check.Check{
				Name:     "Dashboard Login",
				Category: "Auth",
				Required: true,
				Probe: func(ctx context.Context, rc *check.RunContext) error {
					token, err := client.Login(ctx, d.URL+d.LoginPath, d.Email, d.Password)
					if err != nil {
						return err
					}
					rc.Set(KeyDashboardToken, token)
					return nil
				},
			},
			check.Check{
				Name:     "Token Accepted",
				Category: "Auth",
				Required: true,
				Probe: func(ctx context.Context, rc *check.RunContext) error {
					token, err := rc.MustGet(KeyDashboardToken)
					if err != nil {
						return err
					}
					headers := map[string]string{"Authorization": "Bearer " + token}
					return client.ExpectStatus(ctx, d.URL+d.MePath, headers, http.StatusOK)
				},
			},
		)
	}

	checks = append(checks,
		check.Check{
			Name:     "Insert Session Event",
			Category: "Database",
			Required: true,
			Probe: func(ctx context.Context, rc *check.RunContext) error {
				id, err := rc.MustGet(KeySessionID)
				if err != nil {
					return err
				}
				err = store.Insert(ctx, eventTable, storage.Row{
					"id":         uuid.NewString(),
					"session_id": id,
					"kind":       "probe",
					"created_at": time.Now().UTC(),
				})
				if err != nil {
					return err
				}
				rc.Set(KeyEventCount, "1")
				return nil
			},
		},
		check.Check{
			Name:     "Verify Events Visible",
			Category: "Database",
			Required: true,
			Probe: func(ctx context.Context, rc *check.RunContext) error {
				id, err := rc.MustGet(KeySessionID)
				if err != nil {
					return err
				}
				want := 1
				if v, ok := rc.Get(KeyEventCount); ok {
					if n, err := strconv.Atoi(v); err == nil {
						want = n
					}
				}
				rows, err := store.Select(ctx, eventTable, storage.Filter{"session_id": id}, want+1)
				if err != nil {
					return err
				}
				if len(rows) < want {
					return fmt.Errorf("expected %d events for session %s, got %d", want, id, len(rows))
				}
				return nil
			},
		},
	)

	applyDefaultTimeout(checks, cfg.Checks.DefaultTimeout)
	return checks
}

// NewCleanup 返回顺序链路的清理钩子：按依赖逆序删除事件与会话行。
// 尽力而为：删除失败只记录并计数，不影响报告；重复执行是安全的
// （条件删除天然幂等）。链路未写入会话时直接返回。
func NewCleanup(cfg *cfgpkg.Config, store storage.Store, logger *zap.Logger, m *metrics.AppMetrics) check.CleanupFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionTable := cfg.Checks.SessionTable
	eventTable := cfg.Checks.EventTable

	return func(ctx context.Context, rc *check.RunContext) {
		id, ok := rc.Get(KeySessionID)
		if !ok {
			return
		}

		if n, err := store.Delete(ctx, eventTable, storage.Filter{"session_id": id}); err != nil {
			logger.Error("cleanup: delete events failed",
				zap.String("session_id", id), zap.Error(err))
			if m != nil {
				m.CleanupFailures.Inc()
			}
		} else if n > 0 {
			logger.Debug("cleanup: events removed",
				zap.String("session_id", id), zap.Int64("rows", n))
		}

		if _, err := store.Delete(ctx, sessionTable, storage.Filter{"id": id}); err != nil {
			logger.Error("cleanup: delete session failed",
				zap.String("session_id", id), zap.Error(err))
			if m != nil {
				m.CleanupFailures.Inc()
			}
		}
	}
}

func dashboardWithCredentials(cfg *cfgpkg.Config) (cfgpkg.DashboardConfig, bool) {
	for _, d := range cfg.Targets.Dashboards {
		if d.Email != "" && d.Password != "" && d.LoginPath != "" {
			return d, true
		}
	}
	return cfgpkg.DashboardConfig{}, false
}
