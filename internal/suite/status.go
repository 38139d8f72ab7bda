package suite

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/taoyao-code/deploy-sentinel/internal/check"
	cfgpkg "github.com/taoyao-code/deploy-sentinel/internal/config"
	"github.com/taoyao-code/deploy-sentinel/internal/probe"
)

// Pinger 数据库探活协作方（pgxpool.Pool 天然满足）
type Pinger interface {
	Ping(ctx context.Context) error
}

// CachePinger 缓存探活协作方
type CachePinger interface {
	HealthCheck(ctx context.Context) error
}

// StatusDeps 状态检查集的外部协作方。
// DB / Redis 为 nil 表示对应目标未配置，相关检查不会进入批次。
type StatusDeps struct {
	Probe *probe.Client
	DB    Pinger
	Redis CachePinger
}

// BuildStatusChecks 根据配置构建并行状态检查集。
// 检查顺序即声明顺序，报告中的结果保持该顺序。
func BuildStatusChecks(cfg *cfgpkg.Config, deps StatusDeps) []check.Check {
	var checks []check.Check
	client := deps.Probe

	if cfg.Targets.SiteURL != "" {
		checks = append(checks, check.Check{
			Name:     "Public Site",
			Category: "Site",
			Required: true,
			Probe: func(ctx context.Context, _ *check.RunContext) error {
				return client.ExpectStatus(ctx, cfg.Targets.SiteURL, nil, http.StatusOK)
			},
		})
	}

	if cfg.Targets.DemoURL != "" {
		checks = append(checks, check.Check{
			Name:     "Demo Application",
			Category: "Demo",
			Required: true,
			// 演示环境冷启动慢，单独放宽超时
			Timeout: cfg.Checks.SlowTimeout,
			Probe: func(ctx context.Context, _ *check.RunContext) error {
				return client.ExpectStatus(ctx, cfg.Targets.DemoURL, nil, http.StatusOK)
			},
		})
	}

	for _, d := range cfg.Targets.Dashboards {
		d := d
		checks = append(checks, check.Check{
			Name:     d.Name,
			Category: "Dashboards",
			Required: true,
			Probe: func(ctx context.Context, _ *check.RunContext) error {
				return client.ExpectStatus(ctx, d.URL, nil, http.StatusOK)
			},
		})
	}

	if cfg.Supabase.RESTURL != "" {
		checks = append(checks, check.Check{
			Name:     "Supabase REST API",
			Category: "Supabase",
			Required: true,
			Probe: func(ctx context.Context, _ *check.RunContext) error {
				headers := map[string]string{"apikey": cfg.Supabase.AnonKey}
				return client.ExpectStatus(ctx, cfg.Supabase.RESTURL, headers, http.StatusOK)
			},
		})
	}

	if deps.DB != nil {
		checks = append(checks, check.Check{
			Name:     "Supabase Database",
			Category: "Supabase",
			Required: true,
			Probe: func(ctx context.Context, _ *check.RunContext) error {
				return deps.DB.Ping(ctx)
			},
		})
	}

	if deps.Redis != nil {
		checks = append(checks, check.Check{
			Name:     "Redis Cache",
			Category: "Cache",
			Required: false,
			Probe: func(ctx context.Context, _ *check.RunContext) error {
				return deps.Redis.HealthCheck(ctx)
			},
		})
	}

	if cfg.Email.APIKey != "" {
		checks = append(checks, check.Check{
			Name:     "Email Provider",
			Category: "Email",
			Required: false,
			Probe: func(ctx context.Context, _ *check.RunContext) error {
				// 可达性探测：供应商返回任何 HTTP 响应（包括 4xx 的鉴权/方法
				// 错误）都说明链路正常，只有网络层失败才算探测失败
				code, _, err := client.Do(ctx, http.MethodGet, cfg.Email.Endpoint,
					map[string]string{"Authorization": "Bearer " + cfg.Email.APIKey}, nil)
				if err != nil {
					return err
				}
				if code >= http.StatusInternalServerError {
					return fmt.Errorf("HTTP %d", code)
				}
				return nil
			},
		})
	}

	applyDefaultTimeout(checks, cfg.Checks.DefaultTimeout)
	return checks
}

// applyDefaultTimeout 把配置的默认超时落到未单独指定超时的检查上。
// 配置缺省时保持零值，由执行器回退到内置默认。
func applyDefaultTimeout(checks []check.Check, d time.Duration) {
	if d <= 0 {
		return
	}
	for i := range checks {
		if checks[i].Timeout <= 0 {
			checks[i].Timeout = d
		}
	}
}
