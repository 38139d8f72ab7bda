package check

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunner_Execute(t *testing.T) {
	runner := NewRunner(nil)

	t.Run("探测通过", func(t *testing.T) {
		out := runner.Execute(context.Background(), Check{
			Name:     "ok-check",
			Category: "Site",
			Required: true,
			Probe: func(ctx context.Context, rc *RunContext) error {
				return nil
			},
		}, nil)

		if out.Status != StatusPassed {
			t.Errorf("期望passed，实际: %v", out.Status)
		}
		if out.Error != "" {
			t.Errorf("通过结果不应携带错误: %q", out.Error)
		}
		if out.Category != "Site" || out.Name != "ok-check" {
			t.Errorf("结果标识不匹配: %+v", out)
		}
	})

	t.Run("required检查失败记为failed", func(t *testing.T) {
		out := runner.Execute(context.Background(), Check{
			Name:     "bad",
			Category: "Demo",
			Required: true,
			Probe: func(ctx context.Context, rc *RunContext) error {
				return errors.New("HTTP 500")
			},
		}, nil)

		if out.Status != StatusFailed {
			t.Errorf("期望failed，实际: %v", out.Status)
		}
		if out.Error != "HTTP 500" {
			t.Errorf("期望错误消息原样保留，实际: %q", out.Error)
		}
	})

	t.Run("可选检查失败记为skipped", func(t *testing.T) {
		out := runner.Execute(context.Background(), Check{
			Name:     "optional",
			Category: "Cache",
			Required: false,
			Probe: func(ctx context.Context, rc *RunContext) error {
				return errors.New("connection refused")
			},
		}, nil)

		if out.Status != StatusSkipped {
			t.Errorf("可选检查失败应为skipped，实际: %v", out.Status)
		}
		if out.Error == "" {
			t.Error("skipped结果应保留错误消息")
		}
	})

	t.Run("超时判定", func(t *testing.T) {
		start := time.Now()
		out := runner.Execute(context.Background(), Check{
			Name:     "hang",
			Category: "Site",
			Required: true,
			Timeout:  50 * time.Millisecond,
			Probe: func(ctx context.Context, rc *RunContext) error {
				<-ctx.Done() // 模拟挂起的远端调用，依赖取消契约退出
				return ctx.Err()
			},
		}, nil)

		if out.Status != StatusFailed {
			t.Errorf("期望failed，实际: %v", out.Status)
		}
		if !strings.Contains(out.Error, "Timeout") {
			t.Errorf("超时错误应包含Timeout，实际: %q", out.Error)
		}
		// 不允许无限挂起：应在 timeout + ε 内返回
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			t.Errorf("执行器未及时返回: %v", elapsed)
		}
	})

	t.Run("可选检查超时记为skipped", func(t *testing.T) {
		out := runner.Execute(context.Background(), Check{
			Name:     "slow-optional",
			Category: "Cache",
			Required: false,
			Timeout:  50 * time.Millisecond,
			Probe: func(ctx context.Context, rc *RunContext) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}, nil)

		if out.Status != StatusSkipped {
			t.Errorf("期望skipped，实际: %v", out.Status)
		}
	})

	t.Run("panic兜底", func(t *testing.T) {
		out := runner.Execute(context.Background(), Check{
			Name:     "boom",
			Category: "Demo",
			Required: true,
			Probe: func(ctx context.Context, rc *RunContext) error {
				panic("unexpected state")
			},
		}, nil)

		if out.Status != StatusFailed {
			t.Errorf("panic应转换为failed，实际: %v", out.Status)
		}
		if !strings.Contains(out.Error, "unexpected state") {
			t.Errorf("panic信息应保留在错误中: %q", out.Error)
		}
	})

	t.Run("耗时始终记录", func(t *testing.T) {
		out := runner.Execute(context.Background(), Check{
			Name:     "timed",
			Category: "Site",
			Required: true,
			Probe: func(ctx context.Context, rc *RunContext) error {
				time.Sleep(20 * time.Millisecond)
				return errors.New("fail anyway")
			},
		}, nil)

		if out.DurationMs < 20 {
			t.Errorf("期望耗时>=20ms，实际: %dms", out.DurationMs)
		}
	})

	t.Run("通过探测的上下文写入被保留", func(t *testing.T) {
		rc := NewRunContext()
		runner.Execute(context.Background(), Check{
			Name:     "writer",
			Category: "Supabase",
			Required: true,
			Probe: func(ctx context.Context, rc *RunContext) error {
				rc.Set("session_id", "abc-123")
				return nil
			},
		}, rc)

		if v, ok := rc.Get("session_id"); !ok || v != "abc-123" {
			t.Errorf("上下文写入丢失: %q, %v", v, ok)
		}
	})

	t.Run("nil上下文自动补空实例", func(t *testing.T) {
		out := runner.Execute(context.Background(), Check{
			Name:     "no-ctx",
			Category: "Site",
			Required: true,
			Probe: func(ctx context.Context, rc *RunContext) error {
				if rc == nil {
					return errors.New("nil run context")
				}
				return nil
			},
		}, nil)

		if out.Status != StatusPassed {
			t.Errorf("期望passed，实际: %v (%s)", out.Status, out.Error)
		}
	})
}
