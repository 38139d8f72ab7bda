package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/taoyao-code/deploy-sentinel/internal/check"
)

func sampleReport() *check.HealthReport {
	agg := check.NewAggregator([]string{"Supabase Database"})
	r := agg.Aggregate([]check.Outcome{
		{Category: "Site", Name: "Public Site", Status: check.StatusPassed, DurationMs: 120},
		{Category: "Demo", Name: "Demo Application", Status: check.StatusFailed, Error: "HTTP 502", DurationMs: 340},
		{Category: "Cache", Name: "Redis Cache", Status: check.StatusSkipped, Error: "connection refused", DurationMs: 15},
	})
	r.StartedAt = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	r.DurationMs = 475
	return r
}

func TestRenderJSON(t *testing.T) {
	t.Run("紧凑输出可回读且字段齐全", func(t *testing.T) {
		data, err := RenderJSON(sampleReport(), false)
		if err != nil {
			t.Fatalf("渲染失败: %v", err)
		}

		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("输出不是合法JSON: %v", err)
		}
		for _, key := range []string{"status", "timestamp", "durationMs", "categories", "checks"} {
			if _, ok := parsed[key]; !ok {
				t.Errorf("缺少顶层字段 %q", key)
			}
		}
		if parsed["status"] != "degraded" {
			t.Errorf("status错误: %v", parsed["status"])
		}
	})

	t.Run("pretty输出带缩进", func(t *testing.T) {
		data, err := RenderJSON(sampleReport(), true)
		if err != nil {
			t.Fatalf("渲染失败: %v", err)
		}
		if !strings.Contains(string(data), "\n  ") {
			t.Error("pretty模式应包含缩进")
		}
	})
}

func TestRenderHTML(t *testing.T) {
	data, err := RenderHTML(sampleReport(), "deploy-sentinel")
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	page := string(data)

	for _, want := range []string{
		"deploy-sentinel",
		"degraded",
		"Public Site", "Demo Application", "Redis Cache",
		"HTTP 502",
		// 类别表按首次出现顺序
		"Site", "Demo", "Cache",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("页面缺少 %q", want)
		}
	}
	if !strings.HasPrefix(page, "<!DOCTYPE html>") {
		t.Error("应输出完整HTML文档")
	}
}

func TestRenderEmailHTML(t *testing.T) {
	data, err := RenderEmailHTML(sampleReport())
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	body := string(data)

	if !strings.Contains(body, "HTTP 502") || !strings.Contains(body, "Demo Application") {
		t.Errorf("正文应原样包含失败明细: %s", body)
	}
	// skipped 不属于失败，不进入告警正文
	if strings.Contains(body, "Redis Cache") {
		t.Error("skipped结果不应出现在告警正文")
	}
	if !strings.Contains(body, "<strong>1</strong> of 3") {
		t.Errorf("应包含失败计数: %s", body)
	}
}
