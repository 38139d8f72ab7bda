package check

import "time"

// CategorySummary 单个分类的通过/失败/跳过计数。
// 始终从完整结果序列折叠得出，不做增量维护。
type CategorySummary struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Total 分类内检查总数
func (s CategorySummary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// HealthReport 一次运行的最终快照，创建后不可变。
// JSON 字段名与既有消费方兼容，不得改动。
type HealthReport struct {
	OverallStatus OverallStatus              `json:"status"`
	StartedAt     time.Time                  `json:"timestamp"`
	EndedAt       time.Time                  `json:"-"`
	DurationMs    int64                      `json:"durationMs"`
	Categories    map[string]CategorySummary `json:"categories"`
	Outcomes      []Outcome                  `json:"checks"`

	// CategoryOrder 分类首次出现顺序（渲染层使用）
	CategoryOrder []string `json:"-"`
}

// TotalCount 检查总数
func (r *HealthReport) TotalCount() int {
	return len(r.Outcomes)
}

// FailedCount 失败总数（不含 skipped）
func (r *HealthReport) FailedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			n++
		}
	}
	return n
}

// FailedOutcomes 返回全部失败结果（保持运行顺序）
func (r *HealthReport) FailedOutcomes() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Aggregator 结果聚合器。纯函数、无 I/O：同一结果序列
// 重复聚合必须得到完全一致的输出。
type Aggregator struct {
	critical map[string]struct{}
}

// NewAggregator 创建聚合器。
// criticalServices 中任意检查名失败时整体状态直接升级为 critical。
func NewAggregator(criticalServices []string) *Aggregator {
	critical := make(map[string]struct{}, len(criticalServices))
	for _, name := range criticalServices {
		critical[name] = struct{}{}
	}
	return &Aggregator{critical: critical}
}

// IsCritical 检查名是否属于关键服务
func (a *Aggregator) IsCritical(name string) bool {
	_, ok := a.critical[name]
	return ok
}

// Aggregate 将结果序列折叠为健康报告。
// 分类按首次出现顺序排列；时间字段由 Orchestrator 填充。
func (a *Aggregator) Aggregate(outcomes []Outcome) *HealthReport {
	report := &HealthReport{
		OverallStatus: OverallOK,
		Categories:    make(map[string]CategorySummary, 8),
		// 拷贝一份，调用方后续改动自己的切片不会影响报告
		Outcomes: append([]Outcome(nil), outcomes...),
	}

	for _, o := range outcomes {
		summary, seen := report.Categories[o.Category]
		if !seen {
			report.CategoryOrder = append(report.CategoryOrder, o.Category)
		}

		switch o.Status {
		case StatusPassed:
			summary.Passed++
		case StatusFailed:
			summary.Failed++
			// 升级判定：关键服务失败直接 critical，否则 degraded
			if _, crit := a.critical[o.Name]; crit {
				report.OverallStatus = OverallCritical
			} else if report.OverallStatus != OverallCritical {
				report.OverallStatus = OverallDegraded
			}
		case StatusSkipped:
			summary.Skipped++
		}
		report.Categories[o.Category] = summary
	}

	return report
}
