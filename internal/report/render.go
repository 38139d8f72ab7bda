package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/taoyao-code/deploy-sentinel/internal/check"
)

// RenderJSON 输出对外兼容的 JSON 快照
func RenderJSON(r *check.HealthReport, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}

// pageData HTML 渲染数据
type pageData struct {
	AppName    string
	Report     *check.HealthReport
	Categories []categoryView
}

type categoryView struct {
	Name    string
	Summary check.CategorySummary
}

var pageTmpl = template.Must(template.New("page").Funcs(template.FuncMap{
	"statusClass": statusClass,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.AppName}} — health report</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.4rem; }
.badge { display: inline-block; padding: .2rem .6rem; border-radius: .3rem; color: #fff; font-weight: 600; }
.ok { background: #2e7d32; } .degraded { background: #ef6c00; } .critical { background: #c62828; }
.passed { color: #2e7d32; } .failed { color: #c62828; font-weight: 600; } .skipped { color: #757575; }
table { border-collapse: collapse; margin-top: 1rem; min-width: 40rem; }
th, td { border: 1px solid #ddd; padding: .4rem .8rem; text-align: left; font-size: .9rem; }
th { background: #f5f5f5; }
.meta { color: #757575; font-size: .85rem; }
</style>
</head>
<body>
<h1>{{.AppName}} <span class="badge {{statusClass .Report.OverallStatus}}">{{.Report.OverallStatus}}</span></h1>
<p class="meta">started {{.Report.StartedAt.Format "2006-01-02 15:04:05 MST"}} · {{.Report.DurationMs}} ms · {{len .Report.Outcomes}} checks</p>

<h2>Categories</h2>
<table>
<tr><th>Category</th><th>Passed</th><th>Failed</th><th>Skipped</th></tr>
{{range .Categories}}<tr><td>{{.Name}}</td><td>{{.Summary.Passed}}</td><td>{{.Summary.Failed}}</td><td>{{.Summary.Skipped}}</td></tr>
{{end}}</table>

<h2>Checks</h2>
<table>
<tr><th>Category</th><th>Name</th><th>Status</th><th>Duration</th><th>Error</th></tr>
{{range .Report.Outcomes}}<tr><td>{{.Category}}</td><td>{{.Name}}</td><td class="{{.Status}}">{{.Status}}</td><td>{{.DurationMs}} ms</td><td>{{.Error}}</td></tr>
{{end}}</table>
</body>
</html>
`))

var emailTmpl = template.Must(template.New("email").Parse(`<h2>Deployment health alert</h2>
<p><strong>{{.Failed}}</strong> of {{.Total}} checks failed · overall status <strong>{{.Status}}</strong> · run took {{.DurationMs}} ms</p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Category</th><th>Check</th><th>Error</th></tr>
{{range .Failures}}<tr><td>{{.Category}}</td><td>{{.Name}}</td><td>{{.Error}}</td></tr>
{{end}}</table>
`))

// RenderHTML 渲染面向操作人员的 HTML 报告页
func RenderHTML(r *check.HealthReport, appName string) ([]byte, error) {
	data := pageData{AppName: appName, Report: r}
	for _, name := range r.CategoryOrder {
		data.Categories = append(data.Categories, categoryView{Name: name, Summary: r.Categories[name]})
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderEmailHTML 渲染告警邮件正文。
// 失败条目逐条原样列出（不截断、不脱敏，探测错误消息自身负责不泄密）。
func RenderEmailHTML(r *check.HealthReport) ([]byte, error) {
	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, struct {
		Failed     int
		Total      int
		Status     check.OverallStatus
		DurationMs int64
		Failures   []check.Outcome
	}{
		Failed:     r.FailedCount(),
		Total:      r.TotalCount(),
		Status:     r.OverallStatus,
		DurationMs: r.DurationMs,
		Failures:   r.FailedOutcomes(),
	})
	if err != nil {
		return nil, fmt.Errorf("render alert email: %w", err)
	}
	return buf.Bytes(), nil
}

func statusClass(s check.OverallStatus) string {
	switch s {
	case check.OverallCritical:
		return "critical"
	case check.OverallDegraded:
		return "degraded"
	default:
		return "ok"
	}
}
