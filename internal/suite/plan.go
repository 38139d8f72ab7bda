package suite

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/deploy-sentinel/internal/check"
	"github.com/taoyao-code/deploy-sentinel/internal/probe"
)

// Duration yaml.v3 不支持从 "5s" 这类字符串解码 time.Duration，包一层
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// PlanCheck 操作人员在检查计划文件中声明的一条 HTTP 检查
type PlanCheck struct {
	Name     string            `yaml:"name"`
	Category string            `yaml:"category"`
	URL      string            `yaml:"url"`
	Method   string            `yaml:"method"`
	Expect   int               `yaml:"expect"`
	Required *bool             `yaml:"required"`
	Timeout  Duration          `yaml:"timeout"`
	Headers  map[string]string `yaml:"headers"`
}

// Plan 检查计划：追加到状态检查集的额外 HTTP 检查
type Plan struct {
	Checks []PlanCheck `yaml:"checks"`
}

// LoadPlan 从 YAML 文件加载检查计划并补全默认值。
// 默认：method=GET、expect=200、category=Custom、required=true。
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}

	for i := range plan.Checks {
		c := &plan.Checks[i]
		if c.Name == "" {
			return nil, fmt.Errorf("plan check #%d: name is required", i+1)
		}
		if c.URL == "" {
			return nil, fmt.Errorf("plan check %q: url is required", c.Name)
		}
		if c.Method == "" {
			c.Method = http.MethodGet
		}
		if c.Expect == 0 {
			c.Expect = http.StatusOK
		}
		if c.Category == "" {
			c.Category = "Custom"
		}
	}
	return &plan, nil
}

// Build 把计划条目转换为可执行检查
func (p *Plan) Build(client *probe.Client) []check.Check {
	checks := make([]check.Check, 0, len(p.Checks))
	for _, pc := range p.Checks {
		pc := pc
		required := true
		if pc.Required != nil {
			required = *pc.Required
		}
		checks = append(checks, check.Check{
			Name:     pc.Name,
			Category: pc.Category,
			Required: required,
			Timeout:  time.Duration(pc.Timeout),
			Probe: func(ctx context.Context, _ *check.RunContext) error {
				code, _, err := client.Do(ctx, pc.Method, pc.URL, pc.Headers, nil)
				if err != nil {
					return err
				}
				if code != pc.Expect {
					return fmt.Errorf("HTTP %d", code)
				}
				return nil
			},
		})
	}
	return checks
}
