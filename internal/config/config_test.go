package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Skip("显式指定的配置文件不存在时行为由viper决定")
	}

	// 不指定路径时允许无配置文件，全部走默认值
	cwd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	_ = os.Chdir(t.TempDir())

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}

	if cfg.App.Name != "deploy-sentinel" {
		t.Errorf("app.name默认值错误: %q", cfg.App.Name)
	}
	if cfg.Checks.DefaultTimeout != 10*time.Second {
		t.Errorf("defaultTimeout默认值错误: %v", cfg.Checks.DefaultTimeout)
	}
	if cfg.Checks.SlowTimeout != 15*time.Second {
		t.Errorf("slowTimeout默认值错误: %v", cfg.Checks.SlowTimeout)
	}
	if len(cfg.Checks.CriticalServices) != 1 || cfg.Checks.CriticalServices[0] != "Supabase Database" {
		t.Errorf("criticalServices默认值错误: %v", cfg.Checks.CriticalServices)
	}
	if cfg.Scheduler.Interval != 24*time.Hour {
		t.Errorf("scheduler.interval默认值错误: %v", cfg.Scheduler.Interval)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentinel.yaml")
	content := `
app:
  name: my-sentinel
targets:
  siteUrl: https://www.example.com
checks:
  criticalServices:
    - Supabase Database
    - Auth Service
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}

	if cfg.App.Name != "my-sentinel" {
		t.Errorf("app.name错误: %q", cfg.App.Name)
	}
	if cfg.Targets.SiteURL != "https://www.example.com" {
		t.Errorf("siteUrl错误: %q", cfg.Targets.SiteURL)
	}
	if len(cfg.Checks.CriticalServices) != 2 {
		t.Errorf("criticalServices错误: %v", cfg.Checks.CriticalServices)
	}
	// 文件未覆盖的键仍取默认值
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http.addr默认值错误: %q", cfg.HTTP.Addr)
	}
}
