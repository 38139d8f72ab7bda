package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	// 触发检查的接口会真实探测整套部署，必须限流
	RunRatePerSec int `mapstructure:"runRatePerSec"`
	RunBurst      int `mapstructure:"runBurst"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// DashboardConfig 受认证保护的后台配置
type DashboardConfig struct {
	Name      string `mapstructure:"name"`
	URL       string `mapstructure:"url"`
	LoginPath string `mapstructure:"loginPath"`
	MePath    string `mapstructure:"mePath"`
	Email     string `mapstructure:"email"`
	Password  string `mapstructure:"password"`
}

// TargetsConfig 被监控的部署目标
type TargetsConfig struct {
	SiteURL    string            `mapstructure:"siteUrl"`
	DemoURL    string            `mapstructure:"demoUrl"`
	Dashboards []DashboardConfig `mapstructure:"dashboards"`
}

// SupabaseConfig Supabase 托管库配置：REST 入口 + 直连 DSN
type SupabaseConfig struct {
	RESTURL         string        `mapstructure:"restUrl"`
	AnonKey         string        `mapstructure:"anonKey"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

// RedisConfig 缓存探测配置（可选）
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// EmailConfig 告警邮件配置。APIKey 为空表示未配置，直接跳过通知。
type EmailConfig struct {
	Endpoint string   `mapstructure:"endpoint"`
	APIKey   string   `mapstructure:"apiKey"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// ChecksConfig 检查引擎配置
type ChecksConfig struct {
	DefaultTimeout   time.Duration `mapstructure:"defaultTimeout"`
	SlowTimeout      time.Duration `mapstructure:"slowTimeout"`
	CriticalServices []string      `mapstructure:"criticalServices"`
	SessionTable     string        `mapstructure:"sessionTable"`
	EventTable       string        `mapstructure:"eventTable"`
}

// SchedulerConfig 定时运行配置
type SchedulerConfig struct {
	Enable   bool          `mapstructure:"enable"`
	Interval time.Duration `mapstructure:"interval"`
}

// Config 顶层配置结构
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Targets   TargetsConfig   `mapstructure:"targets"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Email     EmailConfig     `mapstructure:"email"`
	Checks    ChecksConfig    `mapstructure:"checks"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 SENTINEL_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = v.GetString("SENTINEL_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	// 默认值
	setDefaults(v)

	// 环境变量覆盖：前缀 SENTINEL_，并将点号替换为下划线
	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if fmt.Sprintf("%T", err) != fmt.Sprintf("%T", notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "deploy-sentinel")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "60s")
	v.SetDefault("http.runRatePerSec", 1)
	v.SetDefault("http.runBurst", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/deploy-sentinel.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("supabase.maxOpenConns", 5)
	v.SetDefault("supabase.maxIdleConns", 2)
	v.SetDefault("supabase.connMaxLifetime", "30m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.dialTimeout", "3s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")

	v.SetDefault("email.endpoint", "https://api.resend.com/emails")

	v.SetDefault("checks.defaultTimeout", "10s")
	v.SetDefault("checks.slowTimeout", "15s")
	v.SetDefault("checks.criticalServices", []string{"Supabase Database"})
	v.SetDefault("checks.sessionTable", "health_check_sessions")
	v.SetDefault("checks.eventTable", "health_check_events")

	v.SetDefault("scheduler.enable", false)
	v.SetDefault("scheduler.interval", "24h")
}
