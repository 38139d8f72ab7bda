package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/deploy-sentinel/internal/check"
	cfgpkg "github.com/taoyao-code/deploy-sentinel/internal/config"
	"github.com/taoyao-code/deploy-sentinel/internal/httpserver"
	"github.com/taoyao-code/deploy-sentinel/internal/logging"
	"github.com/taoyao-code/deploy-sentinel/internal/metrics"
	"github.com/taoyao-code/deploy-sentinel/internal/notify"
	"github.com/taoyao-code/deploy-sentinel/internal/probe"
	"github.com/taoyao-code/deploy-sentinel/internal/report"
	"github.com/taoyao-code/deploy-sentinel/internal/sched"
	"github.com/taoyao-code/deploy-sentinel/internal/storage"
	"github.com/taoyao-code/deploy-sentinel/internal/storage/gormstore"
	"github.com/taoyao-code/deploy-sentinel/internal/storage/pg"
	"github.com/taoyao-code/deploy-sentinel/internal/storage/redisstore"
	"github.com/taoyao-code/deploy-sentinel/internal/suite"
)

var (
	flagConfig string
	flagPlan   string
	flagPretty bool
)

func main() {
	root := &cobra.Command{
		Use:   "sentinel",
		Short: "Deployment health check runner",
		Long:  "Probes a deployed stack (site, dashboards, Supabase, cache, email) and reports aggregated health.",
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path (default: $SENTINEL_CONFIG or configs/example.yaml)")
	root.PersistentFlags().StringVar(&flagPlan, "plan", "", "extra HTTP checks plan file (YAML)")
	root.PersistentFlags().BoolVar(&flagPretty, "pretty", false, "indent JSON output")

	root.AddCommand(newCheckCmd(), newSuiteCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

// app 装配完成的运行时依赖
type app struct {
	cfg        *cfgpkg.Config
	logger     *zap.Logger
	m          *metrics.AppMetrics
	metricsReg *prometheus.Registry
	svc        *suite.Service
	pool       *pgxpool.Pool
	store      *gormstore.Store
	redis      *redisstore.Client
}

// bootstrap 按固定顺序装配：配置 → 日志 → 指标 → 外部协作方 → 检查服务。
// 数据库/缓存连不上不阻止启动，失败原因被注入对应检查，由报告呈现。
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := cfgpkg.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	reg := metrics.NewRegistry()
	m := metrics.NewAppMetrics(reg)

	a := &app{cfg: cfg, logger: logger, m: m}
	client := probe.NewClient(logger)

	statusDeps := suite.StatusDeps{Probe: client}
	var store storage.Store

	if cfg.Supabase.DSN != "" {
		pool, err := pg.NewPool(ctx, cfg.Supabase.DSN,
			cfg.Supabase.MaxOpenConns, cfg.Supabase.MaxIdleConns, cfg.Supabase.ConnMaxLifetime, logger)
		if err != nil {
			logger.Warn("database pool init failed, checks will report it", zap.Error(err))
			statusDeps.DB = pingErr{err: err}
		} else {
			a.pool = pool
			statusDeps.DB = pool
		}

		gs, err := gormstore.Open(cfg.Supabase.DSN,
			cfg.Supabase.MaxOpenConns, cfg.Supabase.MaxIdleConns, cfg.Supabase.ConnMaxLifetime)
		if err != nil {
			logger.Warn("store init failed, e2e chain will report it", zap.Error(err))
			store = storage.Unavailable(err)
		} else {
			a.store = gs
			store = gs
		}
	} else {
		store = storage.Unavailable(fmt.Errorf("supabase dsn not configured"))
	}

	if cfg.Redis.Enabled {
		rdb, err := redisstore.NewClient(cfg.Redis)
		if err != nil {
			logger.Warn("redis init failed, cache check will report it", zap.Error(err))
			statusDeps.Redis = cacheErr{err: err}
		} else {
			a.redis = rdb
			statusDeps.Redis = rdb
		}
	}

	var mailer notify.Mailer
	if rm := notify.NewResendMailer(cfg.Email); rm != nil {
		mailer = rm
	}
	notifier := notify.NewNotifier(mailer, cfg.App.Name, logger, m)

	runner := check.NewRunner(logger)
	agg := check.NewAggregator(cfg.Checks.CriticalServices)
	cleanup := suite.NewCleanup(cfg, store, logger, m)
	orch := check.NewOrchestrator(runner, agg, cleanup, logger)

	statusChecks := suite.BuildStatusChecks(cfg, statusDeps)
	e2eChecks := suite.BuildE2EChecks(cfg, suite.E2EDeps{Probe: client, Store: store})
	a.svc = suite.NewService(orch, notifier, m, logger, statusChecks, e2eChecks)

	if flagPlan != "" {
		plan, err := suite.LoadPlan(flagPlan)
		if err != nil {
			return nil, err
		}
		a.svc.AppendStatusChecks(plan.Build(client))
	}

	a.metricsReg = reg
	return a, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.logger.Sync()
}

// printAndExit 输出报告 JSON 并按整体状态决定进程退出码。
// ok/degraded 退出 0，critical 退出 1，便于 CI 流水线直接判门禁。
func printAndExit(a *app, r *check.HealthReport) error {
	out, err := report.RenderJSON(r, flagPretty)
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if r.OverallStatus == check.OverallCritical {
		a.close()
		os.Exit(1)
	}
	return nil
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the parallel status check set once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return printAndExit(a, a.svc.RunStatus(cmd.Context()))
		},
	}
}

func newSuiteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suite",
		Short: "Run the sequential end-to-end chain once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return printAndExit(a, a.svc.RunFull(cmd.Context()))
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			log := a.logger

			var readyFn func(ctx context.Context) error
			if a.pool != nil {
				readyFn = a.pool.Ping
			}

			var metricsHandler = metrics.Handler(a.metricsReg)
			if !a.cfg.Metrics.Enable {
				metricsHandler = nil
			}
			httpSrv := httpserver.New(a.cfg.HTTP, a.cfg.App.Name, a.svc,
				a.cfg.Metrics.Path, metricsHandler, readyFn, log)

			go func() {
				if err := httpSrv.Start(); err != nil {
					log.Error("http server error", zap.Error(err))
				}
			}()

			if a.cfg.Scheduler.Enable {
				s := sched.New(a.cfg.Scheduler.Interval, func(ctx context.Context) {
					a.svc.RunStatus(ctx)
					a.svc.RunFull(ctx)
				}, log)
				go s.Start(ctx)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
}

// pingErr 连接池建立失败时的数据库探活占位：始终返回建立失败的原因
type pingErr struct{ err error }

func (p pingErr) Ping(context.Context) error { return p.err }

// cacheErr 缓存客户端建立失败时的探活占位
type cacheErr struct{ err error }

func (c cacheErr) HealthCheck(context.Context) error { return c.err }
