package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/deploy-sentinel/internal/check"
	cfgpkg "github.com/taoyao-code/deploy-sentinel/internal/config"
	"github.com/taoyao-code/deploy-sentinel/internal/report"
)

// CheckService 检查运行入口
type CheckService interface {
	RunStatus(ctx context.Context) *check.HealthReport
	RunFull(ctx context.Context) *check.HealthReport
}

// Server HTTP 服务封装
type Server struct {
	srv *http.Server
}

// New 创建并配置 Gin + HTTP Server。
// 注册健康检查、指标与按需触发检查的路由；触发检查的路由会对被监控
// 部署发起真实探测（顺序链路还会写库），统一经过限流。
func New(cfg cfgpkg.HTTPConfig, appName string, svc CheckService,
	metricsPath string, metricsHandler http.Handler,
	readyFn func(ctx context.Context) error, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if readyFn == nil || readyFn(c.Request.Context()) == nil {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	limiter := NewRateLimiter(cfg.RunRatePerSec, cfg.RunBurst)
	runs := r.Group("/", RateLimit(limiter))

	runs.GET("/api/status", func(c *gin.Context) {
		rpt := svc.RunStatus(c.Request.Context())
		c.JSON(statusCode(rpt), rpt)
	})
	runs.GET("/api/status/full", func(c *gin.Context) {
		rpt := svc.RunFull(c.Request.Context())
		c.JSON(statusCode(rpt), rpt)
	})
	runs.GET("/report", func(c *gin.Context) {
		rpt := svc.RunStatus(c.Request.Context())
		page, err := report.RenderHTML(rpt, appName)
		if err != nil {
			logger.Error("render report page failed", zap.Error(err))
			c.String(http.StatusInternalServerError, "render failed")
			return
		}
		c.Data(statusCode(rpt), "text/html; charset=utf-8", page)
	})

	r.GET("/api/ratelimit", func(c *gin.Context) {
		c.JSON(http.StatusOK, limiter.Stats())
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: srv}
}

// statusCode 监控面约定：critical 返回 503，其余返回 200。
// degraded 仍算服务可用，由响应体区分。
func statusCode(r *check.HealthReport) int {
	if r.OverallStatus == check.OverallCritical {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Start 启动 HTTP 服务（阻塞）
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
