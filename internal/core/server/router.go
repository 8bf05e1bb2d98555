package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	mdw "menu-catalog/internal/transport/http/middleware"
)

// Limits 零值表示不启用对应中间件
type Limits struct {
	RPS           float64
	Burst         int
	PerIPRPS      float64
	PerIPBurst    int
	MaxConcurrent int64
	MaxBodyBytes  int64
	Timeout       time.Duration
}

type Options struct {
	Name        string // 指标里的 engine 标签
	Mode        string // gin 模式：debug | release | test
	CORSOrigins []string
	Limits      Limits
}

// NewRouter 公共中间件 + /health + /metrics；业务路由由调用方挂载
func NewRouter(l *zap.Logger, o Options) *gin.Engine {
	if o.Mode != "" {
		gin.SetMode(o.Mode)
	}
	r := gin.New()
	r.Use(
		mdw.RequestID(),
		mdw.Recovery(l),
		mdw.Metrics(o.Name),
		mdw.AccessLog(l),
	)
	if len(o.CORSOrigins) > 0 {
		cc := cors.DefaultConfig()
		cc.AllowOrigins = o.CORSOrigins
		cc.AllowCredentials = true
		cc.AddAllowHeaders("Authorization", mdw.KeyRequestID)
		cc.AddExposeHeaders(mdw.KeyRequestID)
		r.Use(cors.New(cc))
	}

	lim := o.Limits
	if lim.RPS > 0 {
		r.Use(mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst))
	}
	if lim.PerIPRPS > 0 {
		r.Use(mdw.RateLimitPerIP(rate.Limit(lim.PerIPRPS), lim.PerIPBurst, 10*time.Minute))
	}
	if lim.Timeout > 0 {
		r.Use(mdw.Timeout(lim.Timeout))
	}
	if lim.MaxConcurrent > 0 {
		r.Use(mdw.ConcurrencyLimit(lim.MaxConcurrent))
	}
	if lim.MaxBodyBytes > 0 {
		r.Use(mdw.MaxBodyBytes(lim.MaxBodyBytes))
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

// Run 启动并阻塞到 SIGINT/SIGTERM，然后在 grace 内优雅关闭
func Run(srv *http.Server, l *zap.Logger, grace time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		l.Info("http starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(sctx)
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

// BaseURL 启动日志里打印可点击地址
func BaseURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return "http://" + Addr(host, port)
}
