package main

import (
	"context"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"menu-catalog/internal/app"
	"menu-catalog/internal/core/config"
	"menu-catalog/internal/core/logger"
	"menu-catalog/internal/core/server"
	"menu-catalog/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))
	log, cleanup := app.NewLogger(cfg)
	defer cleanup()
	gin.DefaultWriter = logger.ToWriter(log.Named("gin"), zapcore.DebugLevel)

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	// 路由（用户端）
	r := router.NewAPIEngine(router.Deps{Log: log, Auth: a.Auth, Catalog: a.Catalog}, app.ServerOptions(cfg, "api"))

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	baseURL := server.BaseURL(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
		zap.Bool("menu_cache", a.Cache != nil),
		zap.Bool("atomic", cfg.Catalog.Atomic),
	)

	if err := server.Run(srv, log, 10*time.Second); err != nil {
		log.Error("user api stopped with error", zap.Error(err))
		return
	}
	log.Info("user api stopped gracefully")
}
