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
	"menu-catalog/internal/transport/http/handler"
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

	adminH := handler.NewAdminHandler(a.Auth, log.Named("admin"), handler.WithAdmins(cfg.App.Admin.Users...))
	if len(cfg.App.Admin.Users) == 0 {
		log.Warn("app.admin.users is empty: every authenticated user can use the admin api")
	}
	r := router.NewAdminEngine(log, adminH, a.Auth, app.ServerOptions(cfg, "admin"))

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 10*time.Second, 60*time.Second)

	baseURL := server.BaseURL(cfg.App.Admin.Host, cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	if err := server.Run(srv, log, 10*time.Second); err != nil {
		log.Error("admin api stopped with error", zap.Error(err))
		return
	}
	log.Info("admin api stopped gracefully")
}
