package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"menu-catalog/internal/core/auth"
	"menu-catalog/internal/core/cache"
	"menu-catalog/internal/core/config"
	"menu-catalog/internal/core/database"
	"menu-catalog/internal/core/logger"
	"menu-catalog/internal/core/server"
	"menu-catalog/internal/repo"
	"menu-catalog/internal/service"
	"menu-catalog/pkg/utils"
)

// App 进程级依赖，main 里构造一次后注入各层
type App struct {
	Cfg     *config.Config
	Log     *zap.Logger
	DB      *gorm.DB
	Cache   *cache.Cache // redis.addr 为空时为 nil
	JWT     *auth.JWTer
	Users   *repo.UserRepo
	Catalog *service.CatalogService
	Auth    *service.AuthService

	closers []func()
}

// NewLogger 按配置构建 zap，并把标准库 log 转进来
func NewLogger(cfg *config.Config) (*zap.Logger, func()) {
	l, sync := logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate{
		Enable:     cfg.Log.File.Enable,
		Filename:   cfg.Log.File.Filename,
		MaxSizeMB:  cfg.Log.File.MaxSizeMB,
		MaxBackups: cfg.Log.File.MaxBackups,
		MaxAgeDays: cfg.Log.File.MaxAgeDays,
		Compress:   cfg.Log.File.Compress,
	}, Zone(cfg))
	undo := logger.RedirectStdLog(l, zapcore.InfoLevel)
	return l, func() { undo(); sync() }
}

// Zone app.utcOffsetHours 对应的固定时区
func Zone(cfg *config.Config) *time.Location {
	h := cfg.App.UTCOffsetHours
	return time.FixedZone(fmt.Sprintf("UTC%+d", h), h*3600)
}

func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: l}

	gormLog, err := logger.ToStdLogger(l.Named("gorm"), zapcore.WarnLevel)
	if err != nil {
		return nil, err
	}
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Writer:             gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(ctx, db); err != nil {
			a.Close()
			return nil, err
		}
		l.Info("automigrate done")
	}

	a.JWT = &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.ExpirySec) * time.Second,
		Leeway: time.Duration(cfg.JWT.LeewaySec) * time.Second,
	}

	catalogOpts := []service.CatalogOption{
		service.WithCatalogLogger(l.Named("catalog")),
		service.WithAtomic(cfg.Catalog.Atomic),
	}
	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := c.Ping(ctx); err != nil {
			// 缓存不可用不影响启动，读路径会直接回源
			l.Warn("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		a.Cache = c
		a.closers = append(a.closers, func() { _ = c.Close() })
		ttl := time.Duration(cfg.Catalog.MenuCacheTTLSec) * time.Second
		catalogOpts = append(catalogOpts, service.WithMenuCache(service.NewRedisMenuCache(c, ttl)))
	}

	catalogRepo := repo.NewCatalogRepo(db,
		repo.WithLogger(l.Named("repo")),
		repo.WithUTCOffset(cfg.App.UTCOffsetHours),
	)
	a.Catalog = service.NewCatalogService(catalogRepo, catalogOpts...)

	a.Users = repo.NewUserRepo(db)
	a.Auth = service.NewAuthService(a.Users, a.JWT, PasswordParams(cfg), l.Named("auth"))
	return a, nil
}

func PasswordParams(cfg *config.Config) utils.PasswordParams {
	p := utils.DefaultPasswordParams
	if cfg.Password.MemoryKiB > 0 {
		p.Memory = cfg.Password.MemoryKiB
	}
	if cfg.Password.Time > 0 {
		p.Time = cfg.Password.Time
	}
	if cfg.Password.Threads > 0 {
		p.Threads = cfg.Password.Threads
	}
	return p
}

// ServerOptions 公共中间件参数
func ServerOptions(cfg *config.Config, name string) server.Options {
	mode := "debug"
	if cfg.App.Env == "prod" || cfg.App.Env == "production" {
		mode = "release"
	}
	return server.Options{
		Name:        name,
		Mode:        mode,
		CORSOrigins: cfg.App.CORSOrigins,
		Limits: server.Limits{
			RPS:           cfg.Limits.RPS,
			Burst:         cfg.Limits.Burst,
			PerIPRPS:      cfg.Limits.PerIPRPS,
			PerIPBurst:    cfg.Limits.PerIPBurst,
			MaxConcurrent: cfg.Limits.MaxConcurrent,
			MaxBodyBytes:  cfg.Limits.MaxBodyBytes,
			Timeout:       time.Duration(cfg.Limits.TimeoutSec) * time.Second,
		},
	}
}

// Close 逆序释放
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
