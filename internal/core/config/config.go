package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"menu-catalog/internal/core/auth"
)

const secretLen = 32

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host  string
	Port  int
	Users []string // 管理员用户名；为空时任何登录用户都可访问管理端
}

type App struct {
	Name           string
	Env            string
	HTTP           HTTP
	Admin          AdminHTTP
	CORSOrigins    []string `mapstructure:"corsOrigins"`
	UTCOffsetHours int      `mapstructure:"utcOffsetHours"` // dish.created_at 的时区
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret    string
	Issuer    string
	ExpirySec int
	LeewaySec int
}

// Password Argon2id 代价参数
type Password struct {
	MemoryKiB uint32
	Time      uint32
	Threads   uint8
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Catalog struct {
	Atomic          bool // 多步写操作是否包事务
	MenuCacheTTLSec int
}

type Limits struct {
	RPS           float64
	Burst         int
	PerIPRPS      float64 `mapstructure:"perIPRPS"`
	PerIPBurst    int     `mapstructure:"perIPBurst"`
	MaxConcurrent int64
	MaxBodyBytes  int64
	TimeoutSec    int
}

type Config struct {
	App      App
	Log      Log
	JWT      JWT
	Password Password
	DB       DB
	Redis    Redis `mapstructure:"redis"`
	Catalog  Catalog
	Limits   Limits
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "menu-catalog")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "127.0.0.1")
	v.SetDefault("app.http.port", 8008)
	v.SetDefault("app.http.readTimeoutSec", 10)
	v.SetDefault("app.http.writeTimeoutSec", 10)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8009)
	v.SetDefault("app.admin.users", []string{})
	v.SetDefault("app.corsOrigins", []string{"http://localhost:5173"})
	v.SetDefault("app.utcOffsetHours", 8)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", true)
	v.SetDefault("log.file.filename", "data/log/order.log")
	v.SetDefault("log.file.maxSizeMB", 100)
	v.SetDefault("log.file.maxBackups", 7)
	v.SetDefault("log.file.maxAgeDays", 30)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.expirySec", 86400)
	v.SetDefault("jwt.leewaySec", 0)

	v.SetDefault("password.memoryKiB", 19*1024)
	v.SetDefault("password.time", 2)
	v.SetDefault("password.threads", 1)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "data/data.db")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 16)
	v.SetDefault("db.maxIdleConns", 4)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("catalog.atomic", false)
	v.SetDefault("catalog.menuCacheTTLSec", 60)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.perIPRPS", 20)
	v.SetDefault("limits.perIPBurst", 40)
	v.SetDefault("limits.maxConcurrent", 300)
	v.SetDefault("limits.maxBodyBytes", 16<<20)
	v.SetDefault("limits.timeoutSec", 10)
}

// MustLoad 失败直接退出
func MustLoad(path string) *Config {
	c, err := Load(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return c
}

// Load 读取 YAML 配置并叠加 APP_* 环境变量。
// 文件不存在时按默认值创建；jwt.secret 为空时生成并写回文件，后续启动复用。
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	missing := false
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		missing = true
		log.Printf("[config] %s not found, creating with defaults", path)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	dirty := missing
	if c.JWT.Secret == "" {
		s, err := auth.GenerateSecret(secretLen)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		c.JWT.Secret = s
		v.Set("jwt.secret", s)
		dirty = true
	}
	if dirty {
		if err := persist(v, path); err != nil {
			// 写不回去也能跑，只是下次重启 secret 会变、已发的 token 失效
			log.Printf("[config] persist %s failed: %v", path, err)
		}
	}
	return &c, nil
}

func persist(v *viper.Viper, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return v.WriteConfigAs(path)
}
