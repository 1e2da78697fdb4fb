package app

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"kitshed/db"
	"kitshed/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Aliases for handlers.
type Ctx = gin.Context
type H = gin.H

// App aggregates the shared dependencies.
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Log    *zap.Logger
	Config Config
}

// Config is read from environment variables.
type Config struct {
	RedisAddr     string
	RedisPwd      string
	WebOrigin     string
	IdentityURL   string
	SweepInterval time.Duration
	LogLevel      string
	LogFormat     string
}

func MustNew() *App {
	cfg := loadConfig()

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	// --- DB: Postgres ---
	dbConn := db.ConnectDB()

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zl.Fatal("redis", zap.Error(err))
	}

	// --- Gin ---
	r := gin.Default()
	useCORS(r, cfg.WebOrigin)

	return &App{Router: r, DB: dbConn, RDB: rdb, Log: zl, Config: cfg}
}

func (a *App) Close() {
	_ = a.RDB.Close()
	_ = a.Log.Sync()
}

func loadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}

	sweep := 5 * time.Minute
	if sec, err := strconv.Atoi(get("SWEEP_INTERVAL_SECONDS", "300")); err == nil && sec > 0 {
		sweep = time.Duration(sec) * time.Second
	}

	return Config{
		RedisAddr:     get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:      os.Getenv("REDIS_PASSWORD"),
		WebOrigin:     strings.TrimSpace(get("WEB_ORIGIN", "http://localhost:3000")),
		IdentityURL:   get("IDENTITY_URL", "http://localhost:4000"),
		SweepInterval: sweep,
		LogLevel:      get("LOG_LEVEL", "info"),
		LogFormat:     get("LOG_FORMAT", "json"),
	}
}
