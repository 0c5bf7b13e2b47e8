package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	coreauth "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/auth"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/cache"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/config"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/database"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/logger"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/server"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/storage"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/feature/listing"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/repo"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	jwter := &coreauth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	imgStore, err := storage.NewImageStore(cfg.Storage.Dir, cfg.Storage.BaseURL, cfg.Upload.MaxImageMB, log)
	if err != nil {
		log.Fatal("image store init", zap.Error(err))
	}

	var c *cache.Cache
	if cfg.Redis.Addr != "" {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}

	users := repo.NewUserRepo(db)
	props := repo.NewPropertyRepo(db)
	listingSvc := listing.NewService(props, users, imgStore, c,
		time.Duration(cfg.Upload.CacheTTLSec)*time.Second, log)

	r := router.NewAdminEngine(router.AdminDeps{
		Log:      log,
		DB:       db,
		JWTer:    jwter,
		Listings: listingSvc,
	})

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 10*time.Second, 10*time.Second, 60*time.Second)

	go func() {
		if err := server.StartHTTP(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("admin api start FAILED", zap.Error(err))
		}
	}()
	log.Info("admin api started", zap.String("addr", addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("admin api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
