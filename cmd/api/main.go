package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	coreauth "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/auth"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/cache"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/config"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/database"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/logger"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/server"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/storage"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/domain"
	featauth "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/feature/auth"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/feature/listing"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/repo"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))

	log, cleanup := logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate{
		Enable:     cfg.Log.File.Enable,
		Filename:   cfg.Log.File.Path,
		MaxSizeMB:  cfg.Log.File.MaxSizeMB,
		MaxBackups: cfg.Log.File.MaxBackups,
		MaxAgeDays: cfg.Log.File.MaxAgeDays,
		Compress:   cfg.Log.File.Compress,
	})
	defer cleanup()
	undo := logger.RedirectStdLog(log, zapcore.InfoLevel)
	defer undo()

	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(&domain.User{}, &domain.Property{}, &domain.PropertyImage{}); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

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
		log.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	users := repo.NewUserRepo(db)
	props := repo.NewPropertyRepo(db)

	authSvc := featauth.NewService(users, log)
	listingSvc := listing.NewService(props, users, imgStore, c,
		time.Duration(cfg.Upload.CacheTTLSec)*time.Second, log)

	r := router.NewAPIEngine(router.APIDeps{
		Log:      log,
		JWTer:    jwter,
		Auth:     featauth.NewHandler(authSvc, jwter, log),
		Listings: listing.NewHandler(listingSvc, cfg.Upload.MaxImages, log),
		MediaURL: imgStore.BaseURL(),
		MediaDir: imgStore.BaseDir(),
	})

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("listing api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listing api start FAILED", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("listing api stopped gracefully")
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
