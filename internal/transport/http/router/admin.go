package router

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	coreauth "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/auth"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/feature/listing"
	mdw "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/transport/http/middleware"
)

type AdminDeps struct {
	Log      *zap.Logger
	DB       *gorm.DB
	JWTer    *coreauth.JWTer
	Listings *listing.Service
}

func NewAdminEngine(d AdminDeps) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(50, 100),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		ginzap.Ginzap(d.Log, time.RFC3339, true),
		ginzap.RecoveryWithZap(d.Log, true),
		mdw.Metrics(),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 管理端 v1，整组要求 admin 角色
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.JWTer, "admin"))

	MountAdminActions(admin, d)

	return r
}
