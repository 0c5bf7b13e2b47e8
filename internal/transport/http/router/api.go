package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	coreauth "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/auth"
	featauth "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/feature/auth"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/feature/listing"
	mdw "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/transport/http/middleware"
)

type APIDeps struct {
	Log      *zap.Logger
	JWTer    *coreauth.JWTer
	Auth     *featauth.Handler
	Listings *listing.Handler
	MediaURL string // 图片静态前缀，如 /media/property_images
	MediaDir string
}

func NewAPIEngine(d APIDeps) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(64<<20), // 多图上传，放宽一点
		mdw.Timeout(30*time.Second),
		mdw.SimpleRecovery(d.Log),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
		cors.Default(),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	// 图片二进制走静态路由，库里只有引用
	if d.MediaURL != "" && d.MediaDir != "" {
		r.Static(d.MediaURL, d.MediaDir)
	}

	api := r.Group("/api/v1")

	// 公共：注册/登录 + 房源浏览
	api.POST("/auth/register", d.Auth.Register)
	api.POST("/auth/login", d.Auth.Login)
	api.GET("/properties", d.Listings.List)
	api.GET("/properties/:id", d.Listings.Get)

	// 登录态：发布/编辑/删除 + 我的
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(d.JWTer, ""))
	authed.GET("/me", d.Auth.Me)
	authed.GET("/my/properties", d.Listings.Mine)
	authed.POST("/properties", d.Listings.Create)
	authed.PUT("/properties/:id", d.Listings.Update)
	authed.DELETE("/properties/:id", d.Listings.Delete)

	return r
}
