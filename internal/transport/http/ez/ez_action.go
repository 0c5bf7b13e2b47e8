package ez

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	resp "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/transport/http/response"
)

// 轻量动作注册：入参绑定 + 角色检查 + 统一响应，handler 只写业务

type Ez struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) *Ez { return &Ez{g: g, log: l} }

type BindMode int

const (
	BindNone BindMode = iota
	BindJSON
	BindQuery
)

type Action[In any, Out any] struct {
	Method  string
	Path    string
	Binder  BindMode
	Auth    bool     // 需要已登录（分组中间件之外的双保险）
	Roles   []string // 非空则要求角色命中其一
	Handler func(c *gin.Context, tx *gorm.DB, in *In) (Out, error)
}

func RegisterAction[In any, Out any](e *Ez, db *gorm.DB, a Action[In, Out]) {
	e.g.Handle(a.Method, a.Path, func(c *gin.Context) {
		if a.Auth && c.GetString("userId") == "" {
			c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}
		if len(a.Roles) > 0 && !roleHit(c.GetString("role"), a.Roles) {
			c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, ""))
			return
		}

		var in In
		switch a.Binder {
		case BindJSON:
			if err := c.ShouldBindJSON(&in); err != nil {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
				return
			}
		case BindQuery:
			if err := c.ShouldBindQuery(&in); err != nil {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
				return
			}
		}

		out, err := a.Handler(c, db, &in)
		if err != nil {
			if he, ok := err.(*HTTPErr); ok {
				if he.Err != nil {
					e.log.Error("action failed",
						zap.String("path", a.Path),
						zap.String("msg", he.Msg),
						zap.Error(he.Err),
					)
				}
				c.JSON(http.StatusOK, resp.Error(he.Code, he.Msg))
				return
			}
			if resp.IsInternal(err) {
				e.log.Error("action failed", zap.String("path", a.Path), zap.Error(err))
			}
			c.JSON(http.StatusOK, resp.FromError(err))
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	})
}

func roleHit(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// HTTPErr handler 里直接指定响应码的错误
type HTTPErr struct {
	Code int
	Msg  string
	Err  error // 内部原因，只进日志不出响应
}

func (e *HTTPErr) Error() string { return e.Msg }
func (e *HTTPErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error { return &HTTPErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error {
	return &HTTPErr{Code: resp.CodeUnauthorized, Msg: msg}
}
func Forbidden(msg string) error { return &HTTPErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error  { return &HTTPErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &HTTPErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}
