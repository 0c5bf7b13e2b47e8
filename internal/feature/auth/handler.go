package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	coreauth "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/auth"
	resp "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/transport/http/response"
)

type Handler struct {
	svc   *Service
	jwter *coreauth.JWTer
	log   *zap.Logger
}

func NewHandler(svc *Service, jwter *coreauth.JWTer, log *zap.Logger) *Handler {
	return &Handler{svc: svc, jwter: jwter, log: log}
}

type registerIn struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"firstName" binding:"omitempty,max=64"`
	LastName  string `json:"lastName" binding:"omitempty,max=64"`
	Phone     string `json:"phone" binding:"omitempty,max=20"`
	Role      string `json:"role"`
}

func (h *Handler) Register(c *gin.Context) {
	var in registerIn
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
		return
	}
	u, err := h.svc.Register(c.Request.Context(), RegisterInput{
		Username:  in.Username,
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Role:      in.Role,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	tok, err := h.jwter.Issue(u.ID, u.Username, string(u.Role))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(gin.H{"token": tok, "user": u}))
}

type loginIn struct {
	// identifier 用户名或邮箱都行
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var in loginIn
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
		return
	}
	id, err := h.svc.Authenticate(c.Request.Context(), in.Identifier, in.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	tok, err := h.jwter.Issue(id.UID, id.Username, string(id.Role))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(gin.H{"token": tok, "identity": id}))
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.svc.Me(c.Request.Context(), c.GetString("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(u))
}

func (h *Handler) fail(c *gin.Context, err error) {
	if resp.IsInternal(err) {
		h.log.Error("auth request failed",
			zap.String("path", c.FullPath()),
			zap.String("rid", c.GetString("X-Request-ID")),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusOK, resp.FromError(err))
}
