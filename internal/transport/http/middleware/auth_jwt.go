package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/core/auth"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/domain"
	resp "github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/transport/http/response"
)

// AuthJWT 校验 Bearer token，把主体放进上下文。requireRole 非空则整组要求该角色
func AuthJWT(j *auth.JWTer, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		if requireRole != "" && claims.Role != requireRole {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeForbidden, ""))
			return
		}
		c.Set("claims", claims)
		c.Set("userId", claims.UID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// CallerIdentity 从上下文取回鉴权主体。未登录返回零值
func CallerIdentity(c *gin.Context) domain.Identity {
	return domain.Identity{
		UID:      c.GetString("userId"),
		Username: c.GetString("username"),
		Role:     domain.Role(c.GetString("role")),
	}
}
