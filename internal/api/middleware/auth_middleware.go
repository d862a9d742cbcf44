package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"talenthub/internal/auth"
)

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验访问令牌并将 userID 与角色注入上下文。
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		rawToken := parts[1]
		if strings.TrimSpace(rawToken) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken)
		if err != nil || claims.TokenType != "access" {
			abortUnauthorized(c)
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)
		c.Next()
	}
}

// RequireRole 限制路由只允许指定角色访问，须挂在 AuthMiddleware 之后。
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("userRole")
		if !exists {
			abortUnauthorized(c)
			return
		}
		if actual, ok := value.(string); !ok || actual != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}
