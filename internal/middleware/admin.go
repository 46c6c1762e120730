package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"maildash/backend/internal/auth"
	"maildash/backend/internal/domain"
)

// AdminAuth 管理员权限中间件
type AdminAuth struct {
	authService *auth.Service
}

// NewAdminAuth 创建管理员权限中间件
func NewAdminAuth(authService *auth.Service) *AdminAuth {
	return &AdminAuth{
		authService: authService,
	}
}

// RequireAdmin 要求管理员权限。
// 需要先经过 JWT 中间件；账户信息会写入上下文供后续 handler 使用。
func (a *AdminAuth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := a.loadAccount(c)
		if !ok {
			return
		}

		if !account.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "admin access required"})
			c.Abort()
			return
		}

		c.Set("account", account)
		c.Next()
	}
}

// RequireAccount 只要求账户存在（不校验角色）
func (a *AdminAuth) RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := a.loadAccount(c)
		if !ok {
			return
		}
		c.Set("account", account)
		c.Next()
	}
}

// loadAccount 从 JWT 上下文加载账户，失败时写好响应并中断
func (a *AdminAuth) loadAccount(c *gin.Context) (*domain.Account, bool) {
	userIDVal, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
		c.Abort()
		return nil, false
	}

	userID, ok := userIDVal.(string)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid user context"})
		c.Abort()
		return nil, false
	}

	account, err := a.authService.GetAccountByID(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user not found"})
		c.Abort()
		return nil, false
	}
	return account, true
}

// AccountFromContext 取出上下文里的账户
func AccountFromContext(c *gin.Context) (*domain.Account, bool) {
	val, exists := c.Get("account")
	if !exists {
		return nil, false
	}
	account, ok := val.(*domain.Account)
	return account, ok
}
