package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maildash/backend/internal/auth"
	jwtpkg "maildash/backend/internal/auth/jwt"
	"maildash/backend/internal/domain"
	"maildash/backend/internal/middleware"
	"maildash/backend/internal/monitoring"
	"maildash/backend/internal/service"
)

// AuthHandler 处理注册、登录和口令校验相关的 HTTP 请求
type AuthHandler struct {
	authService *auth.Service
	forwarding  *service.ForwardingService
	jwtManager  *jwtpkg.Manager
	metrics     *monitoring.Metrics
	log         *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service, forwarding *service.ForwardingService, jwtManager *jwtpkg.Manager, metrics *monitoring.Metrics, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		forwarding:  forwarding,
		jwtManager:  jwtManager,
		metrics:     metrics,
		log:         log,
	}
}

type signupRequest struct {
	Alias      string `json:"alias" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Passphrase string `json:"passphrase"`
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type passphraseRequest struct {
	Passphrase string `json:"passphrase"`
}

type accountResponse struct {
	ID        string  `json:"id"`
	Alias     string  `json:"alias"`
	Email     string  `json:"email"`
	ForwardTo *string `json:"forward_to"`
	Role      string  `json:"role"`
}

func toAccountResponse(account *domain.Account) accountResponse {
	return accountResponse{
		ID:        account.ID,
		Alias:     account.Alias,
		Email:     account.Email,
		ForwardTo: account.ForwardTo,
		Role:      string(account.Role),
	}
}

// Signup 处理注册请求。
// 注册成功后尽力为新别名登记 DNS 转发规则，失败只记日志不阻塞注册。
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.authService.Register(auth.RegisterInput{
		Alias:      req.Alias,
		Password:   req.Password,
		Passphrase: req.Passphrase,
	})
	if err != nil {
		switch err {
		case auth.ErrRegistrationClosed:
			Forbidden(c, GetErrorMessage(err))
		case auth.ErrPassphraseRequired, auth.ErrPassphraseMismatch:
			Unauthorized(c, GetErrorMessage(err))
		case auth.ErrAliasExists:
			Conflict(c, GetErrorMessage(err))
		case domain.ErrAliasTooShort, domain.ErrAliasTooLong, domain.ErrInvalidAlias,
			domain.ErrPasswordTooShort, domain.ErrPasswordTooLong:
			BadRequest(c, GetErrorMessage(err))
		default:
			h.log.Error("signup failed", zap.Error(err))
			InternalError(c, MsgInternalError)
		}
		return
	}

	if err := h.forwarding.ProvisionAlias(c.Request.Context(), account.Alias); err != nil {
		h.log.Warn("dns provisioning failed for new alias",
			zap.String("alias", account.Alias),
			zap.Error(err),
		)
	}

	token, err := h.jwtManager.GenerateToken(account.ID, account.Alias, string(account.Role))
	if err != nil {
		h.log.Error("failed to generate token", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	h.metrics.RecordAccountRegistered()
	h.log.Info("account registered",
		zap.String("user_id", account.ID),
		zap.String("alias", account.Alias),
	)

	Created(c, gin.H{
		"user":      toAccountResponse(account),
		"token":     token,
		"expiresIn": h.jwtManager.AccessExpiry(),
	})
}

// Login 处理登录请求，identifier 可以是别名或完整邮箱地址
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.authService.Login(auth.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		Unauthorized(c, MsgInvalidCredentials)
		return
	}

	token, err := h.jwtManager.GenerateToken(account.ID, account.Alias, string(account.Role))
	if err != nil {
		h.log.Error("failed to generate token", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	OK(c, gin.H{
		"user":      toAccountResponse(account),
		"token":     token,
		"expiresIn": h.jwtManager.AccessExpiry(),
	})
}

// Me 返回当前登录账户信息
func (h *AuthHandler) Me(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	OK(c, gin.H{"user": toAccountResponse(account)})
}

// VerifyPassphrase 校验注册口令。
// 长度不匹配时直接返回 401，长度相同时走常数时间比较。
func (h *AuthHandler) VerifyPassphrase(c *gin.Context) {
	var req passphraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.authService.VerifyPassphrase(req.Passphrase); err != nil {
		Unauthorized(c, GetErrorMessage(err))
		return
	}

	OK(c, gin.H{"ok": true})
}
