package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maildash/backend/internal/middleware"
	"maildash/backend/internal/monitoring"
	"maildash/backend/internal/service"
)

// AdminHandler 处理用户管理相关的 HTTP 请求
type AdminHandler struct {
	admin   *service.AdminService
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(admin *service.AdminService, metrics *monitoring.Metrics, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		admin:   admin,
		metrics: metrics,
		log:     log,
	}
}

type deleteUserRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// ListUsers 返回全部账户列表（仅管理员）
func (h *AdminHandler) ListUsers(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	accounts, err := h.admin.ListAccounts(account)
	if err != nil {
		if errors.Is(err, service.ErrAdminRequired) {
			Forbidden(c, GetErrorMessage(err))
			return
		}
		h.log.Error("failed to list accounts", zap.Error(err))
		InternalError(c, MsgStorageFailed)
		return
	}

	users := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		users = append(users, toAccountResponse(&accounts[i]))
	}

	OK(c, gin.H{"users": users})
}

// DeleteUser 删除一个账户（本人或管理员）。
// 先尝试清理别名的 DNS 规则再删账户；DNS 失败不阻塞删除，
// 结果通过 dnsDeleted / dnsError 字段如实上报。
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req deleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.admin.DeleteAccount(c.Request.Context(), account, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAdminRequired):
			Forbidden(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrCannotDeleteSelf), errors.Is(err, service.ErrCannotDeleteAdmin):
			Forbidden(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrUserNotFound):
			NotFound(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to delete account",
				zap.String("target_id", req.UserID),
				zap.Error(err),
			)
			InternalError(c, MsgStorageFailed)
		}
		return
	}

	h.metrics.RecordAccountDeleted()
	h.log.Info("account deleted",
		zap.String("actor_id", account.ID),
		zap.String("alias", result.Alias),
		zap.Bool("dns_deleted", result.DNSDeleted),
	)

	response := gin.H{
		"alias":      result.Alias,
		"dnsDeleted": result.DNSDeleted,
	}
	if result.DNSError != "" {
		response["dnsError"] = result.DNSError
	}
	OK(c, response)
}
