package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maildash/backend/internal/domain"
	"maildash/backend/internal/middleware"
	"maildash/backend/internal/monitoring"
	"maildash/backend/internal/service"
)

// ForwardingHandler 处理转发配置的读写
type ForwardingHandler struct {
	forwarding *service.ForwardingService
	metrics    *monitoring.Metrics
	log        *zap.Logger
}

// NewForwardingHandler 创建转发处理器
func NewForwardingHandler(forwarding *service.ForwardingService, metrics *monitoring.Metrics, log *zap.Logger) *ForwardingHandler {
	return &ForwardingHandler{
		forwarding: forwarding,
		metrics:    metrics,
		log:        log,
	}
}

type setForwardingRequest struct {
	// null 或空字符串表示关闭转发
	ForwardTo *string `json:"forward_to"`
}

// GetForwarding 返回当前账户的转发配置
func (h *ForwardingHandler) GetForwarding(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	config := h.forwarding.Get(account)
	OK(c, gin.H{"forwarding": config})
}

// SetForwarding 更新转发地址并尽力同步 DNS。
// 数据库更新成功即返回成功；DNS 同步失败通过 warning 字段上报。
func (h *ForwardingHandler) SetForwarding(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req setForwardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.forwarding.Set(c.Request.Context(), account, req.ForwardTo)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidEmail) {
			BadRequest(c, GetErrorMessage(err))
			return
		}
		h.log.Error("failed to update forwarding",
			zap.String("user_id", account.ID),
			zap.Error(err),
		)
		InternalError(c, MsgStorageFailed)
		return
	}

	h.metrics.RecordForwardingUpdate()
	if result.DNSWarning != "" {
		h.metrics.RecordDNSSyncFailure()
	}

	response := gin.H{"forwarding": result.Config}
	if result.DNSWarning != "" {
		response["warning"] = result.DNSWarning
	}
	OK(c, response)
}
