package httptransport

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maildash/backend/internal/middleware"
	"maildash/backend/internal/monitoring"
	"maildash/backend/internal/service"
)

// EmailHandler 处理邮件列表、已读标记和发送相关的 HTTP 请求
type EmailHandler struct {
	messages *service.MessageService
	send     *service.SendService
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// NewEmailHandler 创建邮件处理器
func NewEmailHandler(messages *service.MessageService, send *service.SendService, metrics *monitoring.Metrics, log *zap.Logger) *EmailHandler {
	return &EmailHandler{
		messages: messages,
		send:     send,
		metrics:  metrics,
		log:      log,
	}
}

type listEmailsQuery struct {
	Type   string `form:"type"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type markReadRequest struct {
	ID     string `json:"id" binding:"required"`
	IsRead *bool  `json:"is_read" binding:"required"`
}

// recipientField 发送请求的 to 字段，负载里可能是字符串或字符串数组，
// 数组形状合并成逗号分隔串后走同一条收件人解析路径
type recipientField string

func (r *recipientField) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*r = recipientField(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*r = recipientField(strings.Join(list, ", "))
	return nil
}

type sendRequest struct {
	To       recipientField `json:"to" binding:"required"`
	Subject  string         `json:"subject" binding:"required"`
	Body     string         `json:"body" binding:"required"`
	HTMLBody string         `json:"html_body"`
}

// ListEmails 返回当前账户的邮件列表
func (h *EmailHandler) ListEmails(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var query listEmailsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.messages.List(service.ListInput{
		UserID: account.ID,
		Type:   query.Type,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidMessageType) {
			BadRequest(c, GetErrorMessage(err))
			return
		}
		h.log.Error("failed to list emails", zap.String("user_id", account.ID), zap.Error(err))
		InternalError(c, MsgStorageFailed)
		return
	}

	OK(c, gin.H{
		"emails": result.Messages,
		"total":  result.Total,
		"limit":  result.Limit,
		"offset": result.Offset,
	})
}

// MarkRead 更新邮件的已读标记
func (h *EmailHandler) MarkRead(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	message, err := h.messages.MarkRead(account.ID, req.ID, *req.IsRead)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			NotFound(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrNotMessageOwner):
			Forbidden(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to mark email read", zap.String("message_id", req.ID), zap.Error(err))
			InternalError(c, MsgStorageFailed)
		}
		return
	}

	if *req.IsRead {
		h.metrics.RecordMessageRead()
	}

	OK(c, gin.H{"email": message})
}

// SendEmail 发送一封邮件并返回发件记录。
// 发送成功但落库失败时仍返回成功，附带 warning 字段。
func (h *EmailHandler) SendEmail(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	outcome, err := h.send.Send(c.Request.Context(), account, service.SendInput{
		To:       string(req.To),
		Subject:  req.Subject,
		Body:     req.Body,
		HTMLBody: req.HTMLBody,
	})
	if err != nil {
		var invalid *service.InvalidRecipientsError
		switch {
		case errors.Is(err, service.ErrMissingSendFields), errors.Is(err, service.ErrNoRecipients):
			BadRequest(c, GetErrorMessage(err))
		case errors.As(err, &invalid):
			BadRequest(c, invalid.Error())
		default:
			h.log.Error("failed to send email",
				zap.String("user_id", account.ID),
				zap.Error(err),
			)
			h.metrics.RecordError("upstream", "mailout")
			InternalError(c, MsgSendFailed)
		}
		return
	}

	h.metrics.RecordMessageSent()

	response := gin.H{"email": outcome.Message}
	if outcome.StorageWarning != "" {
		response["warning"] = outcome.StorageWarning
	}
	OK(c, response)
}
