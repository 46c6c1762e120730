package httptransport

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maildash/backend/internal/mailin"
	"maildash/backend/internal/monitoring"
	"maildash/backend/internal/service"
)

// WebhookHandler 处理入站邮件 webhook
type WebhookHandler struct {
	parser   *mailin.Parser
	ingest   *service.IngestService
	messages *service.MessageService
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// NewWebhookHandler 创建 webhook 处理器
func NewWebhookHandler(parser *mailin.Parser, ingest *service.IngestService, messages *service.MessageService, metrics *monitoring.Metrics, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		parser:   parser,
		ingest:   ingest,
		messages: messages,
		metrics:  metrics,
		log:      log,
	}
}

// HandleIncomingMail 摄取入站邮件。
//
// 解析失败返回 400，零收件人匹配返回 404，批量落库失败返回 500。
// 部分收件人未匹配不算失败，未匹配地址收进 missed 一并返回。
func (h *WebhookHandler) HandleIncomingMail(c *gin.Context) {
	start := time.Now()
	h.metrics.RecordWebhook()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.metrics.RecordWebhookRejected("body_read")
		BadRequest(c, MsgInvalidRequest)
		return
	}

	mail, err := h.parser.Parse(c.GetHeader("Content-Type"), body)
	if err != nil {
		h.metrics.RecordWebhookRejected("unparsable")
		h.log.Warn("rejected unparsable webhook payload",
			zap.String("content_type", c.GetHeader("Content-Type")),
			zap.Int("body_size", len(body)),
			zap.Error(err),
		)
		BadRequest(c, MsgUnparsableWebhook)
		return
	}

	result, err := h.ingest.Ingest(mail)
	if err != nil {
		if errors.Is(err, service.ErrNoRecipientMatched) {
			h.metrics.RecordIngest(0, len(result.Missed), time.Since(start))
			h.log.Info("webhook matched no recipients",
				zap.String("from", mail.From),
				zap.Strings("missed", result.Missed),
			)
			NotFound(c, GetErrorMessage(err))
			return
		}
		h.metrics.RecordError("storage", "ingest")
		h.log.Error("failed to store inbound messages",
			zap.String("from", mail.From),
			zap.Error(err),
		)
		InternalError(c, MsgStorageFailed)
		return
	}

	h.metrics.RecordIngest(len(result.Created), len(result.Missed), time.Since(start))

	OK(c, gin.H{
		"created_count": len(result.Created),
		"created":       result.Created,
		"missed":        result.Missed,
	})
}

// WebhookStatus 返回最近摄取的入站邮件摘要，用于人工确认 webhook 链路是否通畅
func (h *WebhookHandler) WebhookStatus(c *gin.Context) {
	recent, err := h.messages.RecentIncoming(10)
	if err != nil {
		h.log.Error("failed to load recent messages", zap.Error(err))
		InternalError(c, MsgStorageFailed)
		return
	}

	summaries := make([]gin.H, 0, len(recent))
	for _, msg := range recent {
		summaries = append(summaries, gin.H{
			"id":         msg.ID,
			"from_email": msg.FromEmail,
			"to_email":   msg.ToEmail,
			"subject":    msg.Subject,
			"created_at": msg.CreatedAt,
		})
	}

	OK(c, gin.H{
		"endpoint": "ready",
		"recent":   summaries,
	})
}
