package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"maildash/backend/internal/domain"
	"maildash/backend/internal/mailin"
	"maildash/backend/internal/storage"
)

// ErrNoRecipientMatched 全部收件人都没有对应账户，整次投递不落库
var ErrNoRecipientMatched = errors.New("no recipient matched")

// MailNotifier 新邮件通知接口（由 websocket hub 实现）
type MailNotifier interface {
	NotifyNewMail(userID string, message *domain.Message)
}

// IngestService 入站邮件摄取流水线：逐个收件人解析别名、批量落库。
// 同一次投递里未匹配的收件人只记入 missed，不影响其余收件人的处理。
type IngestService struct {
	store    storage.Store
	notifier MailNotifier
	log      *zap.Logger
}

// NewIngestService 创建摄取服务
func NewIngestService(store storage.Store, log *zap.Logger) *IngestService {
	return &IngestService{
		store: store,
		log:   log,
	}
}

// SetNotifier 设置新邮件通知器（可选）
func (s *IngestService) SetNotifier(notifier MailNotifier) {
	s.notifier = notifier
}

// IngestResult 一次投递的处理结果
type IngestResult struct {
	Created []domain.Message // 成功落库的邮件行
	Missed  []string         // 未匹配到账户的收件地址
}

// Ingest 处理一封规范化后的入站邮件。
//
// 收件人解析是部分成功语义：解析失败的地址收集进 missed；
// 落库是整批语义：任何一行写入失败则整批失败并返回存储错误。
// 未按 message_id 去重，同一负载投递两次会产生两行记录。
func (s *IngestService) Ingest(mail *mailin.InboundMail) (*IngestResult, error) {
	result := &IngestResult{
		Created: make([]domain.Message, 0, len(mail.Recipients)),
		Missed:  make([]string, 0),
	}

	type resolved struct {
		recipient string
		account   *domain.Account
	}
	matches := make([]resolved, 0, len(mail.Recipients))

	for _, recipient := range mail.Recipients {
		alias := domain.AliasFromAddress(recipient)
		account, err := s.store.GetAccountByAlias(alias)
		if err != nil {
			if errors.Is(err, storage.ErrAccountNotFound) {
				s.log.Info("recipient not matched",
					zap.String("recipient", recipient),
					zap.String("alias", alias),
				)
				result.Missed = append(result.Missed, recipient)
				continue
			}
			return nil, fmt.Errorf("failed to resolve recipient %s: %w", recipient, err)
		}
		matches = append(matches, resolved{recipient: recipient, account: account})
	}

	if len(matches) == 0 {
		return result, ErrNoRecipientMatched
	}

	now := time.Now()
	rows := make([]*domain.Message, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, &domain.Message{
			ID:          uuid.New().String(),
			UserID:      m.account.ID,
			FromEmail:   mail.From,
			ToEmail:     m.recipient,
			Subject:     mail.Subject,
			Body:        mail.Text,
			HTMLBody:    mail.HTML,
			Type:        domain.MessageIncoming,
			IsRead:      false,
			MessageID:   mail.MessageID,
			ReceivedAt:  &now,
			Attachments: mail.Attachments,
			Metadata: domain.Metadata{
				"raw_webhook":        mail.Raw,
				"received_timestamp": now.Format(time.RFC3339),
			},
			CreatedAt: now,
		})
	}

	if err := s.store.CreateMessages(rows); err != nil {
		return nil, fmt.Errorf("failed to store messages: %w", err)
	}

	for _, row := range rows {
		result.Created = append(result.Created, *row)
		if s.notifier != nil {
			s.notifier.NotifyNewMail(row.UserID, row)
		}
	}

	s.log.Info("inbound mail ingested",
		zap.String("from", mail.From),
		zap.Int("created", len(result.Created)),
		zap.Int("missed", len(result.Missed)),
	)

	return result, nil
}
