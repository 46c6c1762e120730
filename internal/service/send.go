package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"maildash/backend/internal/domain"
	"maildash/backend/internal/mailout"
	"maildash/backend/internal/storage"
)

var (
	// ErrMissingSendFields 缺少必填字段
	ErrMissingSendFields = errors.New("missing required fields: to, subject, or body")
	// ErrNoRecipients 收件人列表为空
	ErrNoRecipients = errors.New("recipient list is empty")
)

// InvalidRecipientsError 含有非法收件地址，整个请求被拒绝
type InvalidRecipientsError struct {
	Invalid []string
}

func (e *InvalidRecipientsError) Error() string {
	return "invalid email address(es): " + strings.Join(e.Invalid, ", ")
}

// SendService 出站发送流水线：校验收件人、调用出站 API、落一行发件记录。
type SendService struct {
	messages storage.MessageRepository
	sender   mailout.Sender
	log      *zap.Logger
}

// NewSendService 创建发送服务
func NewSendService(messages storage.MessageRepository, sender mailout.Sender, log *zap.Logger) *SendService {
	return &SendService{
		messages: messages,
		sender:   sender,
		log:      log,
	}
}

// SendInput 发送请求
type SendInput struct {
	To       string // 逗号或分号分隔的收件人列表
	Subject  string
	Body     string
	HTMLBody string
}

// SendOutcome 发送结果。
// StorageWarning 非空表示邮件已发出但发件记录落库失败，以不重复发送为先。
type SendOutcome struct {
	Message        *domain.Message
	StorageWarning string
}

// Send 发送一封邮件并记录发件副本。
//
// 任何一个收件地址非法都会在调用外部 API 之前拒绝整个请求。
// 发送成功后的落库失败降级为警告：邮件确实已经发出，不能为了补记录而重发。
func (s *SendService) Send(ctx context.Context, account *domain.Account, input SendInput) (*SendOutcome, error) {
	if input.To == "" || input.Subject == "" || input.Body == "" {
		return nil, ErrMissingSendFields
	}

	recipients, err := ParseRecipients(input.To)
	if err != nil {
		return nil, err
	}

	_, err = s.sender.Send(ctx, mailout.SendRequest{
		Sender:   account.Email,
		To:       recipients,
		Subject:  input.Subject,
		TextBody: input.Body,
		HTMLBody: input.HTMLBody,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	htmlBody := input.HTMLBody
	if htmlBody == "" {
		htmlBody = strings.ReplaceAll(input.Body, "\n", "<br>")
	}

	now := time.Now()
	message := &domain.Message{
		ID:        uuid.New().String(),
		UserID:    account.ID,
		FromEmail: account.Email,
		ToEmail:   strings.Join(recipients, ", "),
		Subject:   input.Subject,
		Body:      input.Body,
		HTMLBody:  htmlBody,
		Type:      domain.MessageOutgoing,
		IsRead:    true, // 发出的邮件视为已读
		SentAt:    &now,
		CreatedAt: now,
	}

	outcome := &SendOutcome{Message: message}

	if err := s.messages.CreateMessages([]*domain.Message{message}); err != nil {
		s.log.Error("sent mail not stored",
			zap.String("user_id", account.ID),
			zap.Error(err),
		)
		outcome.StorageWarning = "email sent but not stored in database"
	}

	return outcome, nil
}

// ParseRecipients 把逗号/分号分隔的收件串拆成地址列表并逐个校验形状。
// 返回 InvalidRecipientsError 时应整体拒绝请求。
func ParseRecipients(to string) ([]string, error) {
	parts := strings.FieldsFunc(to, func(r rune) bool {
		return r == ',' || r == ';'
	})

	recipients := make([]string, 0, len(parts))
	invalid := make([]string, 0)
	for _, part := range parts {
		addr := strings.TrimSpace(part)
		if addr == "" {
			continue
		}
		if err := domain.ValidateEmail(addr); err != nil {
			invalid = append(invalid, addr)
			continue
		}
		recipients = append(recipients, addr)
	}

	if len(invalid) > 0 {
		return nil, &InvalidRecipientsError{Invalid: invalid}
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	return recipients, nil
}
