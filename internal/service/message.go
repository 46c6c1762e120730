package service

import (
	"errors"

	"maildash/backend/internal/domain"
	"maildash/backend/internal/storage"
)

var (
	// ErrMessageNotFound 邮件不存在
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotMessageOwner 邮件不属于当前账户
	ErrNotMessageOwner = errors.New("not the owner of this message")
	// ErrInvalidMessageType 非法的邮件类型过滤条件
	ErrInvalidMessageType = errors.New("invalid message type")
)

// 分页默认与上限
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// MessageService 收发件箱的读取与已读标记。
type MessageService struct {
	messages storage.MessageRepository
}

// NewMessageService 创建邮件服务
func NewMessageService(messages storage.MessageRepository) *MessageService {
	return &MessageService{messages: messages}
}

// ListInput 列表查询参数
type ListInput struct {
	UserID string
	Type   string // "incoming" / "outgoing" / 空值表示全部
	Limit  int
	Offset int
}

// ListResult 列表查询结果
type ListResult struct {
	Messages []domain.Message
	Total    int64
	Limit    int
	Offset   int
}

// List 按类型过滤并分页返回账户的邮件
func (s *MessageService) List(input ListInput) (*ListResult, error) {
	var msgType domain.MessageType
	switch input.Type {
	case "":
		msgType = ""
	case string(domain.MessageIncoming):
		msgType = domain.MessageIncoming
	case string(domain.MessageOutgoing):
		msgType = domain.MessageOutgoing
	default:
		return nil, ErrInvalidMessageType
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	messages, total, err := s.messages.ListMessages(storage.MessageFilter{
		UserID: input.UserID,
		Type:   msgType,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Messages: messages,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// MarkRead 翻转已读标记。只有属主能操作自己的邮件。
func (s *MessageService) MarkRead(userID, messageID string, isRead bool) (*domain.Message, error) {
	msg, err := s.messages.GetMessage(messageID)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if msg.UserID != userID {
		return nil, ErrNotMessageOwner
	}

	updated, err := s.messages.MarkMessageRead(messageID, isRead)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return updated, nil
}

// RecentIncoming 跨账户返回最近的入站邮件，作为 webhook 投递监控视图
func (s *MessageService) RecentIncoming(limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return s.messages.ListRecentMessages(domain.MessageIncoming, limit)
}
