package storage

import (
	"errors"

	"maildash/backend/internal/domain"
)

var (
	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("account not found")
	// ErrAliasExists 别名已被占用
	ErrAliasExists = errors.New("alias already exists")
	// ErrMessageNotFound 邮件不存在
	ErrMessageNotFound = errors.New("message not found")
)

// AccountRepository 定义账户数据存取操作。
type AccountRepository interface {
	CreateAccount(account *domain.Account) error
	GetAccountByID(id string) (*domain.Account, error)
	GetAccountByAlias(alias string) (*domain.Account, error)
	ListAccounts() ([]domain.Account, error)
	UpdateAccount(account *domain.Account) error
	// DeleteAccount 删除账户，邮件随外键级联删除。
	DeleteAccount(id string) error
}

// MessageFilter 邮件列表查询条件
type MessageFilter struct {
	UserID string             // 必填：所属账户
	Type   domain.MessageType // 可选：incoming / outgoing，空值表示全部
	Limit  int
	Offset int
}

// MessageRepository 定义邮件数据存取操作。
type MessageRepository interface {
	// CreateMessages 批量写入邮件，整体成功或整体失败。
	CreateMessages(messages []*domain.Message) error
	GetMessage(id string) (*domain.Message, error)
	// ListMessages 按创建时间倒序分页，返回本页数据与总数。
	ListMessages(filter MessageFilter) ([]domain.Message, int64, error)
	// ListRecentMessages 跨账户返回某类型最近的邮件，用于投递监控。
	ListRecentMessages(msgType domain.MessageType, limit int) ([]domain.Message, error)
	MarkMessageRead(id string, isRead bool) (*domain.Message, error)
}

// Store 聚合全部存储能力。
type Store interface {
	AccountRepository
	MessageRepository
	Health() error
	Close() error
}
