package memory

import (
	"sort"
	"sync"
	"time"

	"maildash/backend/internal/domain"
	"maildash/backend/internal/storage"
)

// Store 使用内存保存账户与邮件数据，主要用于开发验证和测试。
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account // accountID -> account
	byAlias  map[string]string          // alias -> accountID
	messages map[string]*domain.Message // messageID -> message
	byUser   map[string][]string        // accountID -> messageIDs（按写入顺序）
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		byAlias:  make(map[string]string),
		messages: make(map[string]*domain.Message),
		byUser:   make(map[string][]string),
	}
}

// CreateAccount 创建账户。
func (s *Store) CreateAccount(account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byAlias[account.Alias]; ok {
		return storage.ErrAliasExists
	}

	cp := *account
	s.accounts[account.ID] = &cp
	s.byAlias[account.Alias] = account.ID
	return nil
}

// GetAccountByID 根据 ID 获取账户。
func (s *Store) GetAccountByID(id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

// GetAccountByAlias 根据别名获取账户。
func (s *Store) GetAccountByAlias(alias string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAlias[alias]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	cp := *s.accounts[id]
	return &cp, nil
}

// ListAccounts 返回全部账户，按创建时间倒序。
func (s *Store) ListAccounts() ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, *account)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateAccount 更新账户。
func (s *Store) UpdateAccount(account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.accounts[account.ID]
	if !ok {
		return storage.ErrAccountNotFound
	}
	if old.Alias != account.Alias {
		delete(s.byAlias, old.Alias)
		s.byAlias[account.Alias] = account.ID
	}
	account.UpdatedAt = time.Now()
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

// DeleteAccount 删除账户及其全部邮件（模拟外键级联）。
func (s *Store) DeleteAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return storage.ErrAccountNotFound
	}
	delete(s.byAlias, account.Alias)
	delete(s.accounts, id)
	for _, msgID := range s.byUser[id] {
		delete(s.messages, msgID)
	}
	delete(s.byUser, id)
	return nil
}

// CreateMessages 批量写入邮件，整体成功或整体失败。
func (s *Store) CreateMessages(messages []*domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 先整体校验外键，任何一条失败则整批不写入
	for _, msg := range messages {
		if _, ok := s.accounts[msg.UserID]; !ok {
			return storage.ErrAccountNotFound
		}
	}

	for _, msg := range messages {
		cp := *msg
		s.messages[msg.ID] = &cp
		s.byUser[msg.UserID] = append(s.byUser[msg.UserID], msg.ID)
	}
	return nil
}

// GetMessage 根据 ID 获取邮件。
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	cp := *msg
	return &cp, nil
}

// ListMessages 按创建时间倒序分页。
func (s *Store) ListMessages(filter storage.MessageFilter) ([]domain.Message, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Message, 0)
	for _, msgID := range s.byUser[filter.UserID] {
		msg := s.messages[msgID]
		if filter.Type != "" && msg.Type != filter.Type {
			continue
		}
		matched = append(matched, *msg)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))

	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && offset+filter.Limit < end {
		end = offset + filter.Limit
	}
	return matched[offset:end], total, nil
}

// ListRecentMessages 跨账户返回某类型最近的邮件。
func (s *Store) ListRecentMessages(msgType domain.MessageType, limit int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Message, 0)
	for _, msg := range s.messages {
		if msgType != "" && msg.Type != msgType {
			continue
		}
		matched = append(matched, *msg)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// MarkMessageRead 更新已读标记并返回更新后的邮件。
func (s *Store) MarkMessageRead(id string, isRead bool) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	msg.IsRead = isRead
	cp := *msg
	return &cp, nil
}

// Health 内存存储始终健康。
func (s *Store) Health() error {
	return nil
}

// Close 内存存储无需释放资源。
func (s *Store) Close() error {
	return nil
}
