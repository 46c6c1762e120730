package sql

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"maildash/backend/internal/domain"
	"maildash/backend/internal/storage"
)

// Store PostgreSQL 存储实现（基于 GORM）
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储并执行自动迁移。
func NewStore(
	dsn string,
	maxOpenConns int,
	maxIdleConns int,
	connMaxLifetime time.Duration,
) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {

			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 执行数据库迁移（使用 GORM AutoMigrate）
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.Account{},
		&domain.Message{},
	)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// ========== Account Repository ==========

// CreateAccount 创建账户
func (s *Store) CreateAccount(account *domain.Account) error {
	err := s.db.Create(account).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrAliasExists
	}
	return err
}

// GetAccountByID 根据 ID 获取账户
func (s *Store) GetAccountByID(id string) (*domain.Account, error) {
	var account domain.Account
	err := s.db.First(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByAlias 根据别名获取账户
func (s *Store) GetAccountByAlias(alias string) (*domain.Account, error) {
	var account domain.Account
	err := s.db.First(&account, "alias = ?", alias).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListAccounts 返回全部账户，按创建时间倒序
func (s *Store) ListAccounts() ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.db.Order("created_at DESC").Find(&accounts).Error
	return accounts, err
}

// UpdateAccount 更新账户
func (s *Store) UpdateAccount(account *domain.Account) error {
	result := s.db.Model(&domain.Account{}).
		Where("id = ?", account.ID).
		Updates(map[string]interface{}{
			"alias":         account.Alias,
			"email":         account.Email,
			"password_hash": account.PasswordHash,
			"forward_to":    account.ForwardTo,
			"role":          account.Role,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

// DeleteAccount 删除账户，邮件随外键级联删除
func (s *Store) DeleteAccount(id string) error {
	result := s.db.Delete(&domain.Account{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

// ========== Message Repository ==========

// CreateMessages 在单个事务中批量写入邮件，任何一条失败则整批回滚
func (s *Store) CreateMessages(messages []*domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(messages).Error
	})
}

// GetMessage 根据 ID 获取邮件
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	var msg domain.Message
	err := s.db.First(&msg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// ListMessages 按创建时间倒序分页，返回本页数据与总数
func (s *Store) ListMessages(filter storage.MessageFilter) ([]domain.Message, int64, error) {
	query := s.db.Model(&domain.Message{}).Where("user_id = ?", filter.UserID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []domain.Message
	err := query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// ListRecentMessages 跨账户返回某类型最近的邮件
func (s *Store) ListRecentMessages(msgType domain.MessageType, limit int) ([]domain.Message, error) {
	query := s.db.Model(&domain.Message{})
	if msgType != "" {
		query = query.Where("type = ?", msgType)
	}
	var messages []domain.Message
	err := query.Order("created_at DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

// MarkMessageRead 更新已读标记并返回更新后的邮件
func (s *Store) MarkMessageRead(id string, isRead bool) (*domain.Message, error) {
	result := s.db.Model(&domain.Message{}).
		Where("id = ?", id).
		Update("is_read", isRead)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, storage.ErrMessageNotFound
	}
	return s.GetMessage(id)
}
