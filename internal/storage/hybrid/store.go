package hybrid

import (
	"go.uber.org/zap"

	"maildash/backend/internal/domain"
	"maildash/backend/internal/storage"
	rediscache "maildash/backend/internal/storage/redis"
)

// Store 在数据库存储之上叠加 Redis 缓存。
// 只缓存别名到账户的查询（收件人解析的热路径），写操作直接落库并使相关缓存失效。
type Store struct {
	storage.Store
	cache *rediscache.Cache
	log   *zap.Logger
}

// NewStore 创建混合存储
func NewStore(db storage.Store, cache *rediscache.Cache, log *zap.Logger) *Store {
	return &Store{
		Store: db,
		cache: cache,
		log:   log,
	}
}

// GetAccountByAlias 优先读缓存，未命中时回源数据库并回填
func (s *Store) GetAccountByAlias(alias string) (*domain.Account, error) {
	if account, err := s.cache.GetAccountByAlias(alias); err == nil {
		return account, nil
	}

	account, err := s.Store.GetAccountByAlias(alias)
	if err != nil {
		return nil, err
	}

	if err := s.cache.CacheAccountByAlias(account); err != nil {
		// 缓存回填失败不影响查询结果
		s.log.Warn("failed to cache account", zap.String("alias", alias), zap.Error(err))
	}
	return account, nil
}

// UpdateAccount 更新账户并使别名缓存失效
func (s *Store) UpdateAccount(account *domain.Account) error {
	if err := s.Store.UpdateAccount(account); err != nil {
		return err
	}
	if err := s.cache.InvalidateAlias(account.Alias); err != nil {
		s.log.Warn("failed to invalidate alias cache", zap.String("alias", account.Alias), zap.Error(err))
	}
	return nil
}

// DeleteAccount 删除账户并使别名缓存失效
func (s *Store) DeleteAccount(id string) error {
	account, err := s.Store.GetAccountByID(id)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteAccount(id); err != nil {
		return err
	}
	if err := s.cache.InvalidateAlias(account.Alias); err != nil {
		s.log.Warn("failed to invalidate alias cache", zap.String("alias", account.Alias), zap.Error(err))
	}
	return nil
}

// Health 数据库与缓存任一异常即视为不健康
func (s *Store) Health() error {
	if err := s.Store.Health(); err != nil {
		return err
	}
	return s.cache.Health()
}

// Close 依次关闭缓存与数据库
func (s *Store) Close() error {
	if err := s.cache.Close(); err != nil {
		s.log.Warn("failed to close redis cache", zap.Error(err))
	}
	return s.Store.Close()
}
