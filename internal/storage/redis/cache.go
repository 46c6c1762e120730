package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"maildash/backend/internal/domain"
)

// 缓存键前缀与有效期。
// 别名查询是 webhook 摄取的热路径，每封入站邮件的每个收件人都会触发一次。
const (
	aliasKeyPrefix = "account:alias:"
	accountTTL     = 5 * time.Minute
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = fmt.Errorf("cache miss")

// Cache Redis 缓存实现
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// NewCache 创建 Redis 缓存实例
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	ctx := context.Background()

	// 测试连接
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{
		client: client,
		ctx:    ctx,
	}, nil
}

// CacheAccountByAlias 缓存别名到账户的映射
func (c *Cache) CacheAccountByAlias(account *domain.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, aliasKeyPrefix+account.Alias, data, accountTTL).Err()
}

// GetAccountByAlias 获取缓存的账户
func (c *Cache) GetAccountByAlias(alias string) (*domain.Account, error) {
	data, err := c.client.Get(c.ctx, aliasKeyPrefix+alias).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	var account domain.Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// InvalidateAlias 删除别名缓存（账户更新或删除时调用）
func (c *Cache) InvalidateAlias(alias string) error {
	return c.client.Del(c.ctx, aliasKeyPrefix+alias).Err()
}

// Health 检查 Redis 连接
func (c *Cache) Health() error {
	return c.client.Ping(c.ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}
