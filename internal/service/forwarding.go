package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"maildash/backend/internal/config"
	"maildash/backend/internal/dnsapi"
	"maildash/backend/internal/domain"
	"maildash/backend/internal/storage"
)

// DNSProvider 转发服务依赖的 DNS 操作子集
type DNSProvider interface {
	Configured() bool
	ListForwardRecords(ctx context.Context) ([]dnsapi.Record, error)
	FindRecordByAlias(ctx context.Context, alias string) (*dnsapi.Record, error)
	CreateRecord(ctx context.Context, content string) (*dnsapi.Record, error)
	PatchRecordContent(ctx context.Context, recordID, content string) error
	DeleteRecord(ctx context.Context, recordID string) error
}

// ForwardingService 管理每个账户的转发地址，并把变更同步进共享 TXT 记录。
type ForwardingService struct {
	accounts storage.AccountRepository
	dns      DNSProvider
	cfg      *config.Config
	log      *zap.Logger

	// 共享 TXT 记录的读改写没有乐观并发令牌，
	// 用进程级互斥锁串行化同步，避免两个账户的并发修改互相覆盖。
	dnsMu sync.Mutex
}

// NewForwardingService 创建转发配置服务
func NewForwardingService(accounts storage.AccountRepository, dns DNSProvider, cfg *config.Config, log *zap.Logger) *ForwardingService {
	return &ForwardingService{
		accounts: accounts,
		dns:      dns,
		cfg:      cfg,
		log:      log,
	}
}

// ForwardingConfig 某账户的转发配置视图
type ForwardingConfig struct {
	Alias             string  `json:"alias"`
	Email             string  `json:"email"`
	ForwardTo         *string `json:"forward_to"`
	ForwardingEnabled bool    `json:"forwarding_enabled"`
}

// Get 返回账户当前的转发配置
func (s *ForwardingService) Get(account *domain.Account) ForwardingConfig {
	return ForwardingConfig{
		Alias:             account.Alias,
		Email:             account.Email,
		ForwardTo:         account.ForwardTo,
		ForwardingEnabled: account.ForwardingEnabled(),
	}
}

// SetResult 更新转发配置的结果。
// DNSWarning 非空表示数据库已更新但 DNS 同步失败，需要用户重新保存来重试。
type SetResult struct {
	Config     ForwardingConfig
	DNSWarning string
}

// Set 更新账户的转发地址并尽力同步 DNS。
//
// 数据库更新先行且不随 DNS 失败回滚：账户行始终反映请求的 forward_to，
// DNS 失败只降级为警告。没有自动重试，失败后需手动重新保存。
func (s *ForwardingService) Set(ctx context.Context, account *domain.Account, forwardTo *string) (*SetResult, error) {
	if forwardTo != nil && *forwardTo != "" {
		if err := domain.ValidateEmail(*forwardTo); err != nil {
			return nil, err
		}
	} else {
		forwardTo = nil
	}

	account.ForwardTo = forwardTo
	if err := s.accounts.UpdateAccount(account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	result := &SetResult{Config: s.Get(account)}

	if !s.dns.Configured() {
		s.log.Warn("dns provider not configured, skipping sync", zap.String("alias", account.Alias))
		return result, nil
	}

	if err := s.syncDNS(ctx, account.Alias, forwardTo); err != nil {
		s.log.Error("dns sync failed",
			zap.String("alias", account.Alias),
			zap.Error(err),
		)
		result.DNSWarning = err.Error()
	}

	return result, nil
}

// syncDNS 把某别名的规则换写进共享 TXT 记录。
// 整个读改写过程持锁，串行化不同账户的并发修改。
func (s *ForwardingService) syncDNS(ctx context.Context, alias string, forwardTo *string) error {
	s.dnsMu.Lock()
	defer s.dnsMu.Unlock()

	record, err := s.dns.FindRecordByAlias(ctx, alias)
	if err != nil {
		if errors.Is(err, dnsapi.ErrRecordNotFound) {
			return fmt.Errorf("no dns record found for alias %s", alias)
		}
		return err
	}

	dest := ""
	if forwardTo != nil {
		dest = *forwardTo
	}
	rules := dnsapi.BuildAliasRules(alias, s.cfg.WebhookURL(), dest)

	newContent, ok := dnsapi.ReplaceAliasRules(record.Content, alias, rules)
	if !ok {
		return fmt.Errorf("existing record is not a forward-email record")
	}

	s.log.Info("updating forward-email dns record",
		zap.String("record_id", record.ID),
		zap.String("alias", alias),
		zap.String("old_content", record.Content),
		zap.String("new_content", newContent),
	)

	return s.dns.PatchRecordContent(ctx, record.ID, newContent)
}

// ProvisionAlias 把新注册别名的 webhook 规则写入共享 TXT 记录，
// 记录尚不存在时创建。注册流程里失败只记日志，不阻塞开户。
func (s *ForwardingService) ProvisionAlias(ctx context.Context, alias string) error {
	if !s.dns.Configured() {
		return nil
	}

	s.dnsMu.Lock()
	defer s.dnsMu.Unlock()

	rules := dnsapi.BuildAliasRules(alias, s.cfg.WebhookURL(), "")

	records, err := s.dns.ListForwardRecords(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		_, err = s.dns.CreateRecord(ctx, dnsapi.BuildContent(rules))
		return err
	}

	record := records[0]
	newContent, ok := dnsapi.ReplaceAliasRules(record.Content, alias, rules)
	if !ok {
		return fmt.Errorf("existing record is not a forward-email record")
	}
	return s.dns.PatchRecordContent(ctx, record.ID, newContent)
}

// RemoveAlias 从共享 TXT 记录中剔除某别名的全部规则，
// 剔除后记录为空时整条删除。返回是否实际发生了剔除。
// 由管理员删号流程调用，同样持锁串行化。
func (s *ForwardingService) RemoveAlias(ctx context.Context, alias string) (bool, error) {
	if !s.dns.Configured() {
		return false, nil
	}

	s.dnsMu.Lock()
	defer s.dnsMu.Unlock()

	record, err := s.dns.FindRecordByAlias(ctx, alias)
	if err != nil {
		if errors.Is(err, dnsapi.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	newContent, ok := dnsapi.RemoveAliasRules(record.Content, alias)
	if !ok {
		return false, fmt.Errorf("existing record is not a forward-email record")
	}

	if rules, _ := dnsapi.ParseContent(newContent); len(rules) == 0 {
		if err := s.dns.DeleteRecord(ctx, record.ID); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := s.dns.PatchRecordContent(ctx, record.ID, newContent); err != nil {
		return false, err
	}
	return true, nil
}
