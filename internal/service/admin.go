package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"maildash/backend/internal/domain"
	"maildash/backend/internal/storage"
)

var (
	// ErrAdminRequired 需要管理员权限
	ErrAdminRequired = errors.New("admin access required")
	// ErrUserNotFound 目标用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrCannotDeleteSelf 管理员不能删除自己
	ErrCannotDeleteSelf = errors.New("cannot delete your own account")
	// ErrCannotDeleteAdmin 不能删除其他管理员
	ErrCannotDeleteAdmin = errors.New("cannot delete other admin accounts")
)

// AdminService 管理员侧的账户生命周期管理。
type AdminService struct {
	accounts   storage.AccountRepository
	forwarding *ForwardingService
	log        *zap.Logger
}

// NewAdminService 创建管理服务
func NewAdminService(accounts storage.AccountRepository, forwarding *ForwardingService, log *zap.Logger) *AdminService {
	return &AdminService{
		accounts:   accounts,
		forwarding: forwarding,
		log:        log,
	}
}

// ListAccounts 返回全部账户（仅管理员可调用）
func (s *AdminService) ListAccounts(actor *domain.Account) ([]domain.Account, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	return s.accounts.ListAccounts()
}

// DeleteResult 删号结果。
// DNSDeleted 表示别名的 DNS 规则是否被清除；DNSError 非空表示清理失败但删号照常进行。
type DeleteResult struct {
	Alias      string
	DNSDeleted bool
	DNSError   string
}

// DeleteAccount 删除一个账户。
//
// 授权规则：本人或管理员可删；管理员不能删自己（置自己于无管理员境地），
// 也不能删其他管理员。
// 顺序：先尝试清理 DNS 规则（失败只记日志，不阻塞），再删除账户，
// 邮件随外键级联删除。DNS 清理失败可能留下孤儿规则，结果里如实上报。
func (s *AdminService) DeleteAccount(ctx context.Context, actor *domain.Account, targetID string) (*DeleteResult, error) {
	if targetID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	self := actor.ID == targetID
	if !self && !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	if actor.IsAdmin() && self {
		return nil, ErrCannotDeleteSelf
	}

	target, err := s.accounts.GetAccountByID(targetID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !self && target.IsAdmin() {
		return nil, ErrCannotDeleteAdmin
	}

	result := &DeleteResult{Alias: target.Alias}

	// DNS 清理先行，失败不阻塞删号
	deleted, err := s.forwarding.RemoveAlias(ctx, target.Alias)
	if err != nil {
		result.DNSError = err.Error()
		s.log.Error("failed to remove dns rules for deleted account",
			zap.String("alias", target.Alias),
			zap.Error(err),
		)
	} else {
		result.DNSDeleted = deleted
		if !deleted {
			s.log.Warn("no dns rules found for deleted account", zap.String("alias", target.Alias))
		}
	}

	if err := s.accounts.DeleteAccount(targetID); err != nil {
		return result, fmt.Errorf("failed to delete account: %w", err)
	}

	s.log.Info("account deleted",
		zap.String("alias", target.Alias),
		zap.String("deleted_by", actor.Alias),
		zap.Bool("dns_deleted", result.DNSDeleted),
	)

	return result, nil
}
