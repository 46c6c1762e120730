package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"maildash/backend/internal/config"
	"maildash/backend/internal/domain"
	"maildash/backend/internal/storage"
)

var (
	// ErrAliasExists 别名已被占用
	ErrAliasExists = errors.New("alias already exists")
	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredentials 凭证无效
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRegistrationClosed 注册已关闭
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrPassphraseMismatch 注册口令不匹配
	ErrPassphraseMismatch = errors.New("passphrase mismatch")
	// ErrPassphraseRequired 注册口令缺失
	ErrPassphraseRequired = errors.New("passphrase is required")
)

// Service 认证服务：注册、登录与注册口令校验。
type Service struct {
	accounts storage.AccountRepository
	cfg      *config.Config
}

// NewService 创建认证服务
func NewService(accounts storage.AccountRepository, cfg *config.Config) *Service {
	return &Service{
		accounts: accounts,
		cfg:      cfg,
	}
}

// RegisterInput 注册输入
type RegisterInput struct {
	Alias      string
	Password   string
	Passphrase string
}

// Register 注册新账户。
// 别名归一化为小写后即为邮箱地址的本地部分；注册口令门启用时先过口令校验。
func (s *Service) Register(input RegisterInput) (*domain.Account, error) {
	if !s.cfg.Signup.AllowRegister {
		return nil, ErrRegistrationClosed
	}

	if s.cfg.Signup.AskPassphrase {
		if err := s.VerifyPassphrase(input.Passphrase); err != nil {
			return nil, err
		}
	}

	alias := domain.NormalizeAlias(input.Alias)
	if err := domain.ValidateAlias(alias); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetAccountByAlias(alias); err == nil {
		return nil, ErrAliasExists
	}

	passwordHash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Alias:        alias,
		Email:        alias + "@" + s.cfg.Mail.ApexDomain,
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.CreateAccount(account); err != nil {
		if errors.Is(err, storage.ErrAliasExists) {
			return nil, ErrAliasExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// LoginInput 登录输入，identifier 可以是别名或完整邮箱地址
type LoginInput struct {
	Identifier string
	Password   string
}

// Login 校验凭证并返回账户
func (s *Service) Login(input LoginInput) (*domain.Account, error) {
	alias := domain.AliasFromAddress(input.Identifier)

	account, err := s.accounts.GetAccountByAlias(alias)
	if err != nil {
		// 统一返回凭证错误，不暴露账户是否存在
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

// GetAccountByID 根据 ID 获取账户
func (s *Service) GetAccountByID(id string) (*domain.Account, error) {
	account, err := s.accounts.GetAccountByID(id)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// VerifyPassphrase 校验注册口令。
// 长度不一致时直接拒绝，长度相同时走常数时间比较；口令门未启用时总是通过。
func (s *Service) VerifyPassphrase(passphrase string) error {
	if !s.cfg.Signup.AskPassphrase {
		return nil
	}

	if strings.TrimSpace(passphrase) == "" {
		return ErrPassphraseRequired
	}

	expected := []byte(s.cfg.Signup.Passphrase)
	input := []byte(passphrase)

	if len(input) != len(expected) {
		return ErrPassphraseMismatch
	}
	if subtle.ConstantTimeCompare(input, expected) != 1 {
		return ErrPassphraseMismatch
	}
	return nil
}

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
