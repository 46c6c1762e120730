package domain

import (
	"errors"
	"regexp"
	"strings"
)

// 验证相关的错误定义
var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrAliasTooShort    = errors.New("alias too short (min 2 chars)")
	ErrAliasTooLong     = errors.New("alias too long (max 30 chars)")
	ErrInvalidAlias     = errors.New("invalid alias format")
	ErrPasswordTooShort = errors.New("password too short (min 8 chars)")
	ErrPasswordTooLong  = errors.New("password too long (max 128 chars)")
)

// 验证常量
const (
	MinAliasLength = 2
	MaxAliasLength = 30

	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// 正则表达式
var (
	// 别名只允许小写字母、数字、点和连字符
	aliasRegex = regexp.MustCompile(`^[a-z0-9.-]+$`)

	// 基础的 local@domain.tld 形状校验，与发送流水线共用
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidateAlias 验证账户别名（邮箱地址的本地部分）。
// 入参会先做小写和去空白的归一化，调用方应存储归一化后的值。
func ValidateAlias(alias string) error {
	alias = NormalizeAlias(alias)
	if len(alias) < MinAliasLength {
		return ErrAliasTooShort
	}
	if len(alias) > MaxAliasLength {
		return ErrAliasTooLong
	}
	if !aliasRegex.MatchString(alias) {
		return ErrInvalidAlias
	}
	// 点和连字符不能出现在两端
	if strings.HasPrefix(alias, ".") || strings.HasSuffix(alias, ".") ||
		strings.HasPrefix(alias, "-") || strings.HasSuffix(alias, "-") {
		return ErrInvalidAlias
	}
	return nil
}

// NormalizeAlias 将别名归一化为小写无空白形式
func NormalizeAlias(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}

// ValidateEmail 校验邮箱地址的基本形状
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword 校验密码长度
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// AliasFromAddress 提取收件地址 @ 前的本地部分作为别名。
// 不做模糊匹配，只取字面上的本地部分。
func AliasFromAddress(address string) string {
	address = NormalizeAlias(address)
	if i := strings.Index(address, "@"); i >= 0 {
		return address[:i]
	}
	return address
}
