package domain

import "time"

// AccountRole 账户角色
type AccountRole string

const (
	RoleUser  AccountRole = "user"
	RoleAdmin AccountRole = "admin"
)

// Account 表示域内的一个邮箱账户。
// 别名（alias）是邮箱地址的本地部分，全域唯一，作为对外的主要标识。
type Account struct {
	ID           string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Alias        string      `json:"alias" gorm:"uniqueIndex;type:varchar(64);not null"`
	Email        string      `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash string      `json:"-" gorm:"type:varchar(255)"` // 不返回给前端
	ForwardTo    *string     `json:"forward_to,omitempty" gorm:"type:varchar(255)"`
	Role         AccountRole `json:"role" gorm:"type:varchar(20);default:'user';index"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsAdmin 判断账户是否为管理员
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ForwardingEnabled 判断是否启用了外部转发
func (a *Account) ForwardingEnabled() bool {
	return a.ForwardTo != nil && *a.ForwardTo != ""
}
