package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser   = "user"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// User 用户表
// 钱包余额直接挂在用户上，结账和兑换码充值都会改动它
type User struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Username      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email         string          `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	PasswordHash  string          `gorm:"type:varchar(255);not null" json:"-"`
	Role          string          `gorm:"type:varchar(16);not null" json:"role"`
	WalletBalance decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"wallet_balance"` // 不允许为负
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleSeller, RoleAdmin:
		return true
	}
	return false
}
