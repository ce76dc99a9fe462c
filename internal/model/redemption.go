package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RedemptionCode 兑换码，current_uses 永远不超过 max_uses
type RedemptionCode struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Value       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"value"`
	MaxUses     int             `gorm:"not null" json:"max_uses"`
	CurrentUses int             `gorm:"not null" json:"current_uses"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (RedemptionCode) TableName() string {
	return "redemption_codes"
}

func (c *RedemptionCode) Exhausted() bool {
	return c.CurrentUses >= c.MaxUses
}

// RedemptionHistory 同一用户同一兑换码最多一条
type RedemptionHistory struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CodeID     int64     `gorm:"uniqueIndex:idx_code_user;not null" json:"code_id"`
	UserID     int64     `gorm:"uniqueIndex:idx_code_user;not null" json:"user_id"`
	RedeemedAt time.Time `gorm:"autoCreateTime" json:"redeemed_at"`
}

func (RedemptionHistory) TableName() string {
	return "redemption_histories"
}
