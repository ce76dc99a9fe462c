package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionTypePay    = "PAY"    // 买家下单扣款
	TransactionTypeIncome = "INCOME" // 卖家货款入账
	TransactionTypeRedeem = "REDEEM" // 兑换码充值
)

// WalletTransaction 钱包流水
// 只追加，不修改；和余额变动在同一个事务里写入
type WalletTransaction struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	UserID        int64           `gorm:"index;not null" json:"user_id"`
	Reference     string          `gorm:"type:varchar(64);index;not null" json:"reference"` // 订单号或兑换码
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`        // 正数入账，负数出账
	Type          string          `gorm:"type:varchar(20);not null" json:"type"`
	Remark        string          `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
