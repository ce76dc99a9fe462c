package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusCompleted = "COMPLETED"
)

// CANCELLED 和 COMPLETED 都是终态
var ValidStatusTransitions = map[string][]string{
	OrderStatusPending: {OrderStatusCancelled, OrderStatusCompleted},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

const DefaultCancellationReason = "User cancelled"

// Order 订单主表，创建后只允许修改 status 和 cancellation_reason
type Order struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo            string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	RequestID          *string         `gorm:"type:varchar(64);uniqueIndex" json:"request_id,omitempty"`
	UserID             int64           `gorm:"index;not null" json:"user_id"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status             string          `gorm:"type:varchar(20);index;not null" json:"status"`
	ShippingAddress    string          `gorm:"type:varchar(255);not null" json:"shipping_address"`
	CancellationReason *string         `gorm:"type:varchar(255)" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) IsTerminal() bool {
	_, hasNext := ValidStatusTransitions[o.Status]
	return !hasNext
}

// OrderItem 订单明细，price_snapshot 是下单时的价格，之后不再跟随商品价格变化
type OrderItem struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64           `gorm:"index;not null" json:"order_id"`
	ProductID     int64           `gorm:"index;not null" json:"product_id"`
	SellerID      int64           `gorm:"index;not null" json:"seller_id"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	PriceSnapshot decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_snapshot"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.PriceSnapshot.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
