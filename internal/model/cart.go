package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart 每个用户一个购物车，首次加购时创建，结账后只清空明细
type Cart struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Cart) TableName() string {
	return "carts"
}

type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64     `gorm:"uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID int64     `gorm:"uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// CartLine 购物车明细关联商品后的读模型
type CartLine struct {
	CartItemID    int64           `json:"cart_item_id"`
	ProductID     int64           `json:"product_id"`
	SellerID      int64           `json:"seller_id"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

func (l *CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
