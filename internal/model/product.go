package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProductStatusOnShelf  = "on_shelf"
	ProductStatusOffShelf = "off_shelf"
)

// Product 商品表
// 库存 <= 0 时必须处于下架状态
type Product struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID      int64           `gorm:"index;not null" json:"seller_id"`
	Name          string          `gorm:"type:varchar(128);not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	StockQuantity int             `gorm:"not null" json:"stock_quantity"`
	SalesCount    int             `gorm:"not null" json:"sales_count"`
	Status        string          `gorm:"type:varchar(16);index;not null" json:"status"`
	IsDeleted     bool            `gorm:"not null" json:"is_deleted"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// ShouldDelist 扣减后的库存是否需要自动下架
func ShouldDelist(stock int) bool {
	return stock <= 0
}

// NormalizeStatus 写入前修正状态，空库存一律下架
func (p *Product) NormalizeStatus() {
	if p.Status == "" {
		p.Status = ProductStatusOnShelf
	}
	if ShouldDelist(p.StockQuantity) {
		p.Status = ProductStatusOffShelf
	}
}

// Listed 商品是否可以被加入购物车
func (p *Product) Listed() bool {
	return !p.IsDeleted && p.Status == ProductStatusOnShelf
}
