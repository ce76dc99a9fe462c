package repository

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCartNotFound     = errors.New("购物车不存在")
	ErrCartItemNotFound = errors.New("购物车明细不存在")
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *CartRepository) GetByUserID(ctx context.Context, tx *gorm.DB, userID int64) (*model.Cart, error) {
	var cart model.Cart
	err := r.conn(tx).WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return &cart, nil
}

// GetByUserIDForUpdate 锁定购物车行，同一买家的结账在此串行
func (r *CartRepository) GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Cart, error) {
	var cart model.Cart
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return &cart, nil
}

// GetOrCreate 首次加购时创建购物车，并发创建靠 user_id 唯一索引兜底
func (r *CartRepository) GetOrCreate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Cart, error) {
	cart, err := r.GetByUserID(ctx, tx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	err = r.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&model.Cart{UserID: userID}).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, tx, userID)
}

// ListLines 购物车明细关联商品当前的价格、库存和卖家
// 按 product_id 排序，结账时各事务以相同顺序锁商品行
func (r *CartRepository) ListLines(ctx context.Context, tx *gorm.DB, cartID int64) ([]*model.CartLine, error) {
	var lines []*model.CartLine
	err := r.conn(tx).WithContext(ctx).
		Table("cart_items AS ci").
		Select("ci.id AS cart_item_id, ci.product_id, ci.quantity, p.seller_id, p.name, p.price, p.stock_quantity").
		Joins("JOIN products AS p ON p.id = ci.product_id").
		Where("ci.cart_id = ?", cartID).
		Order("ci.product_id ASC").
		Scan(&lines).Error
	return lines, err
}

// AddItem 商品已在购物车中则累加数量，并发加购同一商品由 idx_cart_product 合并
func (r *CartRepository) AddItem(ctx context.Context, tx *gorm.DB, cartID, productID int64, quantity int) (*model.CartItem, error) {
	db := r.conn(tx).WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
			"updated_at": time.Now(),
		}),
	}).Create(&model.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}).Error
	if err != nil {
		return nil, err
	}

	var item model.CartItem
	if err := db.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem 只能删除属于该用户购物车的明细
func (r *CartRepository) RemoveItem(ctx context.Context, userID, cartItemID int64) error {
	ownCarts := r.db.Model(&model.Cart{}).Select("id").Where("user_id = ?", userID)
	result := r.db.WithContext(ctx).
		Where("id = ? AND cart_id IN (?)", cartItemID, ownCarts).
		Delete(&model.CartItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Clear 清空购物车明细，购物车本身保留，返回删除的明细数
func (r *CartRepository) Clear(ctx context.Context, tx *gorm.DB, cartID int64) (int64, error) {
	result := tx.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&model.CartItem{})
	return result.RowsAffected, result.Error
}
