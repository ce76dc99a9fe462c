package repository

import (
	"context"
	"errors"

	"marketplace/internal/model"

	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("商品不存在")
	ErrStockConflict   = errors.New("库存已被其他订单占用")
)

// ProductRepository 商品库存与上下架状态
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, tx *gorm.DB, product *model.Product) error {
	if tx == nil {
		tx = r.db
	}
	product.NormalizeStatus()
	return tx.WithContext(ctx).Create(product).Error
}

func (r *ProductRepository) GetByID(ctx context.Context, tx *gorm.DB, productID int64) (*model.Product, error) {
	if tx == nil {
		tx = r.db
	}
	var product model.Product
	err := tx.WithContext(ctx).Where("id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// ConsumeStock 原子扣减库存并累加销量
//
// 扣减以 stock_quantity >= quantity 为条件，影响行数为 0 说明库存已被并发的结账抢走，
// 返回 ErrStockConflict。扣减后按 model.ShouldDelist 判断是否在同一事务内下架。
func (r *ProductRepository) ConsumeStock(ctx context.Context, tx *gorm.DB, productID int64, quantity int) (delisted bool, err error) {
	result := tx.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
			"sales_count":    gorm.Expr("sales_count + ?", quantity),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, ErrStockConflict
	}

	var product model.Product
	err = tx.WithContext(ctx).
		Select("id", "stock_quantity", "status").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return false, err
	}
	if !model.ShouldDelist(product.StockQuantity) || product.Status == model.ProductStatusOffShelf {
		return false, nil
	}

	err = tx.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Update("status", model.ProductStatusOffShelf).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

// RestoreStock 回补库存、扣回销量，不改变上下架状态
func (r *ProductRepository) RestoreStock(ctx context.Context, tx *gorm.DB, productID int64, quantity int) error {
	result := tx.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity + ?", quantity),
			"sales_count":    gorm.Expr("sales_count - ?", quantity),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}
