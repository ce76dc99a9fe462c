package repository

import (
	"context"
	"errors"

	"marketplace/internal/model"

	"gorm.io/gorm"
)

var (
	ErrOrderNotFound      = errors.New("订单不存在")
	ErrOrderStatusInvalid = errors.New("订单状态不合法")
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *OrderRepository) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return r.conn(tx).WithContext(ctx).Omit("Items").Create(order).Error
}

func (r *OrderRepository) CreateItem(ctx context.Context, tx *gorm.DB, item *model.OrderItem) error {
	return r.conn(tx).WithContext(ctx).Create(item).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, tx *gorm.DB, orderID int64) (*model.Order, error) {
	var order model.Order
	err := r.conn(tx).WithContext(ctx).Where("id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByRequestID 未找到返回 nil, nil
func (r *OrderRepository) GetByRequestID(ctx context.Context, userID int64, requestID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND request_id = ?", userID, requestID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// LoadWithItems 订单聚合：订单 + 全部明细
func (r *OrderRepository) LoadWithItems(ctx context.Context, orderID int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) ListItems(ctx context.Context, tx *gorm.DB, orderID int64) ([]*model.OrderItem, error) {
	var items []*model.OrderItem
	err := r.conn(tx).WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error
	return items, err
}

// UpdateStatus 以当前状态为条件更新，并发的状态迁移只有一个能成功
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, orderID int64, fromStatus, toStatus string, reason *string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrOrderStatusInvalid
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}
	if reason != nil {
		updates["cancellation_reason"] = *reason
	}

	result := r.conn(tx).WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderStatusInvalid
	}
	return nil
}

// ListByBuyer 买家的订单，最新的在前
func (r *OrderRepository) ListByBuyer(ctx context.Context, userID int64) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

// ListBySeller 包含该卖家商品的订单，明细只保留该卖家的部分
func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID int64) ([]*model.Order, error) {
	sellerOrders := r.db.Model(&model.OrderItem{}).Select("order_id").Where("seller_id = ?", sellerID)

	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", "seller_id = ?", sellerID).
		Where("id IN (?)", sellerOrders).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}
