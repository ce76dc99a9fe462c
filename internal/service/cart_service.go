package service

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CartService struct {
	db          *gorm.DB
	cartRepo    *repository.CartRepository
	productRepo *repository.ProductRepository
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{
		db:          db,
		cartRepo:    repository.NewCartRepository(db),
		productRepo: repository.NewProductRepository(db),
	}
}

type AddItemRequest struct {
	UserID    int64 `json:"user_id" binding:"required"`
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

type CartView struct {
	CartID int64             `json:"cart_id"`
	Items  []*model.CartLine `json:"items"`
	Total  decimal.Decimal   `json:"total"`
}

// AddItem 购物车不存在时创建，同一商品累加数量
func (s *CartService) AddItem(ctx context.Context, req *AddItemRequest) (*model.CartItem, error) {
	if req.UserID <= 0 || req.ProductID <= 0 || req.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity 至少为 1", ErrInvalidArgument)
	}

	product, err := s.productRepo.GetByID(ctx, nil, req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, err
	}
	if !product.Listed() {
		return nil, ErrProductUnavailable
	}

	var item *model.CartItem
	err = s.db.Transaction(func(tx *gorm.DB) error {
		cart, err := s.cartRepo.GetOrCreate(ctx, tx, req.UserID)
		if err != nil {
			return fmt.Errorf("创建购物车失败: %w", err)
		}
		item, err = s.cartRepo.AddItem(ctx, tx, cart.ID, product.ID, req.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, cartItemID int64) error {
	return s.cartRepo.RemoveItem(ctx, userID, cartItemID)
}

// GetCart 还没有购物车时返回空视图
func (s *CartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	view := &CartView{Items: []*model.CartLine{}, Total: decimal.Zero}

	cart, err := s.cartRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return view, nil
		}
		return nil, err
	}
	view.CartID = cart.ID

	lines, err := s.cartRepo.ListLines(ctx, nil, cart.ID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		view.Total = view.Total.Add(line.LineTotal())
	}
	view.Items = append(view.Items, lines...)
	return view, nil
}
