package service

import (
	"errors"

	"marketplace/internal/repository"
)

// 业务错误，handler 按 errors.Is 映射到 response 错误码
var (
	ErrNoCart             = errors.New("购物车不存在")
	ErrEmptyCart          = errors.New("购物车为空")
	ErrInsufficientFunds  = errors.New("余额不足")
	ErrSellerMissing      = errors.New("商品卖家不存在")
	ErrOutOfStock         = errors.New("库存不足")
	ErrStockRace          = errors.New("库存已被其他订单抢占，请重试")
	ErrAlreadyRedeemed    = errors.New("已经兑换过该兑换码")
	ErrInvalidState       = errors.New("订单状态不允许该操作")
	ErrForbidden          = errors.New("没有管理员权限")
	ErrInvalidArgument    = errors.New("参数错误")
	ErrCheckoutBusy       = errors.New("结账处理中，请稍后重试")
	ErrProductUnavailable = errors.New("商品不可购买")
	ErrCartChanged        = errors.New("购物车已变更，请重新结账")

	ErrCodeNotFound     = repository.ErrCodeNotFound
	ErrCodeExhausted    = repository.ErrCodeExhausted
	ErrCodeExists       = repository.ErrCodeExists
	ErrOrderNotFound    = repository.ErrOrderNotFound
	ErrUserNotFound     = repository.ErrUserNotFound
	ErrCartItemNotFound = repository.ErrCartItemNotFound
)
