package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace/internal/config"
	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// OrderService 订单状态流转与查询
// PENDING -> CANCELLED / COMPLETED，终态不可再变
type OrderService struct {
	db          *gorm.DB
	cfg         *config.Config
	log         zerolog.Logger
	notifier    *Notifier
	orderRepo   *repository.OrderRepository
	productRepo *repository.ProductRepository
	chatRepo    *repository.ChatRepository
	outboxRepo  *repository.OutboxRepository
}

func NewOrderService(db *gorm.DB, cfg *config.Config, log zerolog.Logger) *OrderService {
	return &OrderService{
		db:          db,
		cfg:         cfg,
		log:         log.With().Str("component", "order").Logger(),
		notifier:    NewNotifier(db),
		orderRepo:   repository.NewOrderRepository(db),
		productRepo: repository.NewProductRepository(db),
		chatRepo:    repository.NewChatRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

// CancelOrder 取消订单并回补库存
// 不退款：买家扣款和卖家入账保持不变
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = model.DefaultCancellationReason
	}

	var order *model.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.orderRepo.GetByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.IsTerminal() {
			return ErrInvalidState
		}

		if err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusPending, model.OrderStatusCancelled, &reason); err != nil {
			if errors.Is(err, repository.ErrOrderStatusInvalid) {
				return ErrInvalidState
			}
			return fmt.Errorf("更新订单状态失败: %w", err)
		}

		items, err := s.orderRepo.ListItems(ctx, tx, order.ID)
		if err != nil {
			return fmt.Errorf("查询订单明细失败: %w", err)
		}
		for _, item := range items {
			// 只回补库存，不重新上架
			if err := s.productRepo.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("回补库存失败: %w", err)
			}
		}

		if err := s.notifier.NotifyOrder(ctx, tx, order.ID, orderCancelledText(order.OrderNo, reason)); err != nil {
			return err
		}

		return s.writeEvent(ctx, tx, order, model.EventOrderCancelled, map[string]interface{}{
			"reason": reason,
		})
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("order_no", order.OrderNo).Int64("order_id", order.ID).Str("reason", reason).Msg("订单已取消")
	return nil
}

// CompleteOrder 只允许从 PENDING 完成
func (s *OrderService) CompleteOrder(ctx context.Context, orderID int64) error {
	var order *model.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.orderRepo.GetByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.IsTerminal() {
			return ErrInvalidState
		}

		if err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusPending, model.OrderStatusCompleted, nil); err != nil {
			if errors.Is(err, repository.ErrOrderStatusInvalid) {
				return ErrInvalidState
			}
			return fmt.Errorf("更新订单状态失败: %w", err)
		}

		if err := s.notifier.NotifyOrder(ctx, tx, order.ID, orderCompletedText(order.OrderNo)); err != nil {
			return err
		}

		return s.writeEvent(ctx, tx, order, model.EventOrderCompleted, map[string]interface{}{})
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("order_no", order.OrderNo).Int64("order_id", order.ID).Msg("订单已完成")
	return nil
}

func (s *OrderService) writeEvent(ctx context.Context, tx *gorm.DB, order *model.Order, eventType string, payload map[string]interface{}) error {
	payload["order_id"] = order.ID
	payload["order_no"] = order.OrderNo
	payload["user_id"] = order.UserID
	msg, err := newOutboxMessage(s.cfg.Kafka.Topic.OrderEvent, order.OrderNo, eventType, payload)
	if err != nil {
		return err
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入消息失败: %w", err)
	}
	return nil
}

// LoadOrderWithItems 订单连同明细
func (s *OrderService) LoadOrderWithItems(ctx context.Context, orderID int64) (*model.Order, error) {
	return s.orderRepo.LoadWithItems(ctx, orderID)
}

func (s *OrderService) ListBuyerOrders(ctx context.Context, userID int64) ([]*model.Order, error) {
	return s.orderRepo.ListByBuyer(ctx, userID)
}

// ListSellerOrders 每个订单只带该卖家自己的明细
func (s *OrderService) ListSellerOrders(ctx context.Context, sellerID int64) ([]*model.Order, error) {
	return s.orderRepo.ListBySeller(ctx, sellerID)
}

type OrderRoom struct {
	Room     *model.ChatRoom      `json:"room"`
	Messages []*model.ChatMessage `json:"messages"`
}

// ListOrderMessages 订单下各聊天室及其消息
func (s *OrderService) ListOrderMessages(ctx context.Context, orderID int64) ([]*OrderRoom, error) {
	if _, err := s.orderRepo.GetByID(ctx, nil, orderID); err != nil {
		return nil, err
	}
	rooms, err := s.chatRepo.ListRoomsByOrder(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	result := make([]*OrderRoom, 0, len(rooms))
	for _, room := range rooms {
		messages, err := s.chatRepo.ListMessages(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, &OrderRoom{Room: room, Messages: messages})
	}
	return result, nil
}
