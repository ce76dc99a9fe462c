package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/infrastructure/lock"
	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	checkoutLockRetryInterval = 50 * time.Millisecond
	checkoutLockMaxRetries    = 3
)

// CheckoutService 购物车结账
// 扣款、扣库存、卖家入账、建订单、发通知、清空购物车在同一个事务里完成
type CheckoutService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	log             zerolog.Logger
	notifier        *Notifier
	userRepo        *repository.UserRepository
	productRepo     *repository.ProductRepository
	cartRepo        *repository.CartRepository
	orderRepo       *repository.OrderRepository
	chatRepo        *repository.ChatRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

// NewCheckoutService redisClient 为 nil 时不加买家锁
func NewCheckoutService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log zerolog.Logger) *CheckoutService {
	return &CheckoutService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		log:             log.With().Str("component", "checkout").Logger(),
		notifier:        NewNotifier(db),
		userRepo:        repository.NewUserRepository(db),
		productRepo:     repository.NewProductRepository(db),
		cartRepo:        repository.NewCartRepository(db),
		orderRepo:       repository.NewOrderRepository(db),
		chatRepo:        repository.NewChatRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type CheckoutRequest struct {
	UserID          int64  `json:"user_id" binding:"required"`
	ShippingAddress string `json:"shipping_address" binding:"required"`
	RequestID       string `json:"request_id"`
}

type CheckoutResponse struct {
	OrderID     int64           `json:"order_id"`
	OrderNo     string          `json:"order_no"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	Message     string          `json:"message,omitempty"`
}

func newCheckoutResponse(order *model.Order, message string) *CheckoutResponse {
	return &CheckoutResponse{
		OrderID:     order.ID,
		OrderNo:     order.OrderNo,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		Message:     message,
	}
}

func (s *CheckoutService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	if req.UserID <= 0 || strings.TrimSpace(req.ShippingAddress) == "" {
		return nil, fmt.Errorf("%w: user_id 和 shipping_address 必填", ErrInvalidArgument)
	}

	// 幂等校验
	if resp, err := s.findExisting(ctx, req); resp != nil || err != nil {
		return resp, err
	}

	if s.redisClient != nil {
		expiration := time.Duration(s.cfg.Business.CheckoutLockSeconds) * time.Second
		checkoutLock := lock.NewCheckoutLock(s.redisClient, req.UserID, idgen.GenerateLockToken(), expiration)
		if err := checkoutLock.Lock(ctx, checkoutLockRetryInterval, checkoutLockMaxRetries); err != nil {
			if errors.Is(err, lock.ErrLockFailed) {
				return nil, ErrCheckoutBusy
			}
			return nil, fmt.Errorf("获取结账锁失败: %w", err)
		}
		defer func() {
			if _, err := checkoutLock.Unlock(context.Background()); err != nil {
				s.log.Warn().Err(err).Int64("user_id", req.UserID).Msg("释放结账锁失败")
			}
		}()

		// 获取锁后再次检查幂等
		if resp, err := s.findExisting(ctx, req); resp != nil || err != nil {
			return resp, err
		}
	}

	order, err := s.placeOrder(ctx, req)
	if err != nil {
		// 并发的同一 request_id 由唯一索引拦下，返回先提交的那一单
		if req.RequestID != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
			if resp, findErr := s.findExisting(ctx, req); resp != nil || findErr != nil {
				return resp, findErr
			}
		}
		s.log.Info().Err(err).Int64("user_id", req.UserID).Msg("结账失败")
		return nil, err
	}

	s.log.Info().
		Str("order_no", order.OrderNo).
		Int64("order_id", order.ID).
		Int64("user_id", order.UserID).
		Str("amount", order.TotalAmount.StringFixed(2)).
		Msg("下单成功")

	return newCheckoutResponse(order, "下单成功"), nil
}

func (s *CheckoutService) findExisting(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	if req.RequestID == "" {
		return nil, nil
	}
	existing, err := s.orderRepo.GetByRequestID(ctx, req.UserID, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}
	if existing == nil {
		return nil, nil
	}
	return newCheckoutResponse(existing, "订单已存在"), nil
}

func (s *CheckoutService) placeOrder(ctx context.Context, req *CheckoutRequest) (*model.Order, error) {
	order := &model.Order{
		OrderNo:         idgen.GenerateOrderNo(),
		UserID:          req.UserID,
		Status:          model.OrderStatusPending,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
	}
	if req.RequestID != "" {
		requestID := req.RequestID
		order.RequestID = &requestID
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 先锁购物车再读明细，同一买家并发结账时后到的事务只能看到清空后的购物车
		cart, err := s.cartRepo.GetByUserIDForUpdate(ctx, tx, req.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrCartNotFound) {
				return ErrNoCart
			}
			return fmt.Errorf("查询购物车失败: %w", err)
		}

		lines, err := s.cartRepo.ListLines(ctx, tx, cart.ID)
		if err != nil {
			return fmt.Errorf("查询购物车明细失败: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// 总价以此处读到的价格为准，明细的 price_snapshot 也用它
		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.LineTotal())
		}
		order.TotalAmount = total

		buyer, err := s.userRepo.GetByIDForUpdate(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if buyer.WalletBalance.LessThan(total) {
			return ErrInsufficientFunds
		}

		if err := s.userRepo.Debit(ctx, tx, buyer.ID, total); err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				return ErrInsufficientFunds
			}
			return fmt.Errorf("扣款失败: %w", err)
		}

		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("创建订单失败: %w", err)
		}

		if err := s.transactionRepo.Create(ctx, tx, &model.WalletTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        buyer.ID,
			Reference:     order.OrderNo,
			Amount:        total.Neg(),
			Type:          model.TransactionTypePay,
			Remark:        fmt.Sprintf("订单支付-%s", order.OrderNo),
		}); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		var sellers []int64
		seen := make(map[int64]bool)
		for _, line := range lines {
			item, err := s.settleLine(ctx, tx, order, line)
			if err != nil {
				return err
			}
			order.Items = append(order.Items, *item)
			if !seen[item.SellerID] {
				seen[item.SellerID] = true
				sellers = append(sellers, item.SellerID)
			}
		}

		for _, sellerID := range sellers {
			room, err := s.chatRepo.EnsureRoom(ctx, tx, order.ID, sellerID, buyer.ID)
			if err != nil {
				return fmt.Errorf("创建聊天室失败: %w", err)
			}
			if err := s.notifier.Notify(ctx, tx, room.ID, orderPlacedText(order.OrderNo)); err != nil {
				return err
			}
		}

		cleared, err := s.cartRepo.Clear(ctx, tx, cart.ID)
		if err != nil {
			return fmt.Errorf("清空购物车失败: %w", err)
		}
		if cleared != int64(len(lines)) {
			return ErrCartChanged
		}

		msg, err := newOutboxMessage(s.cfg.Kafka.Topic.OrderEvent, order.OrderNo, model.EventOrderCreated, map[string]interface{}{
			"order_id":     order.ID,
			"order_no":     order.OrderNo,
			"user_id":      order.UserID,
			"total_amount": order.TotalAmount.StringFixed(2),
			"sellers":      sellers,
			"status":       order.Status,
		})
		if err != nil {
			return err
		}
		if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// settleLine 处理一条购物车明细：校验库存、写订单明细、原子扣库存、卖家入账
func (s *CheckoutService) settleLine(ctx context.Context, tx *gorm.DB, order *model.Order, line *model.CartLine) (*model.OrderItem, error) {
	product, err := s.productRepo.GetByID(ctx, tx, line.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrSellerMissing
		}
		return nil, fmt.Errorf("查询商品失败: %w", err)
	}
	if product.SellerID == 0 {
		return nil, ErrSellerMissing
	}
	if product.StockQuantity < line.Quantity {
		return nil, fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
	}

	item := &model.OrderItem{
		OrderID:       order.ID,
		ProductID:     product.ID,
		SellerID:      product.SellerID,
		Quantity:      line.Quantity,
		PriceSnapshot: line.Price,
	}
	if err := s.orderRepo.CreateItem(ctx, tx, item); err != nil {
		return nil, fmt.Errorf("创建订单明细失败: %w", err)
	}

	delisted, err := s.productRepo.ConsumeStock(ctx, tx, product.ID, line.Quantity)
	if err != nil {
		if errors.Is(err, repository.ErrStockConflict) {
			return nil, fmt.Errorf("%w: %s", ErrStockRace, product.Name)
		}
		return nil, fmt.Errorf("扣减库存失败: %w", err)
	}
	if delisted {
		s.log.Info().Int64("product_id", product.ID).Msg("库存售罄，商品自动下架")
	}

	income := item.LineTotal()
	if err := s.userRepo.Credit(ctx, tx, product.SellerID, income); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrSellerMissing
		}
		return nil, fmt.Errorf("卖家入账失败: %w", err)
	}

	if err := s.transactionRepo.Create(ctx, tx, &model.WalletTransaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		UserID:        product.SellerID,
		Reference:     order.OrderNo,
		Amount:        income,
		Type:          model.TransactionTypeIncome,
		Remark:        fmt.Sprintf("订单收入-%s-商品%d", order.OrderNo, product.ID),
	}); err != nil {
		return nil, fmt.Errorf("记录流水失败: %w", err)
	}

	return item, nil
}
