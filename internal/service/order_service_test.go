package service

import (
	"context"
	"errors"
	"testing"

	"marketplace/internal/config"
	"marketplace/internal/model"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type OrderSuite struct {
	suite.Suite
	db       *gorm.DB
	f        *fixtures
	checkout *CheckoutService
	orders   *OrderService

	buyer  *model.User
	seller *model.User
	p      *model.Product
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderSuite))
}

func (s *OrderSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.f = newFixtures(s.T(), s.db)
	cfg := config.Default()
	s.checkout = NewCheckoutService(s.db, nil, cfg, testLogger())
	s.orders = NewOrderService(s.db, cfg, testLogger())

	s.buyer = s.f.user("buyer", "500", model.RoleUser)
	s.seller = s.f.user("seller", "0", model.RoleSeller)
	s.p = s.f.product(s.seller.ID, "P", "100", 2)
}

func (s *OrderSuite) placeOrder(qty int) *CheckoutResponse {
	s.f.addToCart(s.buyer.ID, s.p.ID, qty)
	resp, err := s.checkout.Checkout(context.Background(), &CheckoutRequest{UserID: s.buyer.ID, ShippingAddress: "addr"})
	s.Require().NoError(err)
	return resp
}

func (s *OrderSuite) TestCancelRestoresStock() {
	resp := s.placeOrder(2)
	s.Equal(model.ProductStatusOffShelf, s.f.reloadProduct(s.p.ID).Status)

	s.Require().NoError(s.orders.CancelOrder(context.Background(), resp.OrderID, "changed my mind"))

	order, err := s.orders.LoadOrderWithItems(context.Background(), resp.OrderID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusCancelled, order.Status)
	s.Require().NotNil(order.CancellationReason)
	s.Equal("changed my mind", *order.CancellationReason)

	product := s.f.reloadProduct(s.p.ID)
	s.Equal(2, product.StockQuantity)
	s.Equal(0, product.SalesCount)
	// 回补库存不重新上架
	s.Equal(model.ProductStatusOffShelf, product.Status)

	// 不退款
	s.True(dec("300").Equal(s.f.reloadUser(s.buyer.ID).WalletBalance))
	s.True(dec("200").Equal(s.f.reloadUser(s.seller.ID).WalletBalance))

	rooms, err := s.orders.ListOrderMessages(context.Background(), resp.OrderID)
	s.Require().NoError(err)
	s.Require().Len(rooms, 1)
	s.Require().Len(rooms[0].Messages, 2)
	s.Contains(rooms[0].Messages[1].Content, "changed my mind")
	s.True(rooms[0].Messages[1].IsSystem())

	s.Equal(int64(1), s.f.count(&model.OutboxMessage{}, "event_type = ?", model.EventOrderCancelled))
}

func (s *OrderSuite) TestCancelDefaultReason() {
	resp := s.placeOrder(1)
	s.Require().NoError(s.orders.CancelOrder(context.Background(), resp.OrderID, ""))

	order, err := s.orders.LoadOrderWithItems(context.Background(), resp.OrderID)
	s.Require().NoError(err)
	s.Require().NotNil(order.CancellationReason)
	s.Equal(model.DefaultCancellationReason, *order.CancellationReason)
}

func (s *OrderSuite) TestCancelTwiceFails() {
	resp := s.placeOrder(1)
	s.Require().NoError(s.orders.CancelOrder(context.Background(), resp.OrderID, "x"))

	err := s.orders.CancelOrder(context.Background(), resp.OrderID, "x")
	s.ErrorIs(err, ErrInvalidState)
	// 第二次失败不会再回补
	s.Equal(2, s.f.reloadProduct(s.p.ID).StockQuantity)
}

func (s *OrderSuite) TestCancelCompletedFails() {
	resp := s.placeOrder(1)
	s.Require().NoError(s.orders.CompleteOrder(context.Background(), resp.OrderID))

	err := s.orders.CancelOrder(context.Background(), resp.OrderID, "too late")
	s.ErrorIs(err, ErrInvalidState)

	order, err := s.orders.LoadOrderWithItems(context.Background(), resp.OrderID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusCompleted, order.Status)
	s.Nil(order.CancellationReason)
	s.Equal(1, s.f.reloadProduct(s.p.ID).StockQuantity)
}

func (s *OrderSuite) TestComplete() {
	resp := s.placeOrder(1)
	s.Require().NoError(s.orders.CompleteOrder(context.Background(), resp.OrderID))

	rooms, err := s.orders.ListOrderMessages(context.Background(), resp.OrderID)
	s.Require().NoError(err)
	s.Require().Len(rooms, 1)
	s.Len(rooms[0].Messages, 2)

	s.ErrorIs(s.orders.CompleteOrder(context.Background(), resp.OrderID), ErrInvalidState)
	s.Equal(int64(1), s.f.count(&model.OutboxMessage{}, "event_type = ?", model.EventOrderCompleted))
}

func (s *OrderSuite) TestCompleteCancelledFails() {
	resp := s.placeOrder(1)
	s.Require().NoError(s.orders.CancelOrder(context.Background(), resp.OrderID, ""))
	s.ErrorIs(s.orders.CompleteOrder(context.Background(), resp.OrderID), ErrInvalidState)
}

func (s *OrderSuite) TestMissingOrder() {
	s.ErrorIs(s.orders.CompleteOrder(context.Background(), 999), ErrOrderNotFound)
	s.ErrorIs(s.orders.CancelOrder(context.Background(), 999, ""), ErrOrderNotFound)
	_, err := s.orders.LoadOrderWithItems(context.Background(), 999)
	s.ErrorIs(err, ErrOrderNotFound)
}

func (s *OrderSuite) TestListBuyerAndSellerOrders() {
	other := s.f.user("other", "0", model.RoleSeller)
	q := s.f.product(other.ID, "Q", "5", 10)

	s.f.addToCart(s.buyer.ID, s.p.ID, 1)
	s.f.addToCart(s.buyer.ID, q.ID, 2)
	first, err := s.checkout.Checkout(context.Background(), &CheckoutRequest{UserID: s.buyer.ID, ShippingAddress: "addr"})
	s.Require().NoError(err)

	s.f.addToCart(s.buyer.ID, q.ID, 1)
	second, err := s.checkout.Checkout(context.Background(), &CheckoutRequest{UserID: s.buyer.ID, ShippingAddress: "addr"})
	s.Require().NoError(err)

	buyerOrders, err := s.orders.ListBuyerOrders(context.Background(), s.buyer.ID)
	s.Require().NoError(err)
	s.Require().Len(buyerOrders, 2)
	s.Equal(second.OrderID, buyerOrders[0].ID)
	s.Equal(first.OrderID, buyerOrders[1].ID)
	s.Len(buyerOrders[1].Items, 2)

	sellerOrders, err := s.orders.ListSellerOrders(context.Background(), s.seller.ID)
	s.Require().NoError(err)
	s.Require().Len(sellerOrders, 1)
	s.Equal(first.OrderID, sellerOrders[0].ID)
	s.Require().Len(sellerOrders[0].Items, 1)
	s.Equal(s.p.ID, sellerOrders[0].Items[0].ProductID)

	otherOrders, err := s.orders.ListSellerOrders(context.Background(), other.ID)
	s.Require().NoError(err)
	s.Len(otherOrders, 2)
}

func (s *OrderSuite) TestCancelNotificationFailureAborts() {
	resp := s.placeOrder(1)
	cause := errors.New("chat storage unavailable")
	s.f.failCreate("chat_messages", cause)

	err := s.orders.CancelOrder(context.Background(), resp.OrderID, "")
	s.ErrorIs(err, cause)

	order, err := s.orders.LoadOrderWithItems(context.Background(), resp.OrderID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusPending, order.Status)
	s.Nil(order.CancellationReason)

	product := s.f.reloadProduct(s.p.ID)
	s.Equal(1, product.StockQuantity)
	s.Equal(1, product.SalesCount)
	s.Equal(int64(0), s.f.count(&model.OutboxMessage{}, "event_type = ?", model.EventOrderCancelled))
}
