package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusCompleted, true},
		{OrderStatusCancelled, OrderStatusCompleted, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCompleted, OrderStatusCompleted, false},
		{OrderStatusPending, OrderStatusPending, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CanTransitionTo(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestOrderIsTerminal(t *testing.T) {
	assert.False(t, (&Order{Status: OrderStatusPending}).IsTerminal())
	assert.True(t, (&Order{Status: OrderStatusCancelled}).IsTerminal())
	assert.True(t, (&Order{Status: OrderStatusCompleted}).IsTerminal())
}

func TestProductNormalizeStatus(t *testing.T) {
	p := &Product{StockQuantity: 0, Status: ProductStatusOnShelf}
	p.NormalizeStatus()
	assert.Equal(t, ProductStatusOffShelf, p.Status)

	p = &Product{StockQuantity: 5}
	p.NormalizeStatus()
	assert.Equal(t, ProductStatusOnShelf, p.Status)
	assert.True(t, p.Listed())

	p.IsDeleted = true
	assert.False(t, p.Listed())

	assert.True(t, ShouldDelist(0))
	assert.True(t, ShouldDelist(-1))
	assert.False(t, ShouldDelist(1))
}

func TestRedemptionCodeExhausted(t *testing.T) {
	c := &RedemptionCode{MaxUses: 2, CurrentUses: 1}
	assert.False(t, c.Exhausted())
	c.CurrentUses = 2
	assert.True(t, c.Exhausted())
}

func TestLineTotals(t *testing.T) {
	item := &OrderItem{Quantity: 3, PriceSnapshot: decimal.RequireFromString("19.90")}
	assert.True(t, item.LineTotal().Equal(decimal.RequireFromString("59.70")))

	line := &CartLine{Quantity: 2, Price: decimal.NewFromInt(100)}
	assert.True(t, line.LineTotal().Equal(decimal.NewFromInt(200)))
}

func TestSystemMessage(t *testing.T) {
	msg := NewSystemMessage(7, "hello")
	assert.True(t, msg.IsSystem())
	assert.False(t, msg.IsRead)
	assert.Equal(t, int64(7), msg.ChatRoomID)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleSeller))
	assert.False(t, ValidRole("root"))
}
