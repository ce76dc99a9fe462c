//go:build integration
// +build integration

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/infrastructure/database"
	"marketplace/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// 真实的行锁和条件更新只能在 PostgreSQL 上验证
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("market"),
		postgres.WithUsername("market"),
		postgres.WithPassword("market"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(&config.DatabaseConfig{
		Driver:       database.DriverPostgres,
		DSN:          dsn,
		MaxOpenConns: 20,
		MaxIdleConns: 5,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	return db
}

func TestIntegrationConcurrentCheckoutNeverOversells(t *testing.T) {
	db := newPostgresDB(t)
	f := newFixtures(t, db)
	checkout := NewCheckoutService(db, nil, config.Default(), testLogger())

	const stock = 3
	const buyers = 10
	seller := f.user("seller", "0", model.RoleSeller)
	p := f.product(seller.ID, "HOT", "10", stock)

	ids := make([]int64, buyers)
	for i := range ids {
		u := f.user(fmt.Sprintf("buyer%d", i), "100", model.RoleUser)
		f.addToCart(u.ID, p.ID, 1)
		ids[i] = u.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, userID int64) {
			defer wg.Done()
			_, errs[i] = checkout.Checkout(context.Background(), &CheckoutRequest{UserID: userID, ShippingAddress: "addr"})
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrOutOfStock) || errors.Is(err, ErrStockRace), "unexpected error: %v", err)
	}
	assert.Equal(t, stock, succeeded)

	product := f.reloadProduct(p.ID)
	assert.Equal(t, 0, product.StockQuantity)
	assert.Equal(t, stock, product.SalesCount)
	assert.Equal(t, model.ProductStatusOffShelf, product.Status)
	assert.True(t, dec("30").Equal(f.reloadUser(seller.ID).WalletBalance))
	assert.Equal(t, int64(stock), f.count(&model.Order{}, ""))
}

func TestIntegrationConcurrentRedeemRespectsMaxUses(t *testing.T) {
	db := newPostgresDB(t)
	f := newFixtures(t, db)
	redeem := NewRedeemService(db, config.Default(), testLogger())

	const maxUses = 2
	const users = 8
	require.NoError(t, db.Create(&model.RedemptionCode{Code: "RUSH", Value: dec("5"), MaxUses: maxUses}).Error)

	ids := make([]int64, users)
	for i := range ids {
		ids[i] = f.user(fmt.Sprintf("u%d", i), "0", model.RoleUser).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, users*2)
	for i, id := range ids {
		// 每个用户同时提交两次
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(slot int, userID int64) {
				defer wg.Done()
				_, errs[slot] = redeem.Redeem(context.Background(), &RedeemRequest{UserID: userID, Code: "RUSH"})
			}(i*2+j, id)
		}
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrCodeExhausted) || errors.Is(err, ErrAlreadyRedeemed), "unexpected error: %v", err)
	}
	assert.Equal(t, maxUses, succeeded)

	var rc model.RedemptionCode
	require.NoError(t, db.Where("code = ?", "RUSH").First(&rc).Error)
	assert.Equal(t, maxUses, rc.CurrentUses)
	assert.Equal(t, int64(maxUses), f.count(&model.RedemptionHistory{}, ""))
}

func TestIntegrationSameBuyerDoubleCheckoutChargesOnce(t *testing.T) {
	db := newPostgresDB(t)
	f := newFixtures(t, db)
	checkout := NewCheckoutService(db, nil, config.Default(), testLogger())

	seller := f.user("seller", "0", model.RoleSeller)
	p := f.product(seller.ID, "P", "40", 10)
	buyer := f.user("buyer", "100", model.RoleUser)
	f.addToCart(buyer.ID, p.ID, 2)

	const attempts = 4
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = checkout.Checkout(context.Background(), &CheckoutRequest{UserID: buyer.ID, ShippingAddress: "addr"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrEmptyCart)
	}
	assert.Equal(t, 1, succeeded)

	assert.True(t, dec("20").Equal(f.reloadUser(buyer.ID).WalletBalance))
	assert.True(t, dec("80").Equal(f.reloadUser(seller.ID).WalletBalance))
	assert.Equal(t, 8, f.reloadProduct(p.ID).StockQuantity)
	assert.Equal(t, int64(1), f.count(&model.Order{}, ""))
}
