package service

import (
	"context"
	"io"
	"testing"

	"marketplace/internal/config"
	"marketplace/internal/infrastructure/database"
	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 单连接的内存库，事务天然串行
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver:       database.DriverSQLite,
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testLogger() zerolog.Logger {
	return logger.NewWithWriter(io.Discard, "debug", false)
}

type fixtures struct {
	t   *testing.T
	db  *gorm.DB
	ctx context.Context
}

func newFixtures(t *testing.T, db *gorm.DB) *fixtures {
	return &fixtures{t: t, db: db, ctx: context.Background()}
}

func (f *fixtures) user(name string, balance string, role string) *model.User {
	f.t.Helper()
	u := &model.User{
		Username:      name,
		Email:         name + "@example.com",
		PasswordHash:  "x",
		Role:          role,
		WalletBalance: decimal.RequireFromString(balance),
	}
	require.NoError(f.t, repository.NewUserRepository(f.db).Create(f.ctx, nil, u))
	return u
}

func (f *fixtures) product(sellerID int64, name, price string, stock int) *model.Product {
	f.t.Helper()
	p := &model.Product{
		SellerID:      sellerID,
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	require.NoError(f.t, repository.NewProductRepository(f.db).Create(f.ctx, nil, p))
	return p
}

func (f *fixtures) addToCart(userID, productID int64, qty int) {
	f.t.Helper()
	_, err := NewCartService(f.db).AddItem(f.ctx, &AddItemRequest{UserID: userID, ProductID: productID, Quantity: qty})
	require.NoError(f.t, err)
}

func (f *fixtures) reloadUser(id int64) *model.User {
	f.t.Helper()
	u, err := repository.NewUserRepository(f.db).GetByID(f.ctx, nil, id)
	require.NoError(f.t, err)
	return u
}

func (f *fixtures) reloadProduct(id int64) *model.Product {
	f.t.Helper()
	p, err := repository.NewProductRepository(f.db).GetByID(f.ctx, nil, id)
	require.NoError(f.t, err)
	return p
}

func (f *fixtures) count(value interface{}, query string, args ...interface{}) int64 {
	f.t.Helper()
	var n int64
	q := f.db.Model(value)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(f.t, q.Count(&n).Error)
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// sameTx 在回调内复用当前语句的连接，写入跟随外层事务提交或回滚
func sameTx(d *gorm.DB) *gorm.DB {
	return d.Session(&gorm.Session{NewDB: true})
}

func lockedQuery(d *gorm.DB, table string) bool {
	_, locked := d.Statement.Clauses["FOR"]
	return locked && d.Statement.Table == table
}

// beforeLockedQuery 在第一次对 table 加锁查询之前执行 fn，返回是否已触发
func (f *fixtures) beforeLockedQuery(table string, fn func(tx *gorm.DB)) *bool {
	f.t.Helper()
	fired := new(bool)
	err := f.db.Callback().Query().Before("gorm:query").Register("test:before_locked_"+table, func(d *gorm.DB) {
		if *fired || !lockedQuery(d, table) {
			return
		}
		*fired = true
		fn(sameTx(d))
	})
	require.NoError(f.t, err)
	return fired
}

// failCreate 让 table 的插入失败
func (f *fixtures) failCreate(table string, cause error) {
	f.t.Helper()
	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_create_"+table, func(d *gorm.DB) {
		if d.Statement.Table == table {
			_ = d.AddError(cause)
		}
	})
	require.NoError(f.t, err)
}
