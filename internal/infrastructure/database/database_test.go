package database

import (
	"testing"

	"marketplace/internal/config"
	"marketplace/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	db, err := Open(&config.DatabaseConfig{
		Driver:       DriverSQLite,
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	for _, table := range []interface{}{
		&model.User{}, &model.Product{}, &model.Order{}, &model.OrderItem{},
		&model.ChatRoom{}, &model.RedemptionCode{}, &model.OutboxMessage{},
	} {
		assert.True(t, db.Migrator().HasTable(table))
	}
	assert.True(t, db.Migrator().HasIndex(&model.ChatRoom{}, "idx_room_order_seller"))
	assert.True(t, db.Migrator().HasIndex(&model.RedemptionHistory{}, "idx_code_user"))
}

func TestDialectorForUnknownDriver(t *testing.T) {
	_, err := dialectorFor(&config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)

	_, err = dialectorFor(&config.DatabaseConfig{Driver: DriverSQLite})
	require.Error(t, err)
}

func TestDialectorForNames(t *testing.T) {
	d, err := dialectorFor(&config.DatabaseConfig{Driver: DriverMySQL, Host: "h", Port: 3306})
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	d, err = dialectorFor(&config.DatabaseConfig{Driver: DriverPostgres, Host: "h", Port: 5432})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseLogLevel("silent"))
	assert.Equal(t, logger.Info, parseLogLevel("INFO"))
	assert.Equal(t, logger.Warn, parseLogLevel(""))
}
