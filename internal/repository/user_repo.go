package repository

import (
	"context"
	"errors"

	"marketplace/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
)

// UserRepository 用户与钱包余额
// 余额只能通过 Debit / Credit 原子修改
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *UserRepository) Create(ctx context.Context, tx *gorm.DB, user *model.User) error {
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	return r.conn(tx).WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, tx *gorm.DB, userID int64) (*model.User, error) {
	var user model.User
	err := r.conn(tx).WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByIDForUpdate 锁定用户行直到事务结束
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.User, error) {
	var user model.User
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// exists MySQL 的 RowsAffected 是实际变更的行数，值没变时为 0，需要再确认行是否存在
func (r *UserRepository) exists(ctx context.Context, tx *gorm.DB, userID int64) (bool, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

// Debit 扣减余额，条件更新保证不会扣成负数
func (r *UserRepository) Debit(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND wallet_balance >= ?", userID, amount).
		Update("wallet_balance", gorm.Expr("wallet_balance - ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBalanceNotEnough
	}
	return nil
}

func (r *UserRepository) Credit(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error {
	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("wallet_balance", gorm.Expr("wallet_balance + ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		found, err := r.exists(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !found {
			return ErrUserNotFound
		}
	}
	return nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, userID int64, role string) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		found, err := r.exists(ctx, nil, userID)
		if err != nil {
			return err
		}
		if !found {
			return ErrUserNotFound
		}
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error
	return users, err
}
