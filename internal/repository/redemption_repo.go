package repository

import (
	"context"
	"errors"

	"marketplace/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCodeNotFound  = errors.New("兑换码不存在")
	ErrCodeExhausted = errors.New("兑换码已用完")
	ErrCodeExists    = errors.New("兑换码已存在")
)

type RedemptionRepository struct {
	db *gorm.DB
}

func NewRedemptionRepository(db *gorm.DB) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// GetByCodeForUpdate 锁定兑换码行，同一兑换码的兑换串行执行
func (r *RedemptionRepository) GetByCodeForUpdate(ctx context.Context, tx *gorm.DB, code string) (*model.RedemptionCode, error) {
	var rc model.RedemptionCode
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&rc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &rc, nil
}

func (r *RedemptionRepository) HasRedeemed(ctx context.Context, tx *gorm.DB, codeID, userID int64) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.RedemptionHistory{}).
		Where("code_id = ? AND user_id = ?", codeID, userID).
		Count(&count).Error
	return count > 0, err
}

// IncrementUses 条件更新，current_uses 不会越过 max_uses
func (r *RedemptionRepository) IncrementUses(ctx context.Context, tx *gorm.DB, codeID int64) error {
	result := tx.WithContext(ctx).
		Model(&model.RedemptionCode{}).
		Where("id = ? AND current_uses < max_uses", codeID).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCodeExhausted
	}
	return nil
}

func (r *RedemptionRepository) CreateHistory(ctx context.Context, tx *gorm.DB, history *model.RedemptionHistory) error {
	return tx.WithContext(ctx).Create(history).Error
}

func (r *RedemptionRepository) Create(ctx context.Context, rc *model.RedemptionCode) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.RedemptionCode{}).Where("code = ?", rc.Code).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrCodeExists
	}

	err := r.db.WithContext(ctx).Create(rc).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrCodeExists
	}
	return err
}

func (r *RedemptionRepository) List(ctx context.Context) ([]*model.RedemptionCode, error) {
	var codes []*model.RedemptionCode
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&codes).Error
	return codes, err
}

func (r *RedemptionRepository) Delete(ctx context.Context, codeID int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", codeID).Delete(&model.RedemptionCode{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCodeNotFound
	}
	return nil
}
