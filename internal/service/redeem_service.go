package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace/internal/config"
	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/pkg/idgen"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RedeemService 兑换码充值
// 兑换码行在事务内加锁，同一兑换码的所有兑换串行
type RedeemService struct {
	db              *gorm.DB
	cfg             *config.Config
	log             zerolog.Logger
	userRepo        *repository.UserRepository
	redemptionRepo  *repository.RedemptionRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewRedeemService(db *gorm.DB, cfg *config.Config, log zerolog.Logger) *RedeemService {
	return &RedeemService{
		db:              db,
		cfg:             cfg,
		log:             log.With().Str("component", "redeem").Logger(),
		userRepo:        repository.NewUserRepository(db),
		redemptionRepo:  repository.NewRedemptionRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type RedeemRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

type RedeemResponse struct {
	Code    string          `json:"code"`
	Value   decimal.Decimal `json:"value"`
	Balance decimal.Decimal `json:"balance"`
}

func (s *RedeemService) Redeem(ctx context.Context, req *RedeemRequest) (*RedeemResponse, error) {
	code := strings.TrimSpace(req.Code)
	if req.UserID <= 0 || code == "" {
		return nil, fmt.Errorf("%w: user_id 和 code 必填", ErrInvalidArgument)
	}

	resp := &RedeemResponse{Code: code}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		rc, err := s.redemptionRepo.GetByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return err
		}
		if rc.Exhausted() {
			return ErrCodeExhausted
		}

		redeemed, err := s.redemptionRepo.HasRedeemed(ctx, tx, rc.ID, req.UserID)
		if err != nil {
			return fmt.Errorf("查询兑换记录失败: %w", err)
		}
		if redeemed {
			return ErrAlreadyRedeemed
		}

		user, err := s.userRepo.GetByIDForUpdate(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		if err := s.redemptionRepo.IncrementUses(ctx, tx, rc.ID); err != nil {
			return err
		}
		if err := s.redemptionRepo.CreateHistory(ctx, tx, &model.RedemptionHistory{CodeID: rc.ID, UserID: user.ID}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyRedeemed
			}
			return fmt.Errorf("写入兑换记录失败: %w", err)
		}
		if err := s.userRepo.Credit(ctx, tx, user.ID, rc.Value); err != nil {
			return fmt.Errorf("充值失败: %w", err)
		}

		if err := s.transactionRepo.Create(ctx, tx, &model.WalletTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        user.ID,
			Reference:     rc.Code,
			Amount:        rc.Value,
			Type:          model.TransactionTypeRedeem,
			Remark:        fmt.Sprintf("兑换码充值-%s", rc.Code),
		}); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		msg, err := newOutboxMessage(s.cfg.Kafka.Topic.WalletEvent, fmt.Sprintf("%d", user.ID), model.EventWalletRedeemed, map[string]interface{}{
			"user_id": user.ID,
			"code":    rc.Code,
			"value":   rc.Value.StringFixed(2),
		})
		if err != nil {
			return err
		}
		if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		resp.Value = rc.Value
		resp.Balance = user.WalletBalance.Add(rc.Value)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", req.UserID).Str("code", code).Str("amount", resp.Value.StringFixed(2)).Msg("兑换成功")
	return resp, nil
}
