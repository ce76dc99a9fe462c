package service

import (
	"context"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type AccountService struct {
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		userRepo:        repository.NewUserRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

type WalletResponse struct {
	UserID  int64           `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
	Role    string          `json:"role"`
}

func (s *AccountService) GetWallet(ctx context.Context, userID int64) (*WalletResponse, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	return &WalletResponse{
		UserID:  user.ID,
		Balance: user.WalletBalance,
		Role:    user.Role,
	}, nil
}

type TransactionPage struct {
	Total int64                      `json:"total"`
	Page  int                        `json:"page"`
	Items []*model.WalletTransaction `json:"items"`
}

func (s *AccountService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) (*TransactionPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &TransactionPage{Total: total, Page: page, Items: items}, nil
}
