package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Authorizer 所有管理操作之前统一做的角色校验
type Authorizer struct {
	userRepo *repository.UserRepository
}

func NewAuthorizer(db *gorm.DB) *Authorizer {
	return &Authorizer{userRepo: repository.NewUserRepository(db)}
}

func (a *Authorizer) RequireAdmin(ctx context.Context, userID int64) error {
	user, err := a.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !user.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

type AdminService struct {
	authz          *Authorizer
	log            zerolog.Logger
	userRepo       *repository.UserRepository
	redemptionRepo *repository.RedemptionRepository
}

func NewAdminService(db *gorm.DB, log zerolog.Logger) *AdminService {
	return &AdminService{
		authz:          NewAuthorizer(db),
		log:            log.With().Str("component", "admin").Logger(),
		userRepo:       repository.NewUserRepository(db),
		redemptionRepo: repository.NewRedemptionRepository(db),
	}
}

type CreateCodeRequest struct {
	AdminID int64           `json:"admin_id" binding:"required"`
	Code    string          `json:"code" binding:"required"`
	Value   decimal.Decimal `json:"value"`
	MaxUses int             `json:"max_uses"`
}

func (s *AdminService) CreateCode(ctx context.Context, req *CreateCodeRequest) (*model.RedemptionCode, error) {
	if err := s.authz.RequireAdmin(ctx, req.AdminID); err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.Code)
	if code == "" || !req.Value.IsPositive() || req.MaxUses < 1 {
		return nil, fmt.Errorf("%w: code 非空, value > 0, max_uses >= 1", ErrInvalidArgument)
	}

	rc := &model.RedemptionCode{Code: code, Value: req.Value, MaxUses: req.MaxUses}
	if err := s.redemptionRepo.Create(ctx, rc); err != nil {
		return nil, err
	}

	s.log.Info().Int64("admin_id", req.AdminID).Str("code", code).Str("value", rc.Value.StringFixed(2)).Int("max_uses", rc.MaxUses).Msg("创建兑换码")
	return rc, nil
}

func (s *AdminService) ListCodes(ctx context.Context, adminID int64) ([]*model.RedemptionCode, error) {
	if err := s.authz.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.redemptionRepo.List(ctx)
}

func (s *AdminService) DeleteCode(ctx context.Context, adminID, codeID int64) error {
	if err := s.authz.RequireAdmin(ctx, adminID); err != nil {
		return err
	}
	if err := s.redemptionRepo.Delete(ctx, codeID); err != nil {
		return err
	}
	s.log.Info().Int64("admin_id", adminID).Int64("code_id", codeID).Msg("删除兑换码")
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context, adminID int64) ([]*model.User, error) {
	if err := s.authz.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.userRepo.List(ctx)
}

func (s *AdminService) UpdateUserRole(ctx context.Context, adminID, userID int64, role string) error {
	if err := s.authz.RequireAdmin(ctx, adminID); err != nil {
		return err
	}
	if !model.ValidRole(role) {
		return fmt.Errorf("%w: role 只能是 user / seller / admin", ErrInvalidArgument)
	}
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	s.log.Info().Int64("admin_id", adminID).Int64("user_id", userID).Str("role", role).Msg("修改用户角色")
	return nil
}
