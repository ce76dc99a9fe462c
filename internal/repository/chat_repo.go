package repository

import (
	"context"

	"marketplace/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

// EnsureRoom 按 (order_id, seller_id) 幂等建房
func (r *ChatRepository) EnsureRoom(ctx context.Context, tx *gorm.DB, orderID, sellerID, buyerID int64) (*model.ChatRoom, error) {
	db := r.conn(tx).WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "seller_id"}},
		DoNothing: true,
	}).Create(&model.ChatRoom{OrderID: orderID, SellerID: sellerID, BuyerID: buyerID}).Error
	if err != nil {
		return nil, err
	}

	var room model.ChatRoom
	if err := db.Where("order_id = ? AND seller_id = ?", orderID, sellerID).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *ChatRepository) ListRoomsByOrder(ctx context.Context, tx *gorm.DB, orderID int64) ([]*model.ChatRoom, error) {
	var rooms []*model.ChatRoom
	err := r.conn(tx).WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&rooms).Error
	return rooms, err
}

func (r *ChatRepository) CreateMessage(ctx context.Context, tx *gorm.DB, msg *model.ChatMessage) error {
	return r.conn(tx).WithContext(ctx).Create(msg).Error
}

func (r *ChatRepository) ListMessages(ctx context.Context, roomID int64) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	err := r.db.WithContext(ctx).Where("chat_room_id = ?", roomID).Order("id ASC").Find(&messages).Error
	return messages, err
}
