package model

import (
	"time"
)

const (
	MessageTypeText   = "TEXT"
	MessageTypeImage  = "IMAGE"
	MessageTypeSystem = "SYSTEM"
)

// ChatRoom 一个订单里每个卖家对应一个聊天室
type ChatRoom struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64     `gorm:"uniqueIndex:idx_room_order_seller;not null" json:"order_id"`
	SellerID  int64     `gorm:"uniqueIndex:idx_room_order_seller;not null" json:"seller_id"`
	BuyerID   int64     `gorm:"index;not null" json:"buyer_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// ChatMessage sender_id 为空表示系统消息
type ChatMessage struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatRoomID  int64     `gorm:"index;not null" json:"chat_room_id"`
	SenderID    *int64    `json:"sender_id"`
	MessageType string    `gorm:"type:varchar(16);not null" json:"message_type"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	IsRead      bool      `gorm:"not null" json:"is_read"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

func NewSystemMessage(roomID int64, content string) *ChatMessage {
	return &ChatMessage{
		ChatRoomID:  roomID,
		MessageType: MessageTypeSystem,
		Content:     content,
	}
}

func (m *ChatMessage) IsSystem() bool {
	return m.SenderID == nil && m.MessageType == MessageTypeSystem
}
