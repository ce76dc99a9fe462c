package service

import (
	"context"
	"fmt"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"gorm.io/gorm"
)

// Notifier 向聊天室写入系统消息
// 调用方传入事务，写入失败会让外层事务整体回滚
type Notifier struct {
	chatRepo *repository.ChatRepository
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{chatRepo: repository.NewChatRepository(db)}
}

func (n *Notifier) Notify(ctx context.Context, tx *gorm.DB, roomID int64, text string) error {
	if err := n.chatRepo.CreateMessage(ctx, tx, model.NewSystemMessage(roomID, text)); err != nil {
		return fmt.Errorf("写入系统消息失败: %w", err)
	}
	return nil
}

// NotifyOrder 给订单下的每个聊天室各发一条
func (n *Notifier) NotifyOrder(ctx context.Context, tx *gorm.DB, orderID int64, text string) error {
	rooms, err := n.chatRepo.ListRoomsByOrder(ctx, tx, orderID)
	if err != nil {
		return fmt.Errorf("查询聊天室失败: %w", err)
	}
	for _, room := range rooms {
		if err := n.Notify(ctx, tx, room.ID, text); err != nil {
			return err
		}
	}
	return nil
}

func orderPlacedText(orderNo string) string {
	return fmt.Sprintf("订单 #%s 已建立，等待卖家确认。", orderNo)
}

func orderCancelledText(orderNo, reason string) string {
	return fmt.Sprintf("订单 #%s 已取消。原因: %s", orderNo, reason)
}

func orderCompletedText(orderNo string) string {
	return fmt.Sprintf("订单 #%s 已完成。", orderNo)
}
