package service

import (
	"encoding/json"
	"fmt"

	"marketplace/internal/model"
)

func newOutboxMessage(topic, key, eventType string, payload map[string]interface{}) (*model.OutboxMessage, error) {
	payload["event_type"] = eventType
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化事件失败: %w", err)
	}
	return &model.OutboxMessage{
		MessageKey: key,
		EventType:  eventType,
		Topic:      topic,
		Payload:    string(body),
		Status:     model.OutboxStatusPending,
	}, nil
}
