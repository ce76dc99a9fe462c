package mq

import (
	"fmt"

	"marketplace/internal/config"

	"github.com/IBM/sarama"
)

// Producer 对 sarama 同步生产者的薄封装
type Producer struct {
	producer sarama.SyncProducer
}

// NewKafkaProducer 创建 Kafka 同步生产者
func NewKafkaProducer(cfg *config.KafkaConfig) (*Producer, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("创建 Kafka 生产者失败: %w", err)
	}
	return NewProducer(producer), nil
}

func NewProducer(producer sarama.SyncProducer) *Producer {
	return &Producer{producer: producer}
}

// Publish 同步发送，返回写入的分区与偏移量
func (p *Producer) Publish(topic, key, value string) (int32, int64, error) {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}
	return p.producer.SendMessage(msg)
}

func (p *Producer) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
