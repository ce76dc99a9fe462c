package job

import (
	"context"
	"sync"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Publisher 消息投递方，生产环境是 mq.Producer
type Publisher interface {
	Publish(topic, key, value string) (int32, int64, error)
}

// OutboxSender 轮询本地消息表，把 PENDING 消息投递出去
// 投递失败累加重试次数，达到上限后标记为 FAILED
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	publisher  Publisher
	log        zerolog.Logger
	stopCh     chan struct{}
	stopOnce   sync.Once
	interval   time.Duration
	batchSize  int
	maxRetry   int
}

func NewOutboxSender(db *gorm.DB, publisher Publisher, cfg *config.Config, log zerolog.Logger) *OutboxSender {
	interval := time.Duration(cfg.Business.OutboxIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	batchSize := cfg.Business.OutboxBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	maxRetry := cfg.Business.MaxRetryCount
	if maxRetry <= 0 {
		maxRetry = 1
	}

	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		publisher:  publisher,
		log:        log.With().Str("component", "outbox_sender").Logger(),
		stopCh:     make(chan struct{}),
		interval:   interval,
		batchSize:  batchSize,
		maxRetry:   maxRetry,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("消息发送任务启动")
	s.reportFailed(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("收到停止信号，任务退出")
			return
		case <-s.stopCh:
			s.log.Info().Msg("任务停止")
			return
		case <-ticker.C:
			s.ProcessPending(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// reportFailed 启动时提示需要人工处理的消息
func (s *OutboxSender) reportFailed(ctx context.Context) {
	failed, err := s.outboxRepo.GetFailedMessages(ctx, s.batchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("查询失败消息失败")
		return
	}
	if len(failed) > 0 {
		s.log.Warn().Int("count", len(failed)).Msg("存在投递失败的消息，需要人工处理")
	}
}

// ProcessPending 处理一批待发送消息，返回成功发送的条数
func (s *OutboxSender) ProcessPending(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("查询消息失败")
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if s.sendMessage(ctx, msg) {
			sent++
		}
	}
	return sent
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	partition, offset, err := s.publisher.Publish(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outboxRepo.MarkAsSent(ctx, msg.ID); updateErr != nil {
			s.log.Error().Err(updateErr).Int64("id", msg.ID).Msg("更新消息状态失败")
			return false
		}
		s.log.Debug().
			Int64("id", msg.ID).
			Str("topic", msg.Topic).
			Str("key", msg.MessageKey).
			Int32("partition", partition).
			Int64("offset", offset).
			Msg("消息发送成功")
		return true
	}

	s.log.Warn().Err(err).Int64("id", msg.ID).Int("retry_count", msg.RetryCount).Msg("消息发送失败")

	if msg.RetryCount+1 >= s.maxRetry {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			s.log.Error().Err(err).Int64("id", msg.ID).Msg("标记消息失败状态失败")
		} else {
			s.log.Error().Int64("id", msg.ID).Str("event_type", msg.EventType).Msg("消息超过最大重试次数，标记为失败")
		}
		return false
	}

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		s.log.Error().Err(err).Int64("id", msg.ID).Msg("增加重试次数失败")
	}
	return false
}
