// Package messaging 审核评分任务的 Kafka 投递与事件发布
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"gorm.io/gorm"

	"github.com/wyfcoding/marketplace/internal/moderation/domain"
)

// KafkaScoreQueue 评分任务队列：正常任务与死信走不同主题
type KafkaScoreQueue struct {
	producer *kafka.Producer
}

func NewKafkaScoreQueue(producer *kafka.Producer) *KafkaScoreQueue {
	return &KafkaScoreQueue{producer: producer}
}

func (q *KafkaScoreQueue) Enqueue(ctx context.Context, req domain.ScoreRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return q.producer.PublishToTopic(ctx, domain.ScoreRequestedEventType, []byte(req.FlagID), payload)
}

func (q *KafkaScoreQueue) DeadLetter(ctx context.Context, req domain.ScoreRequest, reason string) error {
	payload, err := json.Marshal(struct {
		domain.ScoreRequest
		Reason   string    `json:"reason"`
		FailedAt time.Time `json:"failed_at"`
	}{ScoreRequest: req, Reason: reason, FailedAt: time.Now()})
	if err != nil {
		return err
	}
	return q.producer.PublishToTopic(ctx, domain.ScoreDeadLetterEventType, []byte(req.FlagID), payload)
}

// outboxPublisher 审核事件的 Outbox 发布实现
type outboxPublisher struct {
	manager *outbox.Manager
}

func NewOutboxPublisher(manager *outbox.Manager) domain.EventPublisher {
	return &outboxPublisher{manager: manager}
}

func (p *outboxPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return p.manager.PublishInTx(ctx, p.manager.DB(), topic, key, event)
}

func (p *outboxPublisher) PublishInTx(ctx context.Context, tx any, topic string, key string, event any) error {
	gormTx, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("tx must be *gorm.DB, got %T", tx)
	}
	return p.manager.PublishInTx(ctx, gormTx, topic, key, event)
}
