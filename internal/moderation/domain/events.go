package domain

import (
	"context"
	"time"
)

const (
	MessageFlaggedEventType  = "moderation.content.flagged"
	ScoreRequestedEventType  = "moderation.score.requested"
	ScoreDeadLetterEventType = "moderation.score.deadletter"
	FlagUpgradedEventType    = "moderation.flag.upgraded"
)

// ContentFlaggedEvent 同步审核产出非 allowed 结论时发布
type ContentFlaggedEvent struct {
	FlagID     string    `json:"flag_id"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	SenderID   string    `json:"sender_id"`
	RuleScore  int       `json:"rule_score"`
	RiskLevel  RiskLevel `json:"risk_level"`
	Action     Action    `json:"action"`
	Tags       []string  `json:"tags"`
	OccurredOn time.Time `json:"occurred_on"`
}

// ScoreRequest 异步 AI 评分任务载荷，Attempt 记录重试次数
type ScoreRequest struct {
	FlagID     string `json:"flag_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Content    string `json:"content"`
	Attempt    int    `json:"attempt"`
}

// FlagUpgradedEvent AI 评分升级风险等级后发布，驱动告警
type FlagUpgradedEvent struct {
	FlagID     string    `json:"flag_id"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	AIScore    float64   `json:"ai_score"`
	RiskLevel  RiskLevel `json:"risk_level"`
	Action     Action    `json:"action"`
	OccurredOn time.Time `json:"occurred_on"`
}

// ScoreEnqueuer 评分任务投递契约，Kafka 实现
type ScoreEnqueuer interface {
	Enqueue(ctx context.Context, req ScoreRequest) error
	DeadLetter(ctx context.Context, req ScoreRequest, reason string) error
}

// EventPublisher 审核领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
	PublishInTx(ctx context.Context, tx any, topic string, key string, event any) error
}
