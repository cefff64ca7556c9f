package domain

import "context"

// MessageRepository 会话与消息仓储
type MessageRepository interface {
	SaveConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)
	FindConversation(ctx context.Context, listingID, buyerID string) (*Conversation, error)
	ListConversations(ctx context.Context, userID string, limit, offset int) ([]*Conversation, int64, error)

	SaveMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, messageID string) (*Message, error)
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	MessageExists(ctx context.Context, messageID string) (bool, error)
}

// 消息事件主题
const (
	MessageSentEventType    = "messaging.message.sent"
	MessageDeletedEventType = "messaging.message.deleted"
)

// MessageSentEvent 消息投递成功后发布
type MessageSentEvent struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	RecipientID    string `json:"recipient_id"`
	OccurredOn     int64  `json:"occurred_on"`
}

// MessageDeletedEvent 消息删除后发布
type MessageDeletedEvent struct {
	MessageID  string `json:"message_id"`
	DeletedBy  string `json:"deleted_by"`
	OccurredOn int64  `json:"occurred_on"`
}

// EventPublisher 消息领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
	PublishInTx(ctx context.Context, tx any, topic string, key string, event any) error
}

// Verdict 审核结论，消息服务只关心处置与标记号
type Verdict struct {
	FlagID  string
	Blocked bool
}

// Moderator 同步内容审核契约，进程内组合审核服务
type Moderator interface {
	Check(ctx context.Context, targetID, senderID, content string) (Verdict, error)
}

// Notifier 通知接收方契约
type Notifier interface {
	Notify(ctx context.Context, userID, eventType string, payload map[string]any)
}
