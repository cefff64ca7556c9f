// Package domain 买卖双方会话与消息的领域模型
package domain

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotParticipant       = errors.New("user is not a participant")
	// ErrMessageBlocked 对发送方只呈现投递失败，不暴露命中的规则
	ErrMessageBlocked = errors.New("message could not be delivered")
)

// MessageStatus 消息投递状态
type MessageStatus string

const (
	// StatusDelivered 已投递（含进人工队列但先行放行的消息）
	StatusDelivered MessageStatus = "delivered"
	// StatusBlocked 被审核拦截，仅发送方可见
	StatusBlocked MessageStatus = "blocked"
)

// Conversation 围绕一个商品的买卖双方会话，(listing_id, buyer_id) 唯一
type Conversation struct {
	gorm.Model
	ConversationID string `gorm:"column:conversation_id;type:varchar(32);uniqueIndex;not null" json:"conversation_id"`
	ListingID      string `gorm:"column:listing_id;type:varchar(32);uniqueIndex:idx_listing_buyer;not null" json:"listing_id"`
	BuyerID        string `gorm:"column:buyer_id;type:varchar(32);uniqueIndex:idx_listing_buyer;index;not null" json:"buyer_id"`
	SellerID       string `gorm:"column:seller_id;type:varchar(32);index;not null" json:"seller_id"`
	LastMessageAt  int64  `gorm:"column:last_message_at" json:"last_message_at"`
}

// TableName 表名
func (Conversation) TableName() string {
	return "conversations"
}

// Participant 判断用户是否是会话参与方
func (c *Conversation) Participant(userID string) bool {
	return userID == c.BuyerID || userID == c.SellerID
}

// Counterparty 会话中的另一方
func (c *Conversation) Counterparty(userID string) string {
	if userID == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}

// Message 会话内的一条消息。删除走软删除，
// 删除后异步审核评分会按对象不存在静默丢弃。
type Message struct {
	gorm.Model
	MessageID      string        `gorm:"column:message_id;type:varchar(32);uniqueIndex;not null" json:"message_id"`
	ConversationID string        `gorm:"column:conversation_id;type:varchar(32);index;not null" json:"conversation_id"`
	SenderID       string        `gorm:"column:sender_id;type:varchar(32);index;not null" json:"sender_id"`
	Body           string        `gorm:"column:body;type:varchar(2048);not null" json:"body"`
	Status         MessageStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	FlagID         string        `gorm:"column:flag_id;type:varchar(32)" json:"flag_id,omitempty"`
}

// TableName 表名
func (Message) TableName() string {
	return "messages"
}
