// Package domain 通知服务的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrNotificationNotFound 通知不存在
var ErrNotificationNotFound = errors.New("notification not found")

// ErrUnknownChannel 未配置对应渠道的发送器
var ErrUnknownChannel = errors.New("unknown notification channel")

// Channel 通知渠道
type Channel string

const (
	ChannelEmail   Channel = "EMAIL"   // 邮件通知
	ChannelSMS     Channel = "SMS"     // 短信通知
	ChannelWebhook Channel = "WEBHOOK" // Webhook 通知
)

// Status 通知状态
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Notification 通知实体
type Notification struct {
	gorm.Model
	// NotificationID 通知 ID
	NotificationID string `gorm:"column:notification_id;type:varchar(32);uniqueIndex;not null" json:"notification_id"`
	// UserID 接收用户 ID
	UserID string `gorm:"column:user_id;type:varchar(32);index;not null" json:"user_id"`
	// Channel 通知渠道
	Channel Channel `gorm:"column:channel;type:varchar(20);not null" json:"channel"`
	// EventType 触发该通知的业务事件
	EventType string `gorm:"column:event_type;type:varchar(64);index" json:"event_type"`
	// Subject 通知主题
	Subject string `gorm:"column:subject;type:varchar(200)" json:"subject"`
	// Content 通知内容
	Content string `gorm:"column:content;type:text" json:"content"`
	// Target 通知目标（邮箱、手机号或 webhook 地址）
	Target string `gorm:"column:target;type:varchar(200);not null" json:"target"`
	// Status 通知状态
	Status Status `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	// ErrorMessage 发送失败时的错误信息
	ErrorMessage string `gorm:"column:error_message;type:text" json:"error_message"`
	// SentAt 发送成功时间
	SentAt *time.Time `gorm:"column:sent_at;type:datetime" json:"sent_at"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	// Save 保存或更新通知记录
	Save(ctx context.Context, notification *Notification) error
	// Get 根据通知 ID 获取通知记录
	Get(ctx context.Context, notificationID string) (*Notification, error)
	// ListByUserID 分页获取指定用户的通知列表
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*Notification, int64, error)
}

// Sender 通知发送接口
type Sender interface {
	Send(ctx context.Context, target string, subject string, content string) error
}

// ContactResolver 根据用户与渠道解析投递地址
type ContactResolver interface {
	Resolve(ctx context.Context, userID string, channel Channel) (string, error)
}
