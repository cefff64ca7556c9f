package application

import (
	"time"

	"github.com/wyfcoding/marketplace/internal/notification/domain"
)

// SendNotificationCommand 直接发送一条通知
type SendNotificationCommand struct {
	UserID  string `json:"user_id" binding:"required"`
	Channel string `json:"channel" binding:"required"`
	Target  string `json:"target" binding:"required"`
	Subject string `json:"subject"`
	Content string `json:"content" binding:"required"`
}

// NotificationDTO 通知视图
type NotificationDTO struct {
	NotificationID string     `json:"notification_id"`
	UserID         string     `json:"user_id"`
	Channel        string     `json:"channel"`
	EventType      string     `json:"event_type,omitempty"`
	Subject        string     `json:"subject"`
	Content        string     `json:"content"`
	Target         string     `json:"target"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toDTO(n *domain.Notification) *NotificationDTO {
	return &NotificationDTO{
		NotificationID: n.NotificationID,
		UserID:         n.UserID,
		Channel:        string(n.Channel),
		EventType:      n.EventType,
		Subject:        n.Subject,
		Content:        n.Content,
		Target:         n.Target,
		Status:         string(n.Status),
		ErrorMessage:   n.ErrorMessage,
		SentAt:         n.SentAt,
		CreatedAt:      n.CreatedAt,
	}
}
