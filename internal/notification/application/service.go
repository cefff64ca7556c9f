package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"

	escrowdomain "github.com/wyfcoding/marketplace/internal/escrow/domain"
	messagingdomain "github.com/wyfcoding/marketplace/internal/messaging/domain"
	"github.com/wyfcoding/marketplace/internal/notification/domain"
	"github.com/wyfcoding/marketplace/pkg/metrics"
)

// eventSubjects 业务事件到通知主题的映射，未登记的事件按事件名兜底
var eventSubjects = map[string]string{
	escrowdomain.EscrowCreatedEventType:      "订单已创建",
	escrowdomain.EscrowFundedEventType:       "买家已付款",
	escrowdomain.EscrowShippedEventType:      "卖家已发货",
	escrowdomain.EscrowDeliveredEventType:    "买家已确认收货",
	escrowdomain.EscrowReleasedEventType:     "货款已结算",
	escrowdomain.EscrowDisputedEventType:     "交易进入争议处理",
	escrowdomain.EscrowRefundedEventType:     "退款已完成",
	messagingdomain.MessageSentEventType:     "您有一条新消息",
}

// NotificationService 通知应用服务。
// 同步接口记录投递结果；Notify 作为上游服务的尽力而为入口，任何失败只记日志。
type NotificationService struct {
	repo     domain.NotificationRepository
	senders  map[domain.Channel]domain.Sender
	contacts domain.ContactResolver
	metrics  *metrics.Metrics
}

func NewNotificationService(
	repo domain.NotificationRepository,
	senders map[domain.Channel]domain.Sender,
	contacts domain.ContactResolver,
	m *metrics.Metrics,
) *NotificationService {
	return &NotificationService{
		repo:     repo,
		senders:  senders,
		contacts: contacts,
		metrics:  m,
	}
}

// SendNotification 发送通知并落库投递结果
func (s *NotificationService) SendNotification(ctx context.Context, cmd SendNotificationCommand) (*NotificationDTO, error) {
	channel := domain.Channel(strings.ToUpper(cmd.Channel))
	if _, ok := s.senders[channel]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownChannel, cmd.Channel)
	}

	notification := &domain.Notification{
		NotificationID: fmt.Sprintf("NTF-%d", idgen.GenID()),
		UserID:         cmd.UserID,
		Channel:        channel,
		Subject:        cmd.Subject,
		Content:        cmd.Content,
		Target:         cmd.Target,
		Status:         domain.StatusPending,
	}
	if err := s.repo.Save(ctx, notification); err != nil {
		return nil, fmt.Errorf("save notification: %w", err)
	}

	s.deliver(ctx, notification)
	return toDTO(notification), nil
}

// Notify 业务事件触发的通知入口。投递是尽力而为的：
// 联系方式缺失或发送失败都不向调用方传播，只留下记录与指标。
func (s *NotificationService) Notify(ctx context.Context, userID, eventType string, payload map[string]any) {
	channel := domain.ChannelEmail
	target := ""
	if s.contacts != nil {
		resolved, err := s.contacts.Resolve(ctx, userID, channel)
		if err != nil {
			logging.Warn(ctx, "resolve notification target failed",
				"user_id", userID, "event_type", eventType, "error", err)
			s.count(channel, domain.StatusFailed)
			return
		}
		target = resolved
	}

	subject, ok := eventSubjects[eventType]
	if !ok {
		subject = eventType
	}

	notification := &domain.Notification{
		NotificationID: fmt.Sprintf("NTF-%d", idgen.GenID()),
		UserID:         userID,
		Channel:        channel,
		EventType:      eventType,
		Subject:        subject,
		Content:        renderPayload(payload),
		Target:         target,
		Status:         domain.StatusPending,
	}
	if err := s.repo.Save(ctx, notification); err != nil {
		logging.Error(ctx, "save notification failed",
			"user_id", userID, "event_type", eventType, "error", err)
		return
	}

	s.deliver(ctx, notification)
}

// GetNotification 查询单条通知
func (s *NotificationService) GetNotification(ctx context.Context, notificationID string) (*NotificationDTO, error) {
	notification, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if notification == nil {
		return nil, domain.ErrNotificationNotFound
	}
	return toDTO(notification), nil
}

// ListNotifications 分页查询用户的通知
func (s *NotificationService) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]*NotificationDTO, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	notifications, total, err := s.repo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]*NotificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, toDTO(n))
	}
	return dtos, total, nil
}

// deliver 执行单次投递并更新记录，失败不重试
func (s *NotificationService) deliver(ctx context.Context, notification *domain.Notification) {
	sender, ok := s.senders[notification.Channel]
	if !ok {
		notification.Status = domain.StatusFailed
		notification.ErrorMessage = domain.ErrUnknownChannel.Error()
	} else if err := sender.Send(ctx, notification.Target, notification.Subject, notification.Content); err != nil {
		notification.Status = domain.StatusFailed
		notification.ErrorMessage = err.Error()
		logging.Warn(ctx, "notification delivery failed",
			"notification_id", notification.NotificationID,
			"channel", string(notification.Channel),
			"error", err)
	} else {
		now := time.Now()
		notification.Status = domain.StatusSent
		notification.SentAt = &now
	}

	s.count(notification.Channel, notification.Status)
	if err := s.repo.Save(ctx, notification); err != nil {
		logging.Error(ctx, "update notification status failed",
			"notification_id", notification.NotificationID, "error", err)
	}
}

func (s *NotificationService) count(channel domain.Channel, status domain.Status) {
	if s.metrics != nil {
		s.metrics.NotificationsTotal.WithLabelValues(string(channel), string(status)).Inc()
	}
}

// renderPayload 把事件负载渲染为按键名排序的正文
func renderPayload(payload map[string]any) string {
	if len(payload) == 0 {
		return ""
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, payload[k])
	}
	return strings.TrimRight(b.String(), "\n")
}
