// Package application 消息服务应用层：发送路径进程内组合内容审核
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/marketplace/internal/messaging/domain"
)

type SendMessageCommand struct {
	ListingID string
	SellerID  string
	SenderID  string
	BuyerID   string
	Body      string
}

type MessageDTO struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationDTO struct {
	ConversationID string `json:"conversation_id"`
	ListingID      string `json:"listing_id"`
	BuyerID        string `json:"buyer_id"`
	SellerID       string `json:"seller_id"`
	LastMessageAt  int64  `json:"last_message_at"`
}

// MessagingService 消息应用服务。
// 每条消息在投递前同步过审：拦截的消息落库但不投递，
// 发送方只得到一个不含规则细节的投递失败。
type MessagingService struct {
	repo      domain.MessageRepository
	moderator domain.Moderator
	publisher domain.EventPublisher
	notifier  domain.Notifier
}

func NewMessagingService(
	repo domain.MessageRepository,
	moderator domain.Moderator,
	publisher domain.EventPublisher,
	notifier domain.Notifier,
) *MessagingService {
	return &MessagingService{
		repo:      repo,
		moderator: moderator,
		publisher: publisher,
		notifier:  notifier,
	}
}

// SendMessage 发送一条消息。会话不存在时按 (listing, buyer) 惰性创建。
func (s *MessagingService) SendMessage(ctx context.Context, cmd SendMessageCommand) (*MessageDTO, error) {
	conv, err := s.ensureConversation(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if !conv.Participant(cmd.SenderID) {
		return nil, domain.ErrNotParticipant
	}

	msg := &domain.Message{
		MessageID:      fmt.Sprintf("MSG-%d", idgen.GenID()),
		ConversationID: conv.ConversationID,
		SenderID:       cmd.SenderID,
		Body:           cmd.Body,
		Status:         domain.StatusDelivered,
	}

	verdict, err := s.moderator.Check(ctx, msg.MessageID, cmd.SenderID, cmd.Body)
	if err != nil {
		// 审核服务不可用时不放行消息
		return nil, err
	}
	msg.FlagID = verdict.FlagID

	if verdict.Blocked {
		msg.Status = domain.StatusBlocked
		if err := s.repo.SaveMessage(ctx, msg); err != nil {
			return nil, err
		}
		return nil, domain.ErrMessageBlocked
	}

	if err := s.repo.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}

	conv.LastMessageAt = time.Now().Unix()
	if err := s.repo.SaveConversation(ctx, conv); err != nil {
		logging.Warn(ctx, "conversation touch failed", "conversation_id", conv.ConversationID, "error", err)
	}

	recipient := conv.Counterparty(cmd.SenderID)
	if err := s.publisher.Publish(ctx, domain.MessageSentEventType, msg.MessageID, domain.MessageSentEvent{
		MessageID:      msg.MessageID,
		ConversationID: conv.ConversationID,
		SenderID:       msg.SenderID,
		RecipientID:    recipient,
		OccurredOn:     time.Now().Unix(),
	}); err != nil {
		logging.Error(ctx, "publish message event failed", "message_id", msg.MessageID, "error", err)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, recipient, domain.MessageSentEventType, map[string]any{
			"conversation_id": conv.ConversationID,
			"message_id":      msg.MessageID,
		})
	}

	return toMessageDTO(msg), nil
}

// ListMessages 会话消息列表。拦截的消息只对其发送方可见。
func (s *MessagingService) ListMessages(ctx context.Context, conversationID, requesterID string, limit, offset int) ([]*MessageDTO, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, domain.ErrConversationNotFound
	}
	if !conv.Participant(requesterID) {
		return nil, domain.ErrNotParticipant
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	msgs, err := s.repo.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}

	dtos := make([]*MessageDTO, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Status == domain.StatusBlocked && msg.SenderID != requesterID {
			continue
		}
		dtos = append(dtos, toMessageDTO(msg))
	}
	return dtos, nil
}

// ListConversations 用户的会话列表
func (s *MessagingService) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationDTO, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	convs, total, err := s.repo.ListConversations(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]*ConversationDTO, 0, len(convs))
	for _, conv := range convs {
		dtos = append(dtos, &ConversationDTO{
			ConversationID: conv.ConversationID,
			ListingID:      conv.ListingID,
			BuyerID:        conv.BuyerID,
			SellerID:       conv.SellerID,
			LastMessageAt:  conv.LastMessageAt,
		})
	}
	return dtos, total, nil
}

// DeleteMessage 发送方撤回自己的消息。软删除，
// 在途的异步评分此后会因对象不存在而静默丢弃。
func (s *MessagingService) DeleteMessage(ctx context.Context, messageID, requesterID string) error {
	msg, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return domain.ErrMessageNotFound
	}
	if msg.SenderID != requesterID {
		return domain.ErrNotParticipant
	}

	if err := s.repo.DeleteMessage(ctx, messageID); err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, domain.MessageDeletedEventType, messageID, domain.MessageDeletedEvent{
		MessageID:  messageID,
		DeletedBy:  requesterID,
		OccurredOn: time.Now().Unix(),
	}); err != nil {
		logging.Error(ctx, "publish delete event failed", "message_id", messageID, "error", err)
	}
	return nil
}

func (s *MessagingService) ensureConversation(ctx context.Context, cmd SendMessageCommand) (*domain.Conversation, error) {
	buyerID := cmd.BuyerID
	if buyerID == "" {
		buyerID = cmd.SenderID
	}

	conv, err := s.repo.FindConversation(ctx, cmd.ListingID, buyerID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	conv = &domain.Conversation{
		ConversationID: fmt.Sprintf("CONV-%d", idgen.GenID()),
		ListingID:      cmd.ListingID,
		BuyerID:        buyerID,
		SellerID:       cmd.SellerID,
	}
	if err := s.repo.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func toMessageDTO(msg *domain.Message) *MessageDTO {
	return &MessageDTO{
		MessageID:      msg.MessageID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Body:           msg.Body,
		Status:         string(msg.Status),
		CreatedAt:      msg.CreatedAt,
	}
}
