// Package mysql 会话与消息仓储的 GORM 实现
package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/marketplace/internal/messaging/domain"
)

type MessageRepositoryImpl struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) domain.MessageRepository {
	return &MessageRepositoryImpl{db: db}
}

func (r *MessageRepositoryImpl) SaveConversation(ctx context.Context, conv *domain.Conversation) error {
	return r.db.WithContext(ctx).Save(conv).Error
}

func (r *MessageRepositoryImpl) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

func (r *MessageRepositoryImpl) FindConversation(ctx context.Context, listingID, buyerID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND buyer_id = ?", listingID, buyerID).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

func (r *MessageRepositoryImpl) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*domain.Conversation, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("buyer_id = ? OR seller_id = ?", userID, userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var convs []*domain.Conversation
	err := query.Order("last_message_at DESC").Limit(limit).Offset(offset).Find(&convs).Error
	if err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

func (r *MessageRepositoryImpl) SaveMessage(ctx context.Context, msg *domain.Message) error {
	return r.db.WithContext(ctx).Save(msg).Error
}

func (r *MessageRepositoryImpl) GetMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepositoryImpl) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*domain.Message, error) {
	var msgs []*domain.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").Limit(limit).Offset(offset).Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteMessage 软删除，gorm.Model 的 DeletedAt 生效
func (r *MessageRepositoryImpl) DeleteMessage(ctx context.Context, messageID string) error {
	return r.db.WithContext(ctx).
		Where("message_id = ?", messageID).Delete(&domain.Message{}).Error
}

func (r *MessageRepositoryImpl) MessageExists(ctx context.Context, messageID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("message_id = ?", messageID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
