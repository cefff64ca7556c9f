// Package mysql 审核标记仓储的 GORM 实现
package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/marketplace/internal/moderation/domain"
)

type FlagRepositoryImpl struct {
	db *gorm.DB
}

func NewFlagRepository(db *gorm.DB) domain.FlagRepository {
	return &FlagRepositoryImpl{db: db}
}

func (r *FlagRepositoryImpl) Save(ctx context.Context, flag *domain.ModerationFlag) error {
	return r.db.WithContext(ctx).Save(flag).Error
}

func (r *FlagRepositoryImpl) Get(ctx context.Context, flagID string) (*domain.ModerationFlag, error) {
	var flag domain.ModerationFlag
	err := r.db.WithContext(ctx).Where("flag_id = ?", flagID).First(&flag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &flag, nil
}

func (r *FlagRepositoryImpl) GetByTarget(ctx context.Context, targetType, targetID string) (*domain.ModerationFlag, error) {
	var flag domain.ModerationFlag
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("id DESC").First(&flag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &flag, nil
}

// ApplyAIScore 条件写：仅未评分、未拦截且未经人工复核的记录可被更新，
// 重复投递、blocked 改写与复核后改写都在 WHERE 里挡掉。
func (r *FlagRepositoryImpl) ApplyAIScore(ctx context.Context, flagID string, patch domain.AIPatch) (bool, error) {
	tags, err := json.Marshal(patch.Tags)
	if err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).Model(&domain.ModerationFlag{}).
		Where("flag_id = ? AND ai_scored = ? AND action <> ? AND reviewed_at IS NULL",
			flagID, false, domain.ActionBlocked).
		Updates(map[string]any{
			"ai_score":    patch.Score,
			"ai_scored":   true,
			"risk_level":  patch.Level,
			"action":      patch.Action,
			"reason_tags": string(tags),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *FlagRepositoryImpl) ListByAction(ctx context.Context, action domain.Action, limit, offset int) ([]*domain.ModerationFlag, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.ModerationFlag{}).Where("action = ?", action)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var flags []*domain.ModerationFlag
	err := query.Order("id ASC").Limit(limit).Offset(offset).Find(&flags).Error
	if err != nil {
		return nil, 0, err
	}
	return flags, total, nil
}

func (r *FlagRepositoryImpl) CountByAction(ctx context.Context, action domain.Action) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.ModerationFlag{}).
		Where("action = ?", action).Count(&total).Error
	return total, err
}

// UpdateReview 人工裁决条件写，已裁决的记录不再接受第二次裁决
func (r *FlagRepositoryImpl) UpdateReview(ctx context.Context, flagID, reviewedBy, decision string, action domain.Action, reviewedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.ModerationFlag{}).
		Where("flag_id = ? AND reviewed_by = ?", flagID, "").
		Updates(map[string]any{
			"reviewed_by":     reviewedBy,
			"review_decision": decision,
			"action":          action,
			"reviewed_at":     reviewedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
