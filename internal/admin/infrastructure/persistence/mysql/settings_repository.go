package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/marketplace/internal/admin/domain"
)

// SettingsRepositoryImpl 平台配置仓储的 MySQL 实现
type SettingsRepositoryImpl struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) domain.SettingsRepository {
	return &SettingsRepositoryImpl{db: db}
}

func (r *SettingsRepositoryImpl) Get(ctx context.Context) (*domain.PlatformSettings, error) {
	var settings domain.PlatformSettings
	err := r.db.WithContext(ctx).
		Where("scope = ?", domain.SettingsScope).
		First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get platform settings: %w", err)
	}
	return &settings, nil
}

func (r *SettingsRepositoryImpl) Save(ctx context.Context, settings *domain.PlatformSettings) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "scope"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"commission_rate", "block_threshold", "review_threshold",
				"ai_upgrade_enabled", "ai_high_score", "ai_medium_score", "ai_low_score",
				"auto_release_days", "updated_by", "updated_at",
			}),
		}).
		Create(settings).Error
	if err != nil {
		return fmt.Errorf("save platform settings: %w", err)
	}
	return nil
}
