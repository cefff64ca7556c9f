// Package application 平台后台配置的应用服务
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/marketplace/internal/admin/domain"
	moderationdomain "github.com/wyfcoding/marketplace/internal/moderation/domain"
	"github.com/wyfcoding/marketplace/pkg/cache"
)

const (
	settingsCacheKey = "admin:settings:platform"
	settingsCacheTTL = time.Minute
)

// UpdateSettingsCommand 修改平台配置
type UpdateSettingsCommand struct {
	CommissionRate   string  `json:"commission_rate" binding:"required"`
	BlockThreshold   int     `json:"block_threshold" binding:"required"`
	ReviewThreshold  int     `json:"review_threshold" binding:"required"`
	AIUpgradeEnabled bool    `json:"ai_upgrade_enabled"`
	AIHighScore      float64 `json:"ai_high_score" binding:"required"`
	AIMediumScore    float64 `json:"ai_medium_score" binding:"required"`
	AILowScore       float64 `json:"ai_low_score" binding:"required"`
	AutoReleaseDays  int     `json:"auto_release_days" binding:"required"`
	UpdatedBy        string  `json:"updated_by" binding:"required"`
}

// SettingsDTO 平台配置视图
type SettingsDTO struct {
	CommissionRate   string    `json:"commission_rate"`
	BlockThreshold   int       `json:"block_threshold"`
	ReviewThreshold  int       `json:"review_threshold"`
	AIUpgradeEnabled bool      `json:"ai_upgrade_enabled"`
	AIHighScore      float64   `json:"ai_high_score"`
	AIMediumScore    float64   `json:"ai_medium_score"`
	AILowScore       float64   `json:"ai_low_score"`
	AutoReleaseDays  int       `json:"auto_release_days"`
	UpdatedBy        string    `json:"updated_by,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AdminService 平台配置应用服务。
// 读路径带短缓存；其余服务通过 CommissionRate / Thresholds / AutoReleaseAfter
// 读取当前生效的参数，读取失败时退回默认值，保证配置面故障不阻塞交易面。
type AdminService struct {
	repo      domain.SettingsRepository
	store     cache.Store
	publisher domain.EventPublisher
}

func NewAdminService(repo domain.SettingsRepository, store cache.Store, publisher domain.EventPublisher) *AdminService {
	return &AdminService{repo: repo, store: store, publisher: publisher}
}

// GetSettings 读取平台配置，尚未写入时返回默认值
func (s *AdminService) GetSettings(ctx context.Context) (*SettingsDTO, error) {
	settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return toSettingsDTO(settings), nil
}

// UpdateSettings 修改平台配置并广播变更
func (s *AdminService) UpdateSettings(ctx context.Context, cmd UpdateSettingsCommand) (*SettingsDTO, error) {
	rate, err := decimal.NewFromString(cmd.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSettings, err)
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = domain.DefaultSettings()
	}
	settings.CommissionRate = rate
	settings.BlockThreshold = cmd.BlockThreshold
	settings.ReviewThreshold = cmd.ReviewThreshold
	settings.AIUpgradeEnabled = cmd.AIUpgradeEnabled
	settings.AIHighScore = cmd.AIHighScore
	settings.AIMediumScore = cmd.AIMediumScore
	settings.AILowScore = cmd.AILowScore
	settings.AutoReleaseDays = cmd.AutoReleaseDays
	settings.UpdatedBy = cmd.UpdatedBy
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, settingsCacheKey); err != nil {
			logging.Warn(ctx, "invalidate settings cache failed", "error", err)
		}
	}
	if s.publisher != nil {
		event := domain.SettingsUpdatedEvent{
			CommissionRate:   settings.CommissionRate.String(),
			BlockThreshold:   settings.BlockThreshold,
			ReviewThreshold:  settings.ReviewThreshold,
			AIUpgradeEnabled: settings.AIUpgradeEnabled,
			AIHighScore:      settings.AIHighScore,
			AIMediumScore:    settings.AIMediumScore,
			AILowScore:       settings.AILowScore,
			AutoReleaseDays:  settings.AutoReleaseDays,
			UpdatedBy:        settings.UpdatedBy,
		}
		if err := s.publisher.Publish(ctx, domain.SettingsUpdatedEventType, domain.SettingsScope, event); err != nil {
			logging.Error(ctx, "publish settings event failed", "error", err)
		}
	}
	return toSettingsDTO(settings), nil
}

// CommissionRate 当前生效的佣金费率，读取失败时回退默认值
func (s *AdminService) CommissionRate(ctx context.Context) decimal.Decimal {
	settings, err := s.load(ctx)
	if err != nil {
		logging.Warn(ctx, "load settings failed, using default commission rate", "error", err)
		return domain.DefaultSettings().CommissionRate
	}
	return settings.CommissionRate
}

// Thresholds 当前生效的审核阈值
func (s *AdminService) Thresholds(ctx context.Context) moderationdomain.Thresholds {
	settings, err := s.load(ctx)
	if err != nil {
		logging.Warn(ctx, "load settings failed, using default thresholds", "error", err)
		return moderationdomain.DefaultThresholds()
	}
	return moderationdomain.Thresholds{
		Block:  settings.BlockThreshold,
		Review: settings.ReviewThreshold,
	}
}

// AIPolicy 当前生效的 AI 评分策略
func (s *AdminService) AIPolicy(ctx context.Context) moderationdomain.AIPolicy {
	settings, err := s.load(ctx)
	if err != nil {
		logging.Warn(ctx, "load settings failed, using default ai policy", "error", err)
		return moderationdomain.DefaultAIPolicy()
	}
	return moderationdomain.AIPolicy{
		UpgradeEnabled: settings.AIUpgradeEnabled,
		HighScore:      settings.AIHighScore,
		MediumScore:    settings.AIMediumScore,
		LowScore:       settings.AILowScore,
	}
}

// AutoReleaseAfter 确认收货后自动放款的等待时长
func (s *AdminService) AutoReleaseAfter(ctx context.Context) time.Duration {
	settings, err := s.load(ctx)
	if err != nil {
		logging.Warn(ctx, "load settings failed, using default auto release window", "error", err)
		settings = domain.DefaultSettings()
	}
	return time.Duration(settings.AutoReleaseDays) * 24 * time.Hour
}

func (s *AdminService) load(ctx context.Context) (*domain.PlatformSettings, error) {
	if s.store != nil {
		var cached domain.PlatformSettings
		err := cache.GetJSON(ctx, s.store, settingsCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			logging.Warn(ctx, "settings cache read failed", "error", err)
		}
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = domain.DefaultSettings()
	}
	if s.store != nil {
		if err := cache.SetJSON(ctx, s.store, settingsCacheKey, settings, settingsCacheTTL); err != nil {
			logging.Warn(ctx, "settings cache write failed", "error", err)
		}
	}
	return settings, nil
}

func toSettingsDTO(settings *domain.PlatformSettings) *SettingsDTO {
	return &SettingsDTO{
		CommissionRate:   settings.CommissionRate.String(),
		BlockThreshold:   settings.BlockThreshold,
		ReviewThreshold:  settings.ReviewThreshold,
		AIUpgradeEnabled: settings.AIUpgradeEnabled,
		AIHighScore:      settings.AIHighScore,
		AIMediumScore:    settings.AIMediumScore,
		AILowScore:       settings.AILowScore,
		AutoReleaseDays:  settings.AutoReleaseDays,
		UpdatedBy:        settings.UpdatedBy,
		UpdatedAt:        settings.UpdatedAt,
	}
}
