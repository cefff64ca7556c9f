// Package domain 平台后台配置的领域模型
package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInvalidSettings 配置取值非法
var ErrInvalidSettings = errors.New("invalid platform settings")

// SettingsScope 单行配置的作用域键
const SettingsScope = "platform"

// SettingsUpdatedEventType 配置变更事件
const SettingsUpdatedEventType = "admin.settings.updated"

// PlatformSettings 平台级可调参数，单行存储。
// 佣金费率只影响变更之后创建的交易，存量交易保持创建时刻的定价。
type PlatformSettings struct {
	gorm.Model
	// Scope 固定为 platform，保证单行
	Scope string `gorm:"column:scope;type:varchar(20);uniqueIndex;not null" json:"scope"`
	// CommissionRate 平台佣金费率，[0,1) 的小数
	CommissionRate decimal.Decimal `gorm:"column:commission_rate;type:decimal(8,6);not null" json:"commission_rate"`
	// BlockThreshold 规则分达到该值的内容直接拦截
	BlockThreshold int `gorm:"column:block_threshold;not null" json:"block_threshold"`
	// ReviewThreshold 规则分达到该值的内容进入人工复核
	ReviewThreshold int `gorm:"column:review_threshold;not null" json:"review_threshold"`
	// AIUpgradeEnabled 是否启用异步 AI 升级
	AIUpgradeEnabled bool `gorm:"column:ai_upgrade_enabled;not null;default:true" json:"ai_upgrade_enabled"`
	// AIHighScore AI 风险分升级到 high 的下限
	AIHighScore float64 `gorm:"column:ai_high_score;type:decimal(4,3);not null" json:"ai_high_score"`
	// AIMediumScore AI 风险分升级到 medium 的下限
	AIMediumScore float64 `gorm:"column:ai_medium_score;type:decimal(4,3);not null" json:"ai_medium_score"`
	// AILowScore AI 风险分升级到 low 的下限
	AILowScore float64 `gorm:"column:ai_low_score;type:decimal(4,3);not null" json:"ai_low_score"`
	// AutoReleaseDays 买家确认收货后自动放款的天数
	AutoReleaseDays int `gorm:"column:auto_release_days;not null" json:"auto_release_days"`
	// UpdatedBy 最近一次修改人
	UpdatedBy string `gorm:"column:updated_by;type:varchar(32)" json:"updated_by"`
}

// TableName 指定表名
func (PlatformSettings) TableName() string {
	return "platform_settings"
}

// DefaultSettings 平台默认参数
func DefaultSettings() *PlatformSettings {
	return &PlatformSettings{
		Scope:            SettingsScope,
		CommissionRate:   decimal.NewFromFloat(0.10),
		BlockThreshold:   60,
		ReviewThreshold:  25,
		AIUpgradeEnabled: true,
		AIHighScore:      0.9,
		AIMediumScore:    0.7,
		AILowScore:       0.4,
		AutoReleaseDays:  7,
	}
}

// Validate 校验配置取值
func (s *PlatformSettings) Validate() error {
	if s.CommissionRate.IsNegative() || s.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: commission rate must be in [0,1)", ErrInvalidSettings)
	}
	if s.BlockThreshold <= 0 || s.ReviewThreshold <= 0 {
		return fmt.Errorf("%w: thresholds must be positive", ErrInvalidSettings)
	}
	if s.ReviewThreshold >= s.BlockThreshold {
		return fmt.Errorf("%w: review threshold must be below block threshold", ErrInvalidSettings)
	}
	if s.AILowScore <= 0 || s.AILowScore >= s.AIMediumScore ||
		s.AIMediumScore >= s.AIHighScore || s.AIHighScore > 1 {
		return fmt.Errorf("%w: ai score thresholds must satisfy 0 < low < medium < high <= 1", ErrInvalidSettings)
	}
	if s.AutoReleaseDays < 1 {
		return fmt.Errorf("%w: auto release days must be at least 1", ErrInvalidSettings)
	}
	return nil
}

// SettingsRepository 平台配置仓储接口
type SettingsRepository interface {
	// Get 读取配置行，不存在时返回 nil
	Get(ctx context.Context) (*PlatformSettings, error)
	// Save 保存或更新配置行
	Save(ctx context.Context, settings *PlatformSettings) error
}

// SettingsUpdatedEvent 配置变更事件负载
type SettingsUpdatedEvent struct {
	CommissionRate   string  `json:"commission_rate"`
	BlockThreshold   int     `json:"block_threshold"`
	ReviewThreshold  int     `json:"review_threshold"`
	AIUpgradeEnabled bool    `json:"ai_upgrade_enabled"`
	AIHighScore      float64 `json:"ai_high_score"`
	AIMediumScore    float64 `json:"ai_medium_score"`
	AILowScore       float64 `json:"ai_low_score"`
	AutoReleaseDays  int     `json:"auto_release_days"`
	UpdatedBy        string  `json:"updated_by"`
}

// EventPublisher 事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
