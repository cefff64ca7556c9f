package domain

import (
	"context"
	"time"
)

// AIPatch AI 评分条件更新的字段补丁
type AIPatch struct {
	Score  float64
	Level  RiskLevel
	Action Action
	Tags   ReasonTags
}

// FlagRepository 审核标记仓储。
// ApplyAIScore 是条件写：仅当记录尚未被 AI 评分、未被拦截且未经人工复核时生效，
// 同一评分结果重复投递只会落库一次。
type FlagRepository interface {
	Save(ctx context.Context, flag *ModerationFlag) error
	Get(ctx context.Context, flagID string) (*ModerationFlag, error)
	GetByTarget(ctx context.Context, targetType, targetID string) (*ModerationFlag, error)
	ApplyAIScore(ctx context.Context, flagID string, patch AIPatch) (bool, error)
	ListByAction(ctx context.Context, action Action, limit, offset int) ([]*ModerationFlag, int64, error)
	CountByAction(ctx context.Context, action Action) (int64, error)
	UpdateReview(ctx context.Context, flagID, reviewedBy, decision string, action Action, reviewedAt time.Time) (bool, error)
}

// TargetLookup 判断审核对象是否仍然存在。
// 对象已删除时异步评分静默丢弃，不产生告警也不进死信。
type TargetLookup interface {
	Exists(ctx context.Context, targetType, targetID string) (bool, error)
}
