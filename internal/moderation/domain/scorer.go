package domain

import "context"

// AIScorer 异步内容评分契约，返回 [0,1] 风险分。
// 评分失败由调用方降级处理，绝不影响同步审核结论。
type AIScorer interface {
	Score(ctx context.Context, content string) (float64, error)
}

// AIPolicy 异步评分策略：升级开关与分数到风险等级的映射下限，后台可调
type AIPolicy struct {
	UpgradeEnabled bool
	HighScore      float64
	MediumScore    float64
	LowScore       float64
}

// DefaultAIPolicy 默认评分策略
func DefaultAIPolicy() AIPolicy {
	return AIPolicy{
		UpgradeEnabled: true,
		HighScore:      0.9,
		MediumScore:    0.7,
		LowScore:       0.4,
	}
}

// Level 把 AI 风险分映射到风险等级
func (p AIPolicy) Level(score float64) RiskLevel {
	switch {
	case score >= p.HighScore:
		return RiskHigh
	case score >= p.MediumScore:
		return RiskMedium
	case score >= p.LowScore:
		return RiskLow
	}
	return RiskNone
}
