// Package domain 内容审核的领域模型：规则引擎、风险标记与异步 AI 评分契约
package domain

import (
	"time"

	"gorm.io/gorm"
)

// RiskLevel 风险等级，全序可比较
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Rank 风险等级序数，AI 评分只允许向更高等级升级
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	}
	return 0
}

// MaxRisk 取较高的风险等级
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Action 审核处置结果
type Action string

const (
	ActionAllowed Action = "allowed"
	ActionBlocked Action = "blocked"
	ActionQueued  Action = "queued_for_review"
)

// 审核对象类型
const (
	TargetMessage = "message"
	TargetListing = "listing"
)

// AITag AI 升级风险后追加的标签
const AITag = "ai_flagged"

// ModerationFlag 一次审核的结果记录。blocked 与人工复核结论一经写入
// 不可被任何后续评分改写，AI 评分对同一条记录只生效一次。
type ModerationFlag struct {
	gorm.Model
	FlagID     string     `gorm:"column:flag_id;type:varchar(32);uniqueIndex;not null" json:"flag_id"`
	TargetType string     `gorm:"column:target_type;type:varchar(16);index:idx_target;not null" json:"target_type"`
	TargetID   string     `gorm:"column:target_id;type:varchar(32);index:idx_target;not null" json:"target_id"`
	SenderID   string     `gorm:"column:sender_id;type:varchar(32);index;not null" json:"sender_id"`
	Content    string     `gorm:"column:content;type:varchar(2048)" json:"content"`
	RuleScore  int        `gorm:"column:rule_score;not null" json:"rule_score"`
	RiskLevel  RiskLevel  `gorm:"column:risk_level;type:varchar(8);not null" json:"risk_level"`
	Action     Action     `gorm:"column:action;type:varchar(20);index;not null" json:"action"`
	ReasonTags ReasonTags `gorm:"column:reason_tags;type:json;serializer:json" json:"reason_tags"`
	AIScore    *float64   `gorm:"column:ai_score" json:"ai_score,omitempty"`
	AIScored   bool       `gorm:"column:ai_scored;not null;default:0" json:"ai_scored"`

	ReviewedBy     string     `gorm:"column:reviewed_by;type:varchar(32)" json:"reviewed_by,omitempty"`
	ReviewDecision string     `gorm:"column:review_decision;type:varchar(20)" json:"review_decision,omitempty"`
	ReviewedAt     *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
}

// TableName 表名
func (ModerationFlag) TableName() string {
	return "moderation_flags"
}

// ReasonTags 命中规则标签集合，去重保序
type ReasonTags []string

// Has 是否包含指定标签
func (t ReasonTags) Has(tag string) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// Append 追加标签，重复标签忽略
func (t ReasonTags) Append(tag string) ReasonTags {
	if t.Has(tag) {
		return t
	}
	return append(t, tag)
}

// UpgradeByAI 把 AI 评分合入标记，返回是否发生了实质升级。
// 四条纪律：只升不降、blocked 永不改写、复核结论永不改写、同一条记录只生效一次。
func (f *ModerationFlag) UpgradeByAI(score float64, aiLevel RiskLevel) bool {
	if f.AIScored || f.Action == ActionBlocked || f.ReviewedAt != nil {
		return false
	}
	f.AIScore = &score
	f.AIScored = true

	if aiLevel.Rank() <= f.RiskLevel.Rank() {
		return false
	}
	f.RiskLevel = aiLevel
	f.ReasonTags = f.ReasonTags.Append(AITag)
	if f.Action == ActionAllowed && aiLevel.Rank() >= RiskMedium.Rank() {
		f.Action = ActionQueued
	}
	return true
}
