package application

import (
	"time"

	"github.com/wyfcoding/marketplace/internal/moderation/domain"
)

type EvaluateCommand struct {
	TargetType string
	TargetID   string
	SenderID   string
	Content    string
}

type ReviewCommand struct {
	FlagID     string
	ReviewedBy string
	Decision   string
}

// 人工复核决定
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// DecisionDTO 同步审核结论
type DecisionDTO struct {
	FlagID    string   `json:"flag_id"`
	Action    string   `json:"action"`
	RiskLevel string   `json:"risk_level"`
	RuleScore int      `json:"rule_score"`
	Tags      []string `json:"tags"`
}

// FlagDTO 审核标记详情
type FlagDTO struct {
	FlagID         string     `json:"flag_id"`
	TargetType     string     `json:"target_type"`
	TargetID       string     `json:"target_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	RuleScore      int        `json:"rule_score"`
	RiskLevel      string     `json:"risk_level"`
	Action         string     `json:"action"`
	Tags           []string   `json:"tags"`
	AIScore        *float64   `json:"ai_score,omitempty"`
	AIScored       bool       `json:"ai_scored"`
	ReviewedBy     string     `json:"reviewed_by,omitempty"`
	ReviewDecision string     `json:"review_decision,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toDecisionDTO(flag *domain.ModerationFlag) *DecisionDTO {
	return &DecisionDTO{
		FlagID:    flag.FlagID,
		Action:    string(flag.Action),
		RiskLevel: string(flag.RiskLevel),
		RuleScore: flag.RuleScore,
		Tags:      flag.ReasonTags,
	}
}

func toFlagDTO(flag *domain.ModerationFlag) *FlagDTO {
	return &FlagDTO{
		FlagID:         flag.FlagID,
		TargetType:     flag.TargetType,
		TargetID:       flag.TargetID,
		SenderID:       flag.SenderID,
		Content:        flag.Content,
		RuleScore:      flag.RuleScore,
		RiskLevel:      string(flag.RiskLevel),
		Action:         string(flag.Action),
		Tags:           flag.ReasonTags,
		AIScore:        flag.AIScore,
		AIScored:       flag.AIScored,
		ReviewedBy:     flag.ReviewedBy,
		ReviewDecision: flag.ReviewDecision,
		ReviewedAt:     flag.ReviewedAt,
		CreatedAt:      flag.CreatedAt,
	}
}
