package domain

import (
	"regexp"
	"strings"
)

// Thresholds 规则分数阈值，后台可调。
// score >= Block 直接拦截，score >= Review 进人工队列，否则放行。
type Thresholds struct {
	Block  int `json:"block"`
	Review int `json:"review"`
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{Block: 60, Review: 25}
}

// Rule 一条审核规则。同一规则命中多个模式只计一次分，
// 分数随命中规则数单调不减。
type Rule struct {
	Tag      string
	Level    RiskLevel
	Weight   int
	patterns []*regexp.Regexp
	phrases  []string
}

func (r *Rule) matches(content string) bool {
	for _, p := range r.patterns {
		if p.MatchString(content) {
			return true
		}
	}
	for _, phrase := range r.phrases {
		if strings.Contains(content, phrase) {
			return true
		}
	}
	return false
}

// Evaluation 规则评估结果
type Evaluation struct {
	Score  int
	Tags   ReasonTags
	Level  RiskLevel
	Action Action
}

// RuleEngine 同步规则引擎。规则表内置，阈值注入。
type RuleEngine struct {
	rules      []*Rule
	thresholds Thresholds
}

var (
	phonePattern = regexp.MustCompile(`\+?\d[\d\-\s().]{6,}\d`)
	linkPattern  = regexp.MustCompile(`https?://[^\s]+`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

// NewRuleEngine 构建规则引擎。电话号码与诈骗话术单条即达拦截线，
// 站外引流需要叠加软信号才会进人工队列之上。
func NewRuleEngine(thresholds Thresholds) *RuleEngine {
	if thresholds.Block <= 0 || thresholds.Review <= 0 || thresholds.Review > thresholds.Block {
		thresholds = DefaultThresholds()
	}
	return &RuleEngine{
		thresholds: thresholds,
		rules: []*Rule{
			{
				Tag:      "phone_number",
				Level:    RiskHigh,
				Weight:   60,
				patterns: []*regexp.Regexp{phonePattern},
				phrases:  []string{"call me at", "text me on"},
			},
			{
				Tag:    "scam_phrase",
				Level:  RiskHigh,
				Weight: 60,
				phrases: []string{
					"western union", "wire transfer", "gift card",
					"advance fee", "guaranteed profit", "send deposit first",
					"processing fee upfront",
				},
			},
			{
				Tag:    "off_platform_payment",
				Level:  RiskMedium,
				Weight: 30,
				phrases: []string{
					"outside the app", "off the platform", "pay outside",
					"mobile wallet", "venmo", "cash app", "paypal me",
					"direct bank transfer", "whatsapp", "telegram",
				},
			},
			{
				Tag:      "external_link",
				Level:    RiskLow,
				Weight:   10,
				patterns: []*regexp.Regexp{linkPattern},
			},
			{
				Tag:      "email_address",
				Level:    RiskLow,
				Weight:   10,
				patterns: []*regexp.Regexp{emailPattern},
			},
		},
	}
}

// Thresholds 当前生效的阈值
func (e *RuleEngine) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate 同步评估一段内容。大小写不敏感；
// 风险等级取命中规则的最高级，处置由累计分数对照阈值决定。
func (e *RuleEngine) Evaluate(content string) Evaluation {
	normalized := strings.ToLower(content)

	result := Evaluation{Level: RiskNone, Action: ActionAllowed}
	for _, rule := range e.rules {
		if !rule.matches(normalized) {
			continue
		}
		result.Score += rule.Weight
		result.Tags = result.Tags.Append(rule.Tag)
		result.Level = MaxRisk(result.Level, rule.Level)
	}

	switch {
	case result.Score >= e.thresholds.Block:
		result.Action = ActionBlocked
	case result.Score >= e.thresholds.Review:
		result.Action = ActionQueued
	}
	return result
}
