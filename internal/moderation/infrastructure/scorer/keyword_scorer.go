package scorer

import (
	"context"
	"strings"
)

// KeywordScorer 无外部模型时的本地评分器，按风险词命中数粗略打分。
// 开发与集成环境使用。
type KeywordScorer struct {
	keywords []string
}

func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{
		keywords: []string{
			"urgent", "crypto", "bitcoin", "investment", "lottery",
			"prize", "winner", "bank account", "password", "verify your",
		},
	}
}

func (s *KeywordScorer) Score(_ context.Context, content string) (float64, error) {
	normalized := strings.ToLower(content)
	hits := 0
	for _, kw := range s.keywords {
		if strings.Contains(normalized, kw) {
			hits++
		}
	}
	score := float64(hits) * 0.25
	if score > 1 {
		score = 1
	}
	return score, nil
}
