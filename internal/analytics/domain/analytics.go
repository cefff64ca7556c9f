// Package domain 平台经营分析的读模型
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EscrowSummary 一段时间内的交易经营汇总
type EscrowSummary struct {
	// GMV 已放款交易的总额
	GMV decimal.Decimal `json:"gmv"`
	// Commission 平台佣金收入
	Commission decimal.Decimal `json:"commission"`
	// ReleasedCount 已放款交易数
	ReleasedCount int64 `json:"released_count"`
	// RefundedAmount 退款总额
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	// RefundedCount 退款交易数
	RefundedCount int64 `json:"refunded_count"`
	// DisputedOpen 仍处于争议中的交易数
	DisputedOpen int64 `json:"disputed_open"`
	// InFlight 已付款但尚未结清的交易数
	InFlight int64 `json:"in_flight"`
}

// DailyPoint 按天聚合的 GMV 序列点
type DailyPoint struct {
	Day        string          `json:"day"`
	GMV        decimal.Decimal `json:"gmv"`
	Commission decimal.Decimal `json:"commission"`
	Count      int64           `json:"count"`
}

// ModerationSummary 审核管线的运行汇总
type ModerationSummary struct {
	Allowed     int64 `json:"allowed"`
	Blocked     int64 `json:"blocked"`
	Queued      int64 `json:"queued_for_review"`
	AIUpgraded int64 `json:"ai_upgraded"`
	HighRisk   int64 `json:"high_risk"`
}

// SellerSummary 单个卖家的经营汇总
type SellerSummary struct {
	SellerID      string          `json:"seller_id"`
	GMV           decimal.Decimal `json:"gmv"`
	ReleasedCount int64           `json:"released_count"`
	RefundedCount int64           `json:"refunded_count"`
}

// AnalyticsRepository 聚合查询接口，直接对交易与审核的读库做 SQL 聚合
type AnalyticsRepository interface {
	EscrowSummary(ctx context.Context, from, to time.Time) (*EscrowSummary, error)
	DailyGMV(ctx context.Context, from, to time.Time) ([]*DailyPoint, error)
	ModerationSummary(ctx context.Context, from, to time.Time) (*ModerationSummary, error)
	TopSellers(ctx context.Context, from, to time.Time, limit int) ([]*SellerSummary, error)
}
