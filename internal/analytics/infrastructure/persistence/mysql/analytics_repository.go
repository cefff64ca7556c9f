package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wyfcoding/marketplace/internal/analytics/domain"
	escrowdomain "github.com/wyfcoding/marketplace/internal/escrow/domain"
	moderationdomain "github.com/wyfcoding/marketplace/internal/moderation/domain"
)

// AnalyticsRepositoryImpl 经营分析聚合查询的 MySQL 实现。
// 直接在交易与审核表上做聚合，读路径由上层缓存兜住。
type AnalyticsRepositoryImpl struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) domain.AnalyticsRepository {
	return &AnalyticsRepositoryImpl{db: db}
}

type escrowTotalsRow struct {
	GMV            decimal.Decimal
	Commission     decimal.Decimal
	ReleasedCount  int64
	RefundedAmount decimal.Decimal
	RefundedCount  int64
}

func (r *AnalyticsRepositoryImpl) EscrowSummary(ctx context.Context, from, to time.Time) (*domain.EscrowSummary, error) {
	var totals escrowTotalsRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN amount END), 0)            AS gmv,
			COALESCE(SUM(CASE WHEN status = ? THEN commission_amount END), 0) AS commission,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)          AS released_count,
			COALESCE(SUM(CASE WHEN status = ? THEN amount END), 0)            AS refunded_amount,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)          AS refunded_count
		FROM escrow_transactions
		WHERE created_at >= ? AND created_at < ?`,
		escrowdomain.StatusReleased, escrowdomain.StatusReleased, escrowdomain.StatusReleased,
		escrowdomain.StatusRefunded, escrowdomain.StatusRefunded,
		from, to,
	).Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("escrow summary: %w", err)
	}

	var disputedOpen int64
	if err := r.db.WithContext(ctx).
		Model(&escrowdomain.EscrowTransaction{}).
		Where("status = ?", escrowdomain.StatusDisputed).
		Count(&disputedOpen).Error; err != nil {
		return nil, fmt.Errorf("count open disputes: %w", err)
	}

	var inFlight int64
	if err := r.db.WithContext(ctx).
		Model(&escrowdomain.EscrowTransaction{}).
		Where("status IN ?", []escrowdomain.Status{
			escrowdomain.StatusFunded,
			escrowdomain.StatusShipped,
			escrowdomain.StatusDelivered,
		}).
		Count(&inFlight).Error; err != nil {
		return nil, fmt.Errorf("count in-flight transactions: %w", err)
	}

	return &domain.EscrowSummary{
		GMV:            totals.GMV,
		Commission:     totals.Commission,
		ReleasedCount:  totals.ReleasedCount,
		RefundedAmount: totals.RefundedAmount,
		RefundedCount:  totals.RefundedCount,
		DisputedOpen:   disputedOpen,
		InFlight:       inFlight,
	}, nil
}

func (r *AnalyticsRepositoryImpl) DailyGMV(ctx context.Context, from, to time.Time) ([]*domain.DailyPoint, error) {
	var points []*domain.DailyPoint
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			DATE_FORMAT(released_at, '%Y-%m-%d') AS day,
			COALESCE(SUM(amount), 0)             AS gmv,
			COALESCE(SUM(commission_amount), 0)  AS commission,
			COUNT(*)                             AS count
		FROM escrow_transactions
		WHERE status = ? AND released_at >= ? AND released_at < ?
		GROUP BY DATE_FORMAT(released_at, '%Y-%m-%d')
		ORDER BY day`,
		escrowdomain.StatusReleased, from, to,
	).Scan(&points).Error
	if err != nil {
		return nil, fmt.Errorf("daily gmv: %w", err)
	}
	return points, nil
}

func (r *AnalyticsRepositoryImpl) ModerationSummary(ctx context.Context, from, to time.Time) (*domain.ModerationSummary, error) {
	var summary domain.ModerationSummary
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN action = ? THEN 1 ELSE 0 END), 0)     AS allowed,
			COALESCE(SUM(CASE WHEN action = ? THEN 1 ELSE 0 END), 0)     AS blocked,
			COALESCE(SUM(CASE WHEN action = ? THEN 1 ELSE 0 END), 0)     AS queued,
			COALESCE(SUM(CASE WHEN ai_scored = 1 THEN 1 ELSE 0 END), 0)  AS ai_upgraded,
			COALESCE(SUM(CASE WHEN risk_level = ? THEN 1 ELSE 0 END), 0) AS high_risk
		FROM moderation_flags
		WHERE created_at >= ? AND created_at < ?`,
		moderationdomain.ActionAllowed, moderationdomain.ActionBlocked, moderationdomain.ActionQueued,
		moderationdomain.RiskHigh,
		from, to,
	).Scan(&summary).Error
	if err != nil {
		return nil, fmt.Errorf("moderation summary: %w", err)
	}
	return &summary, nil
}

func (r *AnalyticsRepositoryImpl) TopSellers(ctx context.Context, from, to time.Time, limit int) ([]*domain.SellerSummary, error) {
	var sellers []*domain.SellerSummary
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			seller_id,
			COALESCE(SUM(CASE WHEN status = ? THEN amount END), 0)   AS gmv,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS released_count,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS refunded_count
		FROM escrow_transactions
		WHERE created_at >= ? AND created_at < ?
		GROUP BY seller_id
		ORDER BY gmv DESC
		LIMIT ?`,
		escrowdomain.StatusReleased, escrowdomain.StatusReleased, escrowdomain.StatusRefunded,
		from, to, limit,
	).Scan(&sellers).Error
	if err != nil {
		return nil, fmt.Errorf("top sellers: %w", err)
	}
	return sellers, nil
}
