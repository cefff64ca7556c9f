// Package application 平台经营分析的应用服务
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/marketplace/internal/analytics/domain"
	"github.com/wyfcoding/marketplace/pkg/cache"
)

const (
	summaryCacheTTL = 2 * time.Minute
	dailyCacheTTL   = 10 * time.Minute
)

// DashboardDTO 运营看板视图
type DashboardDTO struct {
	From       time.Time                 `json:"from"`
	To         time.Time                 `json:"to"`
	Escrow     *EscrowSummaryDTO         `json:"escrow"`
	Moderation *domain.ModerationSummary `json:"moderation"`
}

// EscrowSummaryDTO 字符串化金额的交易汇总
type EscrowSummaryDTO struct {
	GMV            string `json:"gmv"`
	Commission     string `json:"commission"`
	ReleasedCount  int64  `json:"released_count"`
	RefundedAmount string `json:"refunded_amount"`
	RefundedCount  int64  `json:"refunded_count"`
	DisputedOpen   int64  `json:"disputed_open"`
	InFlight       int64  `json:"in_flight"`
}

// DailyPointDTO 字符串化金额的按天序列点
type DailyPointDTO struct {
	Day        string `json:"day"`
	GMV        string `json:"gmv"`
	Commission string `json:"commission"`
	Count      int64  `json:"count"`
}

// SellerSummaryDTO 字符串化金额的卖家汇总
type SellerSummaryDTO struct {
	SellerID      string `json:"seller_id"`
	GMV           string `json:"gmv"`
	ReleasedCount int64  `json:"released_count"`
	RefundedCount int64  `json:"refunded_count"`
}

// AnalyticsService 聚合查询门面，读路径带短缓存
type AnalyticsService struct {
	repo  domain.AnalyticsRepository
	store cache.Store
}

func NewAnalyticsService(repo domain.AnalyticsRepository, store cache.Store) *AnalyticsService {
	return &AnalyticsService{repo: repo, store: store}
}

// Dashboard 运营看板：交易与审核汇总
func (s *AnalyticsService) Dashboard(ctx context.Context, from, to time.Time) (*DashboardDTO, error) {
	key := fmt.Sprintf("analytics:dashboard:%d:%d", from.Unix(), to.Unix())
	var cached DashboardDTO
	if s.hit(ctx, key, &cached) {
		return &cached, nil
	}

	escrow, err := s.repo.EscrowSummary(ctx, from, to)
	if err != nil {
		return nil, err
	}
	moderation, err := s.repo.ModerationSummary(ctx, from, to)
	if err != nil {
		return nil, err
	}

	dto := &DashboardDTO{
		From: from,
		To:   to,
		Escrow: &EscrowSummaryDTO{
			GMV:            escrow.GMV.String(),
			Commission:     escrow.Commission.String(),
			ReleasedCount:  escrow.ReleasedCount,
			RefundedAmount: escrow.RefundedAmount.String(),
			RefundedCount:  escrow.RefundedCount,
			DisputedOpen:   escrow.DisputedOpen,
			InFlight:       escrow.InFlight,
		},
		Moderation: moderation,
	}
	s.put(ctx, key, dto, summaryCacheTTL)
	return dto, nil
}

// DailyGMV 按天聚合的已放款 GMV 序列
func (s *AnalyticsService) DailyGMV(ctx context.Context, from, to time.Time) ([]*DailyPointDTO, error) {
	key := fmt.Sprintf("analytics:daily:%d:%d", from.Unix(), to.Unix())
	var cached []*DailyPointDTO
	if s.hit(ctx, key, &cached) {
		return cached, nil
	}

	points, err := s.repo.DailyGMV(ctx, from, to)
	if err != nil {
		return nil, err
	}
	dtos := make([]*DailyPointDTO, 0, len(points))
	for _, p := range points {
		dtos = append(dtos, &DailyPointDTO{
			Day:        p.Day,
			GMV:        p.GMV.String(),
			Commission: p.Commission.String(),
			Count:      p.Count,
		})
	}
	s.put(ctx, key, dtos, dailyCacheTTL)
	return dtos, nil
}

// TopSellers 按 GMV 排序的卖家榜
func (s *AnalyticsService) TopSellers(ctx context.Context, from, to time.Time, limit int) ([]*SellerSummaryDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	sellers, err := s.repo.TopSellers(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]*SellerSummaryDTO, 0, len(sellers))
	for _, seller := range sellers {
		dtos = append(dtos, &SellerSummaryDTO{
			SellerID:      seller.SellerID,
			GMV:           seller.GMV.String(),
			ReleasedCount: seller.ReleasedCount,
			RefundedCount: seller.RefundedCount,
		})
	}
	return dtos, nil
}

func (s *AnalyticsService) hit(ctx context.Context, key string, dest any) bool {
	if s.store == nil {
		return false
	}
	err := cache.GetJSON(ctx, s.store, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrMiss) {
		logging.Warn(ctx, "analytics cache read failed", "key", key, "error", err)
	}
	return false
}

func (s *AnalyticsService) put(ctx context.Context, key string, value any, ttl time.Duration) {
	if s.store == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.store, key, value, ttl); err != nil {
		logging.Warn(ctx, "analytics cache write failed", "key", key, "error", err)
	}
}
