// Package mysql 托管交易仓储的 GORM 实现
package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"

	"github.com/wyfcoding/marketplace/internal/escrow/domain"
)

type EscrowRepositoryImpl struct {
	db *gorm.DB
}

func NewEscrowRepository(db *gorm.DB) domain.EscrowRepository {
	return &EscrowRepositoryImpl{db: db}
}

func (r *EscrowRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *EscrowRepositoryImpl) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		return fn(txCtx)
	})
}

func (r *EscrowRepositoryImpl) Save(ctx context.Context, tx *domain.EscrowTransaction) error {
	return r.getDB(ctx).Save(tx).Error
}

func (r *EscrowRepositoryImpl) Get(ctx context.Context, transactionID string) (*domain.EscrowTransaction, error) {
	var tx domain.EscrowTransaction
	err := r.getDB(ctx).Where("transaction_id = ?", transactionID).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

// UpdateStatus 条件更新：WHERE 同时锁定 transaction_id 与存量状态，
// RowsAffected == 0 即判为并发冲突，由调用方重读决策。
func (r *EscrowRepositoryImpl) UpdateStatus(ctx context.Context, transactionID string, expected domain.Status, patch domain.StatusPatch) (bool, error) {
	values := map[string]any{"status": patch.Status}
	if patch.PaymentReference != "" {
		values["payment_reference"] = patch.PaymentReference
	}
	if patch.TrackingRef != "" {
		values["tracking_ref"] = patch.TrackingRef
	}
	if patch.DisputeRaisedBy != "" {
		values["dispute_raised_by"] = patch.DisputeRaisedBy
	}
	if patch.DisputeReason != "" {
		values["dispute_reason"] = patch.DisputeReason
	}
	if patch.ResolutionNote != "" {
		values["resolution_note"] = patch.ResolutionNote
	}
	if patch.FundedAt != nil {
		values["funded_at"] = patch.FundedAt
	}
	if patch.ShippedAt != nil {
		values["shipped_at"] = patch.ShippedAt
	}
	if patch.DeliveredAt != nil {
		values["delivered_at"] = patch.DeliveredAt
	}
	if patch.DisputedAt != nil {
		values["disputed_at"] = patch.DisputedAt
	}
	if patch.ResolvedAt != nil {
		values["resolved_at"] = patch.ResolvedAt
	}
	if patch.ReleasedAt != nil {
		values["released_at"] = patch.ReleasedAt
	}

	result := r.getDB(ctx).Model(&domain.EscrowTransaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, expected).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *EscrowRepositoryImpl) ListByUser(ctx context.Context, userID string, status domain.Status, limit, offset int) ([]*domain.EscrowTransaction, int64, error) {
	query := r.getDB(ctx).Model(&domain.EscrowTransaction{}).
		Where("buyer_id = ? OR seller_id = ?", userID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []*domain.EscrowTransaction
	err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&txs).Error
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (r *EscrowRepositoryImpl) FindDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.EscrowTransaction, error) {
	var txs []*domain.EscrowTransaction
	err := r.getDB(ctx).
		Where("status = ? AND delivered_at < ?", domain.StatusDelivered, cutoff).
		Order("delivered_at ASC").Limit(limit).Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *EscrowRepositoryImpl) SaveLedgerEntries(ctx context.Context, entries []*domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.getDB(ctx).Create(entries).Error
}

func (r *EscrowRepositoryImpl) ListLedgerEntries(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	err := r.getDB(ctx).Where("transaction_id = ?", transactionID).
		Order("id ASC").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
