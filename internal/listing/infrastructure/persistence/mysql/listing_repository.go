// Package mysql 刊登仓储的 GORM 实现
package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/marketplace/internal/listing/domain"
)

type ListingRepositoryImpl struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) domain.ListingRepository {
	return &ListingRepositoryImpl{db: db}
}

func (r *ListingRepositoryImpl) Save(ctx context.Context, listing *domain.Listing) error {
	return r.db.WithContext(ctx).Save(listing).Error
}

func (r *ListingRepositoryImpl) Get(ctx context.Context, listingID string) (*domain.Listing, error) {
	var listing domain.Listing
	err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

// UpdateStatus 条件写，与托管交易的状态迁移同一套并发纪律
func (r *ListingRepositoryImpl) UpdateStatus(ctx context.Context, listingID string, expected, next domain.ListingStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Listing{}).
		Where("listing_id = ? AND status = ?", listingID, expected).
		Update("status", next)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *ListingRepositoryImpl) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*domain.Listing, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Listing{}).Where("seller_id = ?", sellerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var listings []*domain.Listing
	err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&listings).Error
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *ListingRepositoryImpl) ListByStatus(ctx context.Context, status domain.ListingStatus, limit, offset int) ([]*domain.Listing, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Listing{}).Where("status = ?", status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var listings []*domain.Listing
	err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&listings).Error
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}
