// Package domain 商品刊登的领域模型
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrInvalidPrice     = errors.New("invalid listing price")
	ErrNotSeller        = errors.New("user is not the seller")
	ErrListingNotActive = errors.New("listing is not active")
)

// ListingStatus 刊登状态
type ListingStatus string

const (
	// StatusActive 在售
	StatusActive ListingStatus = "active"
	// StatusReserved 有托管交易进行中，暂不可再下单
	StatusReserved ListingStatus = "reserved"
	// StatusSold 已售出
	StatusSold ListingStatus = "sold"
	// StatusRemoved 已下架（卖家删除或审核拦截）
	StatusRemoved ListingStatus = "removed"
)

// Listing 商品刊登。价格精确到币种最小单位，与托管交易共用 decimal 表示。
type Listing struct {
	gorm.Model
	ListingID   string          `gorm:"column:listing_id;type:varchar(32);uniqueIndex;not null" json:"listing_id"`
	SellerID    string          `gorm:"column:seller_id;type:varchar(32);index;not null" json:"seller_id"`
	Title       string          `gorm:"column:title;type:varchar(256);not null" json:"title"`
	Description string          `gorm:"column:description;type:varchar(4096)" json:"description"`
	Category    string          `gorm:"column:category;type:varchar(64);index" json:"category"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(20,4);not null" json:"price"`
	Currency    string          `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	Status      ListingStatus   `gorm:"column:status;type:varchar(16);index;not null;default:'active'" json:"status"`
	FlagID      string          `gorm:"column:flag_id;type:varchar(32)" json:"flag_id,omitempty"`
}

// TableName 表名
func (Listing) TableName() string {
	return "listings"
}

// NewListing 创建在售刊登，价格必须为正
func NewListing(listingID, sellerID, title, description, category string, price decimal.Decimal, currency string) (*Listing, error) {
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	return &Listing{
		ListingID:   listingID,
		SellerID:    sellerID,
		Title:       title,
		Description: description,
		Category:    category,
		Price:       price,
		Currency:    currency,
		Status:      StatusActive,
	}, nil
}

// ListingRepository 刊登仓储。UpdateStatus 与托管交易一样是条件写。
type ListingRepository interface {
	Save(ctx context.Context, listing *Listing) error
	Get(ctx context.Context, listingID string) (*Listing, error)
	UpdateStatus(ctx context.Context, listingID string, expected, next ListingStatus) (bool, error)
	ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*Listing, int64, error)
	ListByStatus(ctx context.Context, status ListingStatus, limit, offset int) ([]*Listing, int64, error)
}

// 刊登事件主题
const (
	ListingCreatedEventType       = "listing.item.created"
	ListingUpdatedEventType       = "listing.item.updated"
	ListingStatusChangedEventType = "listing.item.status_changed"
)

// ListingCreatedEvent 刊登创建事件
type ListingCreatedEvent struct {
	ListingID string `json:"listing_id"`
	SellerID  string `json:"seller_id"`
	Category  string `json:"category"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
}

// ListingUpdatedEvent 刊登内容变更事件
type ListingUpdatedEvent struct {
	ListingID string `json:"listing_id"`
	SellerID  string `json:"seller_id"`
	Price     string `json:"price"`
}

// ListingStatusChangedEvent 刊登状态变更事件
type ListingStatusChangedEvent struct {
	ListingID string        `json:"listing_id"`
	OldStatus ListingStatus `json:"old_status"`
	NewStatus ListingStatus `json:"new_status"`
}

// EventPublisher 刊登领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
	PublishInTx(ctx context.Context, tx any, topic string, key string, event any) error
}

// Moderator 刊登内容的同步审核契约
type Moderator interface {
	Check(ctx context.Context, targetID, senderID, content string) (Verdict, error)
}

// Verdict 审核结论
type Verdict struct {
	FlagID  string
	Blocked bool
}
