// Package application 刊登应用服务：写走数据库，读走短 TTL 缓存
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/marketplace/internal/listing/domain"
	"github.com/wyfcoding/marketplace/pkg/cache"
)

const listingCacheTTL = 5 * time.Minute

type CreateListingCommand struct {
	SellerID    string
	Title       string
	Description string
	Category    string
	Price       decimal.Decimal
	Currency    string
}

type ListingDTO struct {
	ListingID   string    `json:"listing_id"`
	SellerID    string    `json:"seller_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       string    `json:"price"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListingService 刊登应用服务。
// 标题与描述在创建时同步过审，拦截的刊登直接拒绝创建。
type ListingService struct {
	repo      domain.ListingRepository
	moderator domain.Moderator
	publisher domain.EventPublisher
	store     cache.Store
}

func NewListingService(
	repo domain.ListingRepository,
	moderator domain.Moderator,
	publisher domain.EventPublisher,
	store cache.Store,
) *ListingService {
	return &ListingService{
		repo:      repo,
		moderator: moderator,
		publisher: publisher,
		store:     store,
	}
}

// CreateListing 创建刊登
func (s *ListingService) CreateListing(ctx context.Context, cmd CreateListingCommand) (*ListingDTO, error) {
	listingID := fmt.Sprintf("LST-%d", idgen.GenID())
	listing, err := domain.NewListing(listingID, cmd.SellerID, cmd.Title, cmd.Description, cmd.Category, cmd.Price, cmd.Currency)
	if err != nil {
		return nil, err
	}

	if s.moderator != nil {
		verdict, err := s.moderator.Check(ctx, listingID, cmd.SellerID, cmd.Title+"\n"+cmd.Description)
		if err != nil {
			return nil, err
		}
		listing.FlagID = verdict.FlagID
		if verdict.Blocked {
			return nil, domain.ErrListingNotActive
		}
	}

	if err := s.repo.Save(ctx, listing); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, domain.ListingCreatedEventType, listing.ListingID, domain.ListingCreatedEvent{
		ListingID: listing.ListingID,
		SellerID:  listing.SellerID,
		Category:  listing.Category,
		Price:     listing.Price.String(),
		Currency:  listing.Currency,
	}); err != nil {
		logging.Error(ctx, "publish listing event failed", "listing_id", listing.ListingID, "error", err)
	}
	return toDTO(listing), nil
}

// GetListing 读取刊登，先查缓存
func (s *ListingService) GetListing(ctx context.Context, listingID string) (*ListingDTO, error) {
	key := cacheKey(listingID)
	if s.store != nil {
		var cached ListingDTO
		if err := cache.GetJSON(ctx, s.store, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			logging.Warn(ctx, "listing cache read failed", "listing_id", listingID, "error", err)
		}
	}

	listing, err := s.repo.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, domain.ErrListingNotFound
	}

	dto := toDTO(listing)
	if s.store != nil {
		if err := cache.SetJSON(ctx, s.store, key, dto, listingCacheTTL); err != nil {
			logging.Warn(ctx, "listing cache write failed", "listing_id", listingID, "error", err)
		}
	}
	return dto, nil
}

type UpdateListingCommand struct {
	ListingID   string
	SellerID    string
	Title       string
	Description string
	Category    string
	Price       decimal.Decimal
}

// UpdateListing 卖家编辑刊登，新文案重新过审，拦截则维持原内容
func (s *ListingService) UpdateListing(ctx context.Context, cmd UpdateListingCommand) (*ListingDTO, error) {
	listing, err := s.repo.Get(ctx, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, domain.ErrListingNotFound
	}
	if listing.SellerID != cmd.SellerID {
		return nil, domain.ErrNotSeller
	}
	if listing.Status != domain.StatusActive {
		return nil, domain.ErrListingNotActive
	}
	if !cmd.Price.IsPositive() {
		return nil, domain.ErrInvalidPrice
	}

	if s.moderator != nil {
		verdict, err := s.moderator.Check(ctx, cmd.ListingID, cmd.SellerID, cmd.Title+"\n"+cmd.Description)
		if err != nil {
			return nil, err
		}
		if verdict.Blocked {
			return nil, domain.ErrListingNotActive
		}
		listing.FlagID = verdict.FlagID
	}

	listing.Title = cmd.Title
	listing.Description = cmd.Description
	listing.Category = cmd.Category
	listing.Price = cmd.Price

	if err := s.repo.Save(ctx, listing); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cmd.ListingID)

	if err := s.publisher.Publish(ctx, domain.ListingUpdatedEventType, listing.ListingID, domain.ListingUpdatedEvent{
		ListingID: listing.ListingID,
		SellerID:  listing.SellerID,
		Price:     listing.Price.String(),
	}); err != nil {
		logging.Error(ctx, "publish listing event failed", "listing_id", listing.ListingID, "error", err)
	}
	return toDTO(listing), nil
}

// ListBySeller 卖家的刊登列表
func (s *ListingService) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*ListingDTO, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	listings, total, err := s.repo.ListBySeller(ctx, sellerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return toDTOs(listings), total, nil
}

// ListActive 在售刊登列表
func (s *ListingService) ListActive(ctx context.Context, limit, offset int) ([]*ListingDTO, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	listings, total, err := s.repo.ListByStatus(ctx, domain.StatusActive, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return toDTOs(listings), total, nil
}

// Reserve 托管交易创建时锁定刊登，active -> reserved
func (s *ListingService) Reserve(ctx context.Context, listingID string) error {
	return s.transition(ctx, listingID, domain.StatusActive, domain.StatusReserved)
}

// MarkSold 放款完成后标记售出，reserved -> sold
func (s *ListingService) MarkSold(ctx context.Context, listingID string) error {
	return s.transition(ctx, listingID, domain.StatusReserved, domain.StatusSold)
}

// Reactivate 交易退款后重新上架，reserved -> active
func (s *ListingService) Reactivate(ctx context.Context, listingID string) error {
	return s.transition(ctx, listingID, domain.StatusReserved, domain.StatusActive)
}

// Remove 卖家下架
func (s *ListingService) Remove(ctx context.Context, listingID, sellerID string) error {
	listing, err := s.repo.Get(ctx, listingID)
	if err != nil {
		return err
	}
	if listing == nil {
		return domain.ErrListingNotFound
	}
	if listing.SellerID != sellerID {
		return domain.ErrNotSeller
	}
	return s.transition(ctx, listingID, listing.Status, domain.StatusRemoved)
}

func (s *ListingService) transition(ctx context.Context, listingID string, expected, next domain.ListingStatus) error {
	ok, err := s.repo.UpdateStatus(ctx, listingID, expected, next)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrListingNotActive
	}

	s.invalidate(ctx, listingID)

	if err := s.publisher.Publish(ctx, domain.ListingStatusChangedEventType, listingID, domain.ListingStatusChangedEvent{
		ListingID: listingID,
		OldStatus: expected,
		NewStatus: next,
	}); err != nil {
		logging.Error(ctx, "publish listing status event failed", "listing_id", listingID, "error", err)
	}
	return nil
}

func (s *ListingService) invalidate(ctx context.Context, listingID string) {
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, cacheKey(listingID)); err != nil {
		logging.Warn(ctx, "listing cache invalidate failed", "listing_id", listingID, "error", err)
	}
}

func cacheKey(listingID string) string {
	return "listing:" + listingID
}

func toDTO(listing *domain.Listing) *ListingDTO {
	return &ListingDTO{
		ListingID:   listing.ListingID,
		SellerID:    listing.SellerID,
		Title:       listing.Title,
		Description: listing.Description,
		Category:    listing.Category,
		Price:       listing.Price.String(),
		Currency:    listing.Currency,
		Status:      string(listing.Status),
		CreatedAt:   listing.CreatedAt,
	}
}

func toDTOs(listings []*domain.Listing) []*ListingDTO {
	dtos := make([]*ListingDTO, 0, len(listings))
	for _, listing := range listings {
		dtos = append(dtos, toDTO(listing))
	}
	return dtos
}
