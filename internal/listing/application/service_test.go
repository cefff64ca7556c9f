package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/marketplace/internal/listing/domain"
	"github.com/wyfcoding/marketplace/pkg/cache"
)

type memoryListingRepo struct {
	mu       sync.Mutex
	listings map[string]*domain.Listing
	gets     int
}

func newMemoryListingRepo() *memoryListingRepo {
	return &memoryListingRepo{listings: make(map[string]*domain.Listing)}
}

func (r *memoryListingRepo) Save(_ context.Context, listing *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *listing
	r.listings[listing.ListingID] = &cp
	return nil
}

func (r *memoryListingRepo) Get(_ context.Context, listingID string) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if listing, ok := r.listings[listingID]; ok {
		cp := *listing
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryListingRepo) UpdateStatus(_ context.Context, listingID string, expected, next domain.ListingStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing, ok := r.listings[listingID]
	if !ok || listing.Status != expected {
		return false, nil
	}
	listing.Status = next
	return true, nil
}

func (r *memoryListingRepo) ListBySeller(_ context.Context, sellerID string, limit, offset int) ([]*domain.Listing, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Listing
	for _, listing := range r.listings {
		if listing.SellerID == sellerID {
			cp := *listing
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryListingRepo) ListByStatus(_ context.Context, status domain.ListingStatus, limit, offset int) ([]*domain.Listing, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Listing
	for _, listing := range r.listings {
		if listing.Status == status {
			cp := *listing
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

type passModerator struct {
	blocked bool
}

func (m *passModerator) Check(context.Context, string, string, string) (domain.Verdict, error) {
	return domain.Verdict{FlagID: "MF-x", Blocked: m.blocked}, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string, any) error        { return nil }
func (nopPublisher) PublishInTx(context.Context, any, string, string, any) error { return nil }

func newService(t *testing.T) (*ListingService, *memoryListingRepo, *passModerator, cache.Store) {
	t.Helper()
	repo := newMemoryListingRepo()
	mod := &passModerator{}
	store := cache.NewMemory()
	t.Cleanup(func() { _ = store.Close() })
	return NewListingService(repo, mod, nopPublisher{}, store), repo, mod, store
}

func createListing(t *testing.T, svc *ListingService) string {
	t.Helper()
	dto, err := svc.CreateListing(context.Background(), CreateListingCommand{
		SellerID: "seller-1",
		Title:    "vintage camera",
		Price:    decimal.RequireFromString("120.00"),
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return dto.ListingID
}

func TestCreateListing(t *testing.T) {
	t.Run("Given valid listing Then active", func(t *testing.T) {
		svc, _, _, _ := newService(t)
		dto, err := svc.CreateListing(context.Background(), CreateListingCommand{
			SellerID: "seller-1", Title: "bike",
			Price: decimal.RequireFromString("80"), Currency: "EUR",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dto.Status != string(domain.StatusActive) {
			t.Errorf("expected active, got %s", dto.Status)
		}
	})

	t.Run("Given non-positive price Then ErrInvalidPrice", func(t *testing.T) {
		svc, _, _, _ := newService(t)
		_, err := svc.CreateListing(context.Background(), CreateListingCommand{
			SellerID: "seller-1", Title: "bike", Price: decimal.Zero, Currency: "EUR",
		})
		if !errors.Is(err, domain.ErrInvalidPrice) {
			t.Errorf("expected ErrInvalidPrice, got %v", err)
		}
	})

	t.Run("Given blocked content Then creation rejected", func(t *testing.T) {
		svc, repo, mod, _ := newService(t)
		mod.blocked = true
		_, err := svc.CreateListing(context.Background(), CreateListingCommand{
			SellerID: "seller-1", Title: "x", Price: decimal.RequireFromString("1"), Currency: "USD",
		})
		if err == nil {
			t.Fatal("expected rejection")
		}
		if len(repo.listings) != 0 {
			t.Error("blocked listing persisted")
		}
	})
}

func TestUpdateListing(t *testing.T) {
	t.Run("Given active listing Then fields replaced and cache dropped", func(t *testing.T) {
		svc, repo, _, _ := newService(t)
		id := createListing(t, svc)
		if _, err := svc.GetListing(context.Background(), id); err != nil {
			t.Fatalf("warm read failed: %v", err)
		}

		dto, err := svc.UpdateListing(context.Background(), UpdateListingCommand{
			ListingID: id, SellerID: "seller-1",
			Title: "vintage camera, serviced", Description: "fresh seals",
			Price: decimal.RequireFromString("135.50"),
		})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if dto.Title != "vintage camera, serviced" || dto.Price != "135.5" {
			t.Errorf("update not applied: %+v", dto)
		}

		fresh, err := svc.GetListing(context.Background(), id)
		if err != nil {
			t.Fatalf("read after update failed: %v", err)
		}
		if fresh.Title != "vintage camera, serviced" {
			t.Error("read served stale cached listing after update")
		}
		if repo.listings[id].Description != "fresh seals" {
			t.Error("update not persisted")
		}
	})

	t.Run("Given different seller Then ErrNotSeller", func(t *testing.T) {
		svc, _, _, _ := newService(t)
		id := createListing(t, svc)
		_, err := svc.UpdateListing(context.Background(), UpdateListingCommand{
			ListingID: id, SellerID: "seller-2", Title: "hijack",
			Price: decimal.RequireFromString("1"),
		})
		if !errors.Is(err, domain.ErrNotSeller) {
			t.Errorf("expected ErrNotSeller, got %v", err)
		}
	})

	t.Run("Given blocked replacement text Then original content kept", func(t *testing.T) {
		svc, repo, mod, _ := newService(t)
		id := createListing(t, svc)
		mod.blocked = true
		_, err := svc.UpdateListing(context.Background(), UpdateListingCommand{
			ListingID: id, SellerID: "seller-1", Title: "pay me off-platform",
			Price: decimal.RequireFromString("120.00"),
		})
		if err == nil {
			t.Fatal("expected rejection")
		}
		if repo.listings[id].Title != "vintage camera" {
			t.Error("blocked update overwrote stored listing")
		}
	})

	t.Run("Given reserved listing Then update rejected", func(t *testing.T) {
		svc, _, _, _ := newService(t)
		id := createListing(t, svc)
		if err := svc.Reserve(context.Background(), id); err != nil {
			t.Fatalf("reserve failed: %v", err)
		}
		_, err := svc.UpdateListing(context.Background(), UpdateListingCommand{
			ListingID: id, SellerID: "seller-1", Title: "late edit",
			Price: decimal.RequireFromString("99"),
		})
		if !errors.Is(err, domain.ErrListingNotActive) {
			t.Errorf("expected ErrListingNotActive, got %v", err)
		}
	})
}

func TestGetListingCache(t *testing.T) {
	t.Run("Given repeated reads Then second read served from cache", func(t *testing.T) {
		svc, repo, _, _ := newService(t)
		id := createListing(t, svc)

		ctx := context.Background()
		if _, err := svc.GetListing(ctx, id); err != nil {
			t.Fatal(err)
		}
		dbReads := repo.gets
		if _, err := svc.GetListing(ctx, id); err != nil {
			t.Fatal(err)
		}
		if repo.gets != dbReads {
			t.Errorf("second read hit the database (%d -> %d)", dbReads, repo.gets)
		}
	})

	t.Run("Given status change Then cache invalidated", func(t *testing.T) {
		svc, _, _, _ := newService(t)
		id := createListing(t, svc)
		ctx := context.Background()

		if _, err := svc.GetListing(ctx, id); err != nil {
			t.Fatal(err)
		}
		if err := svc.Reserve(ctx, id); err != nil {
			t.Fatalf("reserve failed: %v", err)
		}
		dto, err := svc.GetListing(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if dto.Status != string(domain.StatusReserved) {
			t.Errorf("stale cache after transition: %s", dto.Status)
		}
	})
}

func TestListingTransitions(t *testing.T) {
	t.Run("Given reserved listing Then sold and reactivate follow escrow outcome", func(t *testing.T) {
		svc, _, _, _ := newService(t)
		ctx := context.Background()

		soldID := createListing(t, svc)
		if err := svc.Reserve(ctx, soldID); err != nil {
			t.Fatal(err)
		}
		if err := svc.MarkSold(ctx, soldID); err != nil {
			t.Fatal(err)
		}

		refundedID := createListing(t, svc)
		if err := svc.Reserve(ctx, refundedID); err != nil {
			t.Fatal(err)
		}
		if err := svc.Reactivate(ctx, refundedID); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("Given sold listing Then reserve rejected", func(t *testing.T) {
		svc, _, _, _ := newService(t)
		ctx := context.Background()
		id := createListing(t, svc)
		if err := svc.Reserve(ctx, id); err != nil {
			t.Fatal(err)
		}
		if err := svc.MarkSold(ctx, id); err != nil {
			t.Fatal(err)
		}
		if err := svc.Reserve(ctx, id); !errors.Is(err, domain.ErrListingNotActive) {
			t.Errorf("expected ErrListingNotActive, got %v", err)
		}
	})

	t.Run("Given foreign seller Then remove rejected", func(t *testing.T) {
		svc, _, _, _ := newService(t)
		id := createListing(t, svc)
		if err := svc.Remove(context.Background(), id, "other-seller"); !errors.Is(err, domain.ErrNotSeller) {
			t.Errorf("expected ErrNotSeller, got %v", err)
		}
	})
}
