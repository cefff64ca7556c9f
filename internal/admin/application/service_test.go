package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/marketplace/internal/admin/domain"
	"github.com/wyfcoding/marketplace/pkg/cache"
)

type memorySettingsRepo struct {
	mu       sync.Mutex
	settings *domain.PlatformSettings
	gets     int
	getErr   error
}

func (r *memorySettingsRepo) Get(context.Context) (*domain.PlatformSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.settings == nil {
		return nil, nil
	}
	clone := *r.settings
	return &clone, nil
}

func (r *memorySettingsRepo) Save(_ context.Context, s *domain.PlatformSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *s
	clone.UpdatedAt = time.Now()
	r.settings = &clone
	return nil
}

type recordingSettingsPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingSettingsPublisher) Publish(_ context.Context, topic, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, topic)
	return nil
}

func newAdminFixture(t *testing.T) (*AdminService, *memorySettingsRepo, *recordingSettingsPublisher) {
	t.Helper()
	repo := &memorySettingsRepo{}
	pub := &recordingSettingsPublisher{}
	store := cache.NewMemory()
	t.Cleanup(func() { _ = store.Close() })
	return NewAdminService(repo, store, pub), repo, pub
}

func TestPlatformSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("Given no stored row When reading Then defaults are returned", func(t *testing.T) {
		svc, _, _ := newAdminFixture(t)

		dto, err := svc.GetSettings(ctx)
		if err != nil {
			t.Fatalf("GetSettings: %v", err)
		}
		if dto.CommissionRate != "0.1" || dto.BlockThreshold != 60 || dto.ReviewThreshold != 25 {
			t.Fatalf("defaults = %+v", dto)
		}
	})

	t.Run("Given an update When reading back Then the new values apply and an event is published", func(t *testing.T) {
		svc, _, pub := newAdminFixture(t)

		_, err := svc.UpdateSettings(ctx, UpdateSettingsCommand{
			CommissionRate:   "0.15",
			BlockThreshold:   80,
			ReviewThreshold:  30,
			AIUpgradeEnabled: true,
			AIHighScore:      0.95,
			AIMediumScore:    0.6,
			AILowScore:       0.3,
			AutoReleaseDays:  5,
			UpdatedBy:        "ops-1",
		})
		if err != nil {
			t.Fatalf("UpdateSettings: %v", err)
		}

		rate := svc.CommissionRate(ctx)
		if !rate.Equal(decimal.NewFromFloat(0.15)) {
			t.Fatalf("commission rate = %s, want 0.15", rate)
		}
		thresholds := svc.Thresholds(ctx)
		if thresholds.Block != 80 || thresholds.Review != 30 {
			t.Fatalf("thresholds = %+v", thresholds)
		}
		if got := svc.AutoReleaseAfter(ctx); got != 5*24*time.Hour {
			t.Fatalf("auto release window = %s", got)
		}
		policy := svc.AIPolicy(ctx)
		if !policy.UpgradeEnabled || policy.HighScore != 0.95 || policy.MediumScore != 0.6 || policy.LowScore != 0.3 {
			t.Fatalf("ai policy = %+v", policy)
		}
		if len(pub.events) != 1 || pub.events[0] != domain.SettingsUpdatedEventType {
			t.Fatalf("events = %v", pub.events)
		}
	})

	t.Run("Given invalid values When updating Then the change is rejected", func(t *testing.T) {
		svc, repo, _ := newAdminFixture(t)

		aiOK := func(cmd UpdateSettingsCommand) UpdateSettingsCommand {
			cmd.AIHighScore, cmd.AIMediumScore, cmd.AILowScore = 0.9, 0.7, 0.4
			return cmd
		}
		cases := []UpdateSettingsCommand{
			aiOK(UpdateSettingsCommand{CommissionRate: "1.5", BlockThreshold: 60, ReviewThreshold: 25, AutoReleaseDays: 7, UpdatedBy: "ops"}),
			aiOK(UpdateSettingsCommand{CommissionRate: "-0.1", BlockThreshold: 60, ReviewThreshold: 25, AutoReleaseDays: 7, UpdatedBy: "ops"}),
			aiOK(UpdateSettingsCommand{CommissionRate: "0.1", BlockThreshold: 20, ReviewThreshold: 25, AutoReleaseDays: 7, UpdatedBy: "ops"}),
			aiOK(UpdateSettingsCommand{CommissionRate: "0.1", BlockThreshold: 60, ReviewThreshold: 25, AutoReleaseDays: 0, UpdatedBy: "ops"}),
			aiOK(UpdateSettingsCommand{CommissionRate: "abc", BlockThreshold: 60, ReviewThreshold: 25, AutoReleaseDays: 7, UpdatedBy: "ops"}),
			{CommissionRate: "0.1", BlockThreshold: 60, ReviewThreshold: 25, AIHighScore: 0.5, AIMediumScore: 0.7, AILowScore: 0.4, AutoReleaseDays: 7, UpdatedBy: "ops"},
			{CommissionRate: "0.1", BlockThreshold: 60, ReviewThreshold: 25, AIHighScore: 1.2, AIMediumScore: 0.7, AILowScore: 0.4, AutoReleaseDays: 7, UpdatedBy: "ops"},
		}
		for _, cmd := range cases {
			if _, err := svc.UpdateSettings(ctx, cmd); !errors.Is(err, domain.ErrInvalidSettings) {
				t.Fatalf("cmd %+v: err = %v, want ErrInvalidSettings", cmd, err)
			}
		}
		if repo.settings != nil {
			t.Fatal("invalid update must not be persisted")
		}
	})

	t.Run("Given a warm cache When reading twice Then the repository is hit once", func(t *testing.T) {
		svc, repo, _ := newAdminFixture(t)

		if _, err := svc.GetSettings(ctx); err != nil {
			t.Fatalf("GetSettings: %v", err)
		}
		if _, err := svc.GetSettings(ctx); err != nil {
			t.Fatalf("GetSettings: %v", err)
		}
		if repo.gets != 1 {
			t.Fatalf("repo gets = %d, want 1", repo.gets)
		}
	})

	t.Run("Given an update When reading after Then no stale cached values are served", func(t *testing.T) {
		svc, _, _ := newAdminFixture(t)

		if _, err := svc.GetSettings(ctx); err != nil {
			t.Fatalf("warm read: %v", err)
		}
		if _, err := svc.UpdateSettings(ctx, UpdateSettingsCommand{
			CommissionRate:  "0.2",
			BlockThreshold:  70,
			ReviewThreshold: 20,
			AIHighScore:     0.9,
			AIMediumScore:   0.7,
			AILowScore:      0.4,
			AutoReleaseDays: 3,
			UpdatedBy:       "ops-2",
		}); err != nil {
			t.Fatalf("UpdateSettings: %v", err)
		}

		dto, err := svc.GetSettings(ctx)
		if err != nil {
			t.Fatalf("GetSettings: %v", err)
		}
		if dto.CommissionRate != "0.2" || dto.BlockThreshold != 70 {
			t.Fatalf("stale settings served: %+v", dto)
		}
	})

	t.Run("Given a storage outage When asked for the rate Then the default is used", func(t *testing.T) {
		repo := &memorySettingsRepo{getErr: errors.New("db down")}
		svc := NewAdminService(repo, nil, nil)

		rate := svc.CommissionRate(ctx)
		if !rate.Equal(decimal.NewFromFloat(0.10)) {
			t.Fatalf("fallback rate = %s, want 0.1", rate)
		}
		thresholds := svc.Thresholds(ctx)
		if thresholds.Block != 60 || thresholds.Review != 25 {
			t.Fatalf("fallback thresholds = %+v", thresholds)
		}
		policy := svc.AIPolicy(ctx)
		if !policy.UpgradeEnabled || policy.HighScore != 0.9 {
			t.Fatalf("fallback ai policy = %+v", policy)
		}
	})
}
