package application

import (
	"context"
	"errors"
	"testing"

	"github.com/wyfcoding/marketplace/internal/moderation/domain"
)

type fixture struct {
	svc       *ModerationService
	worker    *ScoringWorker
	repo      *memoryFlagRepo
	enqueuer  *memoryEnqueuer
	publisher *recordingPublisher
	scorer    *stubScorer
	targets   *stubTargets
}

func newFixture() *fixture {
	f := &fixture{
		repo:      newMemoryFlagRepo(),
		enqueuer:  &memoryEnqueuer{},
		publisher: &recordingPublisher{},
		scorer:    &stubScorer{score: 0.1},
		targets:   &stubTargets{},
	}
	f.svc = NewModerationService(f.repo, domain.NewRuleEngine(domain.DefaultThresholds()), f.enqueuer, f.publisher, nil)
	f.worker = NewScoringWorker(f.repo, f.scorer, f.targets, f.enqueuer, f.publisher, nil,
		domain.DefaultAIPolicy(), 3)
	return f
}

func (f *fixture) evaluate(t *testing.T, content string) *DecisionDTO {
	t.Helper()
	dto, err := f.svc.EvaluateContent(context.Background(), EvaluateCommand{
		TargetType: domain.TargetMessage,
		TargetID:   "msg-1",
		SenderID:   "user-1",
		Content:    content,
	})
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	return dto
}

func TestEvaluateContent(t *testing.T) {
	t.Run("Given clean message Then allowed and queued for scoring", func(t *testing.T) {
		f := newFixture()
		dto := f.evaluate(t, "is this still available?")
		if dto.Action != string(domain.ActionAllowed) {
			t.Errorf("expected allowed, got %s", dto.Action)
		}
		if len(f.enqueuer.queue) != 1 {
			t.Errorf("expected 1 score request, got %d", len(f.enqueuer.queue))
		}
		if f.publisher.published(domain.MessageFlaggedEventType) != 0 {
			t.Error("allowed content must not emit a flagged event")
		}
	})

	t.Run("Given phone number Then blocked, flagged event, no scoring", func(t *testing.T) {
		f := newFixture()
		dto := f.evaluate(t, "call me at +44 7700 900123")
		if dto.Action != string(domain.ActionBlocked) {
			t.Errorf("expected blocked, got %s", dto.Action)
		}
		if len(f.enqueuer.queue) != 0 {
			t.Error("blocked content must not be queued for AI scoring")
		}
		if f.publisher.published(domain.MessageFlaggedEventType) != 1 {
			t.Error("blocked content must emit a flagged event")
		}
	})

	t.Run("Given off-platform steering Then queued_for_review persisted", func(t *testing.T) {
		f := newFixture()
		dto := f.evaluate(t, "send money via mobile wallet outside the app")
		if dto.Action != string(domain.ActionQueued) {
			t.Errorf("expected queued_for_review, got %s", dto.Action)
		}
		stored, _ := f.repo.Get(context.Background(), dto.FlagID)
		if stored == nil || stored.Action != domain.ActionQueued {
			t.Fatalf("queued decision not persisted: %+v", stored)
		}
		if !stored.ReasonTags.Has("off_platform_payment") {
			t.Errorf("missing off_platform_payment tag: %v", stored.ReasonTags)
		}
	})

	t.Run("Given enqueue failure Then evaluation still succeeds on rules alone", func(t *testing.T) {
		f := newFixture()
		f.enqueuer.enqueueErr = errors.New("broker down")
		dto := f.evaluate(t, "hello there")
		if dto.Action != string(domain.ActionAllowed) {
			t.Errorf("expected allowed, got %s", dto.Action)
		}
	})
}

func TestScoringWorker(t *testing.T) {
	t.Run("Given high AI score on allowed flag Then upgraded once with alert", func(t *testing.T) {
		f := newFixture()
		dto := f.evaluate(t, "nice jacket, interested")
		f.scorer.score = 0.95

		req := f.enqueuer.queue[0]
		if err := f.worker.Process(context.Background(), req); err != nil {
			t.Fatalf("process failed: %v", err)
		}

		flag, _ := f.repo.Get(context.Background(), dto.FlagID)
		if flag.RiskLevel != domain.RiskHigh || flag.Action != domain.ActionQueued {
			t.Errorf("got level=%s action=%s", flag.RiskLevel, flag.Action)
		}
		if !flag.ReasonTags.Has(domain.AITag) {
			t.Errorf("missing %s tag: %v", domain.AITag, flag.ReasonTags)
		}
		if f.publisher.published(domain.FlagUpgradedEventType) != 1 {
			t.Error("upgrade alert not published exactly once")
		}
	})

	t.Run("Given duplicate delivery Then second apply is a no-op with single alert", func(t *testing.T) {
		f := newFixture()
		f.evaluate(t, "nice jacket, interested")
		f.scorer.score = 0.95

		req := f.enqueuer.queue[0]
		for i := 0; i < 2; i++ {
			if err := f.worker.Process(context.Background(), req); err != nil {
				t.Fatalf("delivery %d failed: %v", i, err)
			}
		}
		if f.publisher.published(domain.FlagUpgradedEventType) != 1 {
			t.Errorf("double delivery produced %d alerts, want 1", f.publisher.published(domain.FlagUpgradedEventType))
		}
	})

	t.Run("Given blocked flag Then AI score never applied regardless of value", func(t *testing.T) {
		f := newFixture()
		dto := f.evaluate(t, "pay by western union only")
		f.scorer.score = 0.99

		err := f.worker.Process(context.Background(), domain.ScoreRequest{
			FlagID: dto.FlagID, TargetType: domain.TargetMessage, TargetID: "msg-1",
		})
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}
		flag, _ := f.repo.Get(context.Background(), dto.FlagID)
		if flag.AIScored || flag.Action != domain.ActionBlocked {
			t.Errorf("blocked flag mutated: scored=%v action=%s", flag.AIScored, flag.Action)
		}
		if f.scorer.calls != 0 {
			t.Error("scorer called for a blocked flag")
		}
	})

	t.Run("Given scorer failure Then silent retry and eventual dead letter", func(t *testing.T) {
		f := newFixture()
		f.evaluate(t, "hello")
		f.scorer.err = errScorerDown

		req := f.enqueuer.queue[0]
		f.enqueuer.queue = nil
		for attempt := 0; ; attempt++ {
			if err := f.worker.Process(context.Background(), req); err != nil {
				t.Fatalf("attempt %d returned error, degradation must be silent: %v", attempt, err)
			}
			if len(f.enqueuer.queue) == 0 {
				break
			}
			req = f.enqueuer.queue[0]
			f.enqueuer.queue = nil
			if attempt > 5 {
				t.Fatal("retry loop did not terminate")
			}
		}
		if len(f.enqueuer.deadLetters) != 1 {
			t.Fatalf("expected 1 dead letter, got %d", len(f.enqueuer.deadLetters))
		}
		flag, _ := f.repo.GetByTarget(context.Background(), domain.TargetMessage, "msg-1")
		if flag.AIScored {
			t.Error("failed scoring must leave rule verdict untouched")
		}
	})

	t.Run("Given upgrades disabled Then score request skipped entirely", func(t *testing.T) {
		f := newFixture()
		dto := f.evaluate(t, "nice jacket, interested")
		f.scorer.score = 0.95

		policy := domain.DefaultAIPolicy()
		policy.UpgradeEnabled = false
		w := NewScoringWorker(f.repo, f.scorer, f.targets, f.enqueuer, f.publisher, nil, policy, 3)
		if err := w.Process(context.Background(), f.enqueuer.queue[0]); err != nil {
			t.Fatalf("process failed: %v", err)
		}
		if f.scorer.calls != 0 {
			t.Error("scorer called while upgrades are disabled")
		}
		flag, _ := f.repo.Get(context.Background(), dto.FlagID)
		if flag.AIScored {
			t.Error("flag scored while upgrades are disabled")
		}
	})

	t.Run("Given tightened policy thresholds Then same score maps higher", func(t *testing.T) {
		f := newFixture()
		dto := f.evaluate(t, "nice jacket, interested")
		f.scorer.score = 0.8

		policy := domain.AIPolicy{UpgradeEnabled: true, HighScore: 0.75, MediumScore: 0.5, LowScore: 0.25}
		w := NewScoringWorker(f.repo, f.scorer, f.targets, f.enqueuer, f.publisher, nil, policy, 3)
		if err := w.Process(context.Background(), f.enqueuer.queue[0]); err != nil {
			t.Fatalf("process failed: %v", err)
		}
		flag, _ := f.repo.Get(context.Background(), dto.FlagID)
		if flag.RiskLevel != domain.RiskHigh {
			t.Errorf("expected high under tightened thresholds, got %s", flag.RiskLevel)
		}
	})

	t.Run("Given deleted target Then request silently dropped", func(t *testing.T) {
		f := newFixture()
		f.evaluate(t, "hello")
		f.targets.deleted = map[string]bool{domain.TargetMessage + ":msg-1": true}

		req := f.enqueuer.queue[0]
		if err := f.worker.Process(context.Background(), req); err != nil {
			t.Fatalf("drop must be silent: %v", err)
		}
		if f.scorer.calls != 0 {
			t.Error("scorer called for a deleted target")
		}
		if len(f.enqueuer.deadLetters) != 0 {
			t.Error("deleted target must not dead letter")
		}
	})
}

func TestReviewFlag(t *testing.T) {
	t.Run("Given queued flag When rejected Then blocked and AI can no longer mutate", func(t *testing.T) {
		f := newFixture()
		dto := f.evaluate(t, "send money via mobile wallet outside the app")

		reviewed, err := f.svc.ReviewFlag(context.Background(), ReviewCommand{
			FlagID: dto.FlagID, ReviewedBy: "mod-1", Decision: DecisionReject,
		})
		if err != nil {
			t.Fatalf("review failed: %v", err)
		}
		if reviewed.Action != string(domain.ActionBlocked) {
			t.Errorf("expected blocked, got %s", reviewed.Action)
		}

		f.scorer.score = 0.1
		_ = f.worker.Process(context.Background(), f.enqueuer.queue[0])
		flag, _ := f.repo.Get(context.Background(), dto.FlagID)
		if flag.Action != domain.ActionBlocked {
			t.Errorf("review verdict overwritten: %s", flag.Action)
		}
	})

	t.Run("Given approved flag Then late AI score cannot overwrite the verdict", func(t *testing.T) {
		f := newFixture()
		dto := f.evaluate(t, "send money via mobile wallet outside the app")

		if _, err := f.svc.ReviewFlag(context.Background(), ReviewCommand{
			FlagID: dto.FlagID, ReviewedBy: "mod-1", Decision: DecisionApprove,
		}); err != nil {
			t.Fatalf("review failed: %v", err)
		}
		before, _ := f.repo.Get(context.Background(), dto.FlagID)

		f.scorer.score = 0.95
		if err := f.worker.Process(context.Background(), f.enqueuer.queue[0]); err != nil {
			t.Fatalf("process failed: %v", err)
		}

		flag, _ := f.repo.Get(context.Background(), dto.FlagID)
		if flag.Action != domain.ActionAllowed {
			t.Errorf("approved verdict overwritten by late AI score: %s", flag.Action)
		}
		if flag.RiskLevel != before.RiskLevel {
			t.Errorf("reviewed flag risk level mutated from %s to %s", before.RiskLevel, flag.RiskLevel)
		}
		if flag.AIScored {
			t.Error("reviewed flag marked ai_scored")
		}
		if f.publisher.published(domain.FlagUpgradedEventType) != 0 {
			t.Error("late score on a reviewed flag must not alert")
		}
	})

	t.Run("Given reviewed flag When reviewed again Then ErrAlreadyReviewed", func(t *testing.T) {
		f := newFixture()
		dto := f.evaluate(t, "send money via mobile wallet outside the app")
		cmd := ReviewCommand{FlagID: dto.FlagID, ReviewedBy: "mod-1", Decision: DecisionApprove}
		if _, err := f.svc.ReviewFlag(context.Background(), cmd); err != nil {
			t.Fatal(err)
		}
		if _, err := f.svc.ReviewFlag(context.Background(), cmd); !errors.Is(err, domain.ErrAlreadyReviewed) {
			t.Errorf("expected ErrAlreadyReviewed, got %v", err)
		}
	})

	t.Run("Given unknown decision Then ErrInvalidDecision", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.ReviewFlag(context.Background(), ReviewCommand{FlagID: "x", Decision: "escalate"})
		if !errors.Is(err, domain.ErrInvalidDecision) {
			t.Errorf("expected ErrInvalidDecision, got %v", err)
		}
	})
}
