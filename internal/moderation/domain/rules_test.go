package domain

import (
	"testing"
	"time"
)

func TestRuleEngineEvaluate(t *testing.T) {
	engine := NewRuleEngine(DefaultThresholds())

	t.Run("Given clean content Then allowed with zero score", func(t *testing.T) {
		result := engine.Evaluate("Is the blue jacket still available?")
		if result.Action != ActionAllowed {
			t.Errorf("expected allowed, got %s", result.Action)
		}
		if result.Score != 0 || len(result.Tags) != 0 {
			t.Errorf("clean content scored %d with tags %v", result.Score, result.Tags)
		}
		if result.Level != RiskNone {
			t.Errorf("expected none, got %s", result.Level)
		}
	})

	t.Run("Given phone number Then blocked with phone_number tag", func(t *testing.T) {
		for _, content := range []string{
			"call me at +1 555 123 4567",
			"my number is 0712-345-678",
			"reach me on (415) 555-0199 anytime",
		} {
			result := engine.Evaluate(content)
			if result.Action != ActionBlocked {
				t.Errorf("%q: expected blocked, got %s", content, result.Action)
			}
			if !result.Tags.Has("phone_number") {
				t.Errorf("%q: missing phone_number tag, got %v", content, result.Tags)
			}
			if result.Level != RiskHigh {
				t.Errorf("%q: expected high, got %s", content, result.Level)
			}
		}
	})

	t.Run("Given scam phrasing Then blocked", func(t *testing.T) {
		result := engine.Evaluate("Pay via Western Union and I ship today, guaranteed profit")
		if result.Action != ActionBlocked {
			t.Errorf("expected blocked, got %s", result.Action)
		}
		if !result.Tags.Has("scam_phrase") {
			t.Errorf("missing scam_phrase tag: %v", result.Tags)
		}
	})

	t.Run("Given off-platform payment steering Then queued for review at medium", func(t *testing.T) {
		result := engine.Evaluate("send money via mobile wallet outside the app")
		if result.Action != ActionQueued {
			t.Errorf("expected queued_for_review, got %s", result.Action)
		}
		if !result.Tags.Has("off_platform_payment") {
			t.Errorf("missing off_platform_payment tag: %v", result.Tags)
		}
		if result.Level.Rank() < RiskMedium.Rank() {
			t.Errorf("expected at least medium, got %s", result.Level)
		}
	})

	t.Run("Given repeated matches of one rule Then rule counted once", func(t *testing.T) {
		single := engine.Evaluate("pay me on venmo")
		repeated := engine.Evaluate("venmo venmo venmo cash app telegram")
		if repeated.Score != single.Score {
			t.Errorf("same rule matched twice scored %d vs %d", repeated.Score, single.Score)
		}
	})

	t.Run("Given soft signals only Then allowed but tagged", func(t *testing.T) {
		result := engine.Evaluate("photos at https://example.com/album")
		if result.Action != ActionAllowed {
			t.Errorf("expected allowed, got %s", result.Action)
		}
		if !result.Tags.Has("external_link") {
			t.Errorf("missing external_link tag: %v", result.Tags)
		}
	})

	t.Run("Given stacked signals Then score is monotone over subsets", func(t *testing.T) {
		partial := engine.Evaluate("contact me on whatsapp")
		full := engine.Evaluate("contact me on whatsapp at bob@example.com, pics at http://x.io")
		if full.Score < partial.Score {
			t.Errorf("adding matches lowered score: %d -> %d", partial.Score, full.Score)
		}
		if full.Level.Rank() < partial.Level.Rank() {
			t.Errorf("adding matches lowered level: %s -> %s", partial.Level, full.Level)
		}
	})

	t.Run("Given degenerate thresholds Then defaults apply", func(t *testing.T) {
		e := NewRuleEngine(Thresholds{Block: 0, Review: 0})
		if e.Thresholds() != DefaultThresholds() {
			t.Errorf("expected defaults, got %+v", e.Thresholds())
		}
	})
}

func TestUpgradeByAI(t *testing.T) {
	newFlag := func(action Action, level RiskLevel) *ModerationFlag {
		return &ModerationFlag{
			FlagID:    "MF-1",
			RiskLevel: level,
			Action:    action,
		}
	}

	t.Run("Given allowed flag and high score Then upgraded to queued with ai_flagged tag", func(t *testing.T) {
		flag := newFlag(ActionAllowed, RiskNone)
		upgraded := flag.UpgradeByAI(0.95, DefaultAIPolicy().Level(0.95))
		if !upgraded {
			t.Fatal("expected upgrade")
		}
		if flag.RiskLevel != RiskHigh || flag.Action != ActionQueued {
			t.Errorf("got level=%s action=%s", flag.RiskLevel, flag.Action)
		}
		if !flag.ReasonTags.Has(AITag) {
			t.Errorf("missing %s tag: %v", AITag, flag.ReasonTags)
		}
	})

	t.Run("Given blocked flag Then AI never mutates it", func(t *testing.T) {
		flag := newFlag(ActionBlocked, RiskHigh)
		if flag.UpgradeByAI(0.99, RiskHigh) {
			t.Error("blocked flag must not be upgraded")
		}
		if flag.AIScored {
			t.Error("blocked flag must not record a score")
		}
	})

	t.Run("Given reviewed flag Then AI never mutates it", func(t *testing.T) {
		now := time.Now()
		flag := newFlag(ActionAllowed, RiskLow)
		flag.ReviewedAt = &now
		if flag.UpgradeByAI(0.99, RiskHigh) {
			t.Error("reviewed flag must not be upgraded")
		}
		if flag.AIScored {
			t.Error("reviewed flag must not record a score")
		}
	})

	t.Run("Given already scored flag Then second delivery is a no-op", func(t *testing.T) {
		flag := newFlag(ActionAllowed, RiskNone)
		flag.UpgradeByAI(0.95, RiskHigh)
		levelBefore := flag.RiskLevel

		if flag.UpgradeByAI(0.5, RiskLow) {
			t.Error("second delivery must not apply")
		}
		if flag.RiskLevel != levelBefore {
			t.Errorf("level mutated on replay: %s", flag.RiskLevel)
		}
	})

	t.Run("Given lower AI level Then never downgraded", func(t *testing.T) {
		flag := newFlag(ActionQueued, RiskMedium)
		if flag.UpgradeByAI(0.45, RiskLow) {
			t.Error("lower score must not count as upgrade")
		}
		if flag.RiskLevel != RiskMedium || flag.Action != ActionQueued {
			t.Errorf("downgraded to level=%s action=%s", flag.RiskLevel, flag.Action)
		}
		if !flag.AIScored {
			t.Error("score delivery should still be recorded once")
		}
	})
}

func TestAIPolicyLevel(t *testing.T) {
	policy := DefaultAIPolicy()
	cases := []struct {
		score float64
		want  RiskLevel
	}{
		{0.0, RiskNone},
		{0.39, RiskNone},
		{0.4, RiskLow},
		{0.69, RiskLow},
		{0.7, RiskMedium},
		{0.89, RiskMedium},
		{0.9, RiskHigh},
		{1.0, RiskHigh},
	}
	for _, tc := range cases {
		if got := policy.Level(tc.score); got != tc.want {
			t.Errorf("score %.2f: expected %s, got %s", tc.score, tc.want, got)
		}
	}
}
