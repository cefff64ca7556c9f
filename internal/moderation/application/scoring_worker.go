package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/marketplace/internal/moderation/domain"
	"github.com/wyfcoding/marketplace/pkg/metrics"
)

// ScoringWorker 异步 AI 评分消费端。
// 评分失败不向上游返回错误：有限次重试后进死信，审核停留在规则结论上。
// 审核对象已删除时任务静默丢弃。
type ScoringWorker struct {
	repo        domain.FlagRepository
	scorer      domain.AIScorer
	targets     domain.TargetLookup
	enqueuer    domain.ScoreEnqueuer
	publisher   domain.EventPublisher
	metrics     *metrics.Metrics
	policy      domain.AIPolicy
	maxAttempts int
}

func NewScoringWorker(
	repo domain.FlagRepository,
	scorer domain.AIScorer,
	targets domain.TargetLookup,
	enqueuer domain.ScoreEnqueuer,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	policy domain.AIPolicy,
	maxAttempts int,
) *ScoringWorker {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &ScoringWorker{
		repo:        repo,
		scorer:      scorer,
		targets:     targets,
		enqueuer:    enqueuer,
		publisher:   publisher,
		metrics:     m,
		policy:      policy,
		maxAttempts: maxAttempts,
	}
}

// Handle Kafka 消费入口
func (w *ScoringWorker) Handle(ctx context.Context, msg kafka.Message) error {
	var req domain.ScoreRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		logging.Error(ctx, "malformed score request dropped", "error", err)
		return nil
	}
	return w.Process(ctx, req)
}

// Process 处理一条评分任务
func (w *ScoringWorker) Process(ctx context.Context, req domain.ScoreRequest) error {
	if !w.policy.UpgradeEnabled {
		logging.Debug(ctx, "ai upgrade disabled, score request dropped", "flag_id", req.FlagID)
		return nil
	}
	if w.targets != nil {
		exists, err := w.targets.Exists(ctx, req.TargetType, req.TargetID)
		if err != nil {
			return err
		}
		if !exists {
			// 对象已删除，任务静默丢弃
			return nil
		}
	}

	flag, err := w.repo.Get(ctx, req.FlagID)
	if err != nil {
		return err
	}
	if flag == nil {
		return nil
	}
	if flag.AIScored || flag.Action == domain.ActionBlocked || flag.ReviewedAt != nil {
		return nil
	}

	score, err := w.scorer.Score(ctx, req.Content)
	if err != nil {
		w.degrade(ctx, req, err)
		return nil
	}

	upgraded := flag.UpgradeByAI(score, w.policy.Level(score))
	applied, err := w.repo.ApplyAIScore(ctx, flag.FlagID, domain.AIPatch{
		Score:  score,
		Level:  flag.RiskLevel,
		Action: flag.Action,
		Tags:   flag.ReasonTags,
	})
	if err != nil {
		return err
	}
	if !applied {
		// 并发投递的重复评分，条件写已挡掉
		return nil
	}

	if upgraded {
		if w.metrics != nil {
			w.metrics.ModerationUpgradesTotal.Inc()
		}
		if w.publisher != nil {
			if err := w.publisher.Publish(ctx, domain.FlagUpgradedEventType, flag.FlagID, domain.FlagUpgradedEvent{
				FlagID:     flag.FlagID,
				TargetType: flag.TargetType,
				TargetID:   flag.TargetID,
				AIScore:    score,
				RiskLevel:  flag.RiskLevel,
				Action:     flag.Action,
				OccurredOn: time.Now(),
			}); err != nil {
				logging.Error(ctx, "publish upgrade event failed", "flag_id", flag.FlagID, "error", err)
			}
		}
	}
	return nil
}

// degrade 评分失败的降级路径：重试预算内重新排队，耗尽后进死信。
// 两种情况都不影响已写入的规则结论。
func (w *ScoringWorker) degrade(ctx context.Context, req domain.ScoreRequest, cause error) {
	if w.metrics != nil {
		w.metrics.ScorerDegradedTotal.Inc()
	}
	logging.Warn(ctx, "ai scorer failed", "flag_id", req.FlagID, "attempt", req.Attempt, "error", cause)

	if w.enqueuer == nil {
		return
	}

	req.Attempt++
	if req.Attempt < w.maxAttempts {
		if err := w.enqueuer.Enqueue(ctx, req); err != nil {
			logging.Error(ctx, "score retry enqueue failed", "flag_id", req.FlagID, "error", err)
		}
		return
	}

	if err := w.enqueuer.DeadLetter(ctx, req, cause.Error()); err != nil {
		logging.Error(ctx, "score dead letter failed", "flag_id", req.FlagID, "error", err)
		return
	}
	if w.metrics != nil {
		w.metrics.ScorerDeadLetteredTotal.Inc()
	}
}
