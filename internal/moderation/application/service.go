package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/marketplace/internal/moderation/domain"
	"github.com/wyfcoding/marketplace/pkg/metrics"
)

// ModerationService 内容审核应用服务。
// 同步路径只跑规则引擎，毫秒级返回结论；AI 评分走异步队列，
// 投递失败静默降级，同步结论永远以规则为准。
type ModerationService struct {
	repo      domain.FlagRepository
	engine    *domain.RuleEngine
	enqueuer  domain.ScoreEnqueuer
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
}

func NewModerationService(
	repo domain.FlagRepository,
	engine *domain.RuleEngine,
	enqueuer domain.ScoreEnqueuer,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
) *ModerationService {
	return &ModerationService{
		repo:      repo,
		engine:    engine,
		enqueuer:  enqueuer,
		publisher: publisher,
		metrics:   m,
	}
}

// EvaluateContent 同步审核一段内容并持久化标记。
// blocked 的内容不再排 AI 评分，结论已不可能被改写。
func (s *ModerationService) EvaluateContent(ctx context.Context, cmd EvaluateCommand) (*DecisionDTO, error) {
	start := time.Now()
	result := s.engine.Evaluate(cmd.Content)

	flag := &domain.ModerationFlag{
		FlagID:     fmt.Sprintf("MF-%d", idgen.GenID()),
		TargetType: cmd.TargetType,
		TargetID:   cmd.TargetID,
		SenderID:   cmd.SenderID,
		Content:    cmd.Content,
		RuleScore:  result.Score,
		RiskLevel:  result.Level,
		Action:     result.Action,
		ReasonTags: result.Tags,
	}
	if err := s.repo.Save(ctx, flag); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ModerationMessagesTotal.WithLabelValues(string(flag.Action)).Inc()
		s.metrics.EvaluateDurationSeconds.Observe(time.Since(start).Seconds())
	}

	if flag.Action != domain.ActionAllowed {
		if err := s.publisher.Publish(ctx, domain.MessageFlaggedEventType, flag.FlagID, domain.ContentFlaggedEvent{
			FlagID:     flag.FlagID,
			TargetType: flag.TargetType,
			TargetID:   flag.TargetID,
			SenderID:   flag.SenderID,
			RuleScore:  flag.RuleScore,
			RiskLevel:  flag.RiskLevel,
			Action:     flag.Action,
			Tags:       flag.ReasonTags,
			OccurredOn: time.Now(),
		}); err != nil {
			logging.Error(ctx, "publish flagged event failed", "flag_id", flag.FlagID, "error", err)
		}
	}

	if flag.Action != domain.ActionBlocked && s.enqueuer != nil {
		req := domain.ScoreRequest{
			FlagID:     flag.FlagID,
			TargetType: flag.TargetType,
			TargetID:   flag.TargetID,
			Content:    flag.Content,
		}
		if err := s.enqueuer.Enqueue(ctx, req); err != nil {
			logging.Warn(ctx, "score enqueue failed, degrading to rules only", "flag_id", flag.FlagID, "error", err)
			if s.metrics != nil {
				s.metrics.ScorerDegradedTotal.Inc()
			}
		}
	}

	return toDecisionDTO(flag), nil
}

// GetFlag 查询单条标记
func (s *ModerationService) GetFlag(ctx context.Context, flagID string) (*FlagDTO, error) {
	flag, err := s.repo.Get(ctx, flagID)
	if err != nil {
		return nil, err
	}
	if flag == nil {
		return nil, domain.ErrFlagNotFound
	}
	return toFlagDTO(flag), nil
}

// GetFlagByTarget 按审核对象查询最近一条标记
func (s *ModerationService) GetFlagByTarget(ctx context.Context, targetType, targetID string) (*FlagDTO, error) {
	flag, err := s.repo.GetByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if flag == nil {
		return nil, domain.ErrFlagNotFound
	}
	return toFlagDTO(flag), nil
}

// ListReviewQueue 人工复核队列
func (s *ModerationService) ListReviewQueue(ctx context.Context, limit, offset int) ([]*FlagDTO, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	flags, total, err := s.repo.ListByAction(ctx, domain.ActionQueued, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]*FlagDTO, 0, len(flags))
	for _, flag := range flags {
		dtos = append(dtos, toFlagDTO(flag))
	}
	return dtos, total, nil
}

// ReviewFlag 人工复核：approve 放行，reject 拦截。
// 条件写保证同一条标记只被裁决一次。
func (s *ModerationService) ReviewFlag(ctx context.Context, cmd ReviewCommand) (*FlagDTO, error) {
	var action domain.Action
	switch cmd.Decision {
	case DecisionApprove:
		action = domain.ActionAllowed
	case DecisionReject:
		action = domain.ActionBlocked
	default:
		return nil, domain.ErrInvalidDecision
	}

	flag, err := s.repo.Get(ctx, cmd.FlagID)
	if err != nil {
		return nil, err
	}
	if flag == nil {
		return nil, domain.ErrFlagNotFound
	}

	ok, err := s.repo.UpdateReview(ctx, cmd.FlagID, cmd.ReviewedBy, cmd.Decision, action, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAlreadyReviewed
	}
	return s.GetFlag(ctx, cmd.FlagID)
}

// RefreshQueueDepth 刷新人工队列深度指标，供定时任务调用
func (s *ModerationService) RefreshQueueDepth(ctx context.Context) (int64, error) {
	depth, err := s.repo.CountByAction(ctx, domain.ActionQueued)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.ReviewQueueDepth.Set(float64(depth))
	}
	return depth, nil
}
