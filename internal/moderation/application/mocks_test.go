package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wyfcoding/marketplace/internal/moderation/domain"
)

// memoryFlagRepo 内存标记仓储，ApplyAIScore 与 MySQL 实现同样是条件写
type memoryFlagRepo struct {
	mu    sync.Mutex
	flags map[string]*domain.ModerationFlag
}

func newMemoryFlagRepo() *memoryFlagRepo {
	return &memoryFlagRepo{flags: make(map[string]*domain.ModerationFlag)}
}

func (r *memoryFlagRepo) Save(_ context.Context, flag *domain.ModerationFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *flag
	r.flags[flag.FlagID] = &cp
	return nil
}

func (r *memoryFlagRepo) Get(_ context.Context, flagID string) (*domain.ModerationFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag, ok := r.flags[flagID]
	if !ok {
		return nil, nil
	}
	cp := *flag
	return &cp, nil
}

func (r *memoryFlagRepo) GetByTarget(_ context.Context, targetType, targetID string) (*domain.ModerationFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, flag := range r.flags {
		if flag.TargetType == targetType && flag.TargetID == targetID {
			cp := *flag
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryFlagRepo) ApplyAIScore(_ context.Context, flagID string, patch domain.AIPatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag, ok := r.flags[flagID]
	if !ok || flag.AIScored || flag.Action == domain.ActionBlocked || flag.ReviewedAt != nil {
		return false, nil
	}
	score := patch.Score
	flag.AIScore = &score
	flag.AIScored = true
	flag.RiskLevel = patch.Level
	flag.Action = patch.Action
	flag.ReasonTags = patch.Tags
	return true, nil
}

func (r *memoryFlagRepo) ListByAction(_ context.Context, action domain.Action, limit, offset int) ([]*domain.ModerationFlag, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ModerationFlag
	for _, flag := range r.flags {
		if flag.Action == action {
			cp := *flag
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryFlagRepo) CountByAction(_ context.Context, action domain.Action) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, flag := range r.flags {
		if flag.Action == action {
			n++
		}
	}
	return n, nil
}

func (r *memoryFlagRepo) UpdateReview(_ context.Context, flagID, reviewedBy, decision string, action domain.Action, reviewedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag, ok := r.flags[flagID]
	if !ok || flag.ReviewedBy != "" {
		return false, nil
	}
	flag.ReviewedBy = reviewedBy
	flag.ReviewDecision = decision
	flag.Action = action
	flag.ReviewedAt = &reviewedAt
	return true, nil
}

// memoryEnqueuer 记录评分任务与死信
type memoryEnqueuer struct {
	mu          sync.Mutex
	queue       []domain.ScoreRequest
	deadLetters []domain.ScoreRequest
	enqueueErr  error
}

func (e *memoryEnqueuer) Enqueue(_ context.Context, req domain.ScoreRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enqueueErr != nil {
		return e.enqueueErr
	}
	e.queue = append(e.queue, req)
	return nil
}

func (e *memoryEnqueuer) DeadLetter(_ context.Context, req domain.ScoreRequest, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deadLetters = append(e.deadLetters, req)
	return nil
}

// recordingPublisher 记录发布事件
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) PublishInTx(_ context.Context, _ any, topic string, _ string, _ any) error {
	return p.Publish(context.Background(), topic, "", nil)
}

func (p *recordingPublisher) published(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

// stubScorer 固定返回或固定失败的评分器
type stubScorer struct {
	score float64
	err   error
	calls int
}

func (s *stubScorer) Score(context.Context, string) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.score, nil
}

// stubTargets 可标记对象删除
type stubTargets struct {
	deleted map[string]bool
}

func (t *stubTargets) Exists(_ context.Context, targetType, targetID string) (bool, error) {
	if t.deleted == nil {
		return true, nil
	}
	return !t.deleted[targetType+":"+targetID], nil
}

var errScorerDown = errors.New("scorer timeout")
