package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/marketplace/internal/escrow/domain"
)

// memoryRepo 基于互斥锁的内存仓储，UpdateStatus 与 MySQL 实现一样是条件写
type memoryRepo struct {
	mu      sync.Mutex
	txs     map[string]*domain.EscrowTransaction
	entries []*domain.LedgerEntry
	failTx  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{txs: make(map[string]*domain.EscrowTransaction)}
}

func (r *memoryRepo) Save(_ context.Context, tx *domain.EscrowTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tx
	r.txs[tx.TransactionID] = &cp
	return nil
}

func (r *memoryRepo) Get(_ context.Context, transactionID string) (*domain.EscrowTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, transactionID string, expected domain.Status, patch domain.StatusPatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[transactionID]
	if !ok || tx.Status != expected {
		return false, nil
	}
	tx.Status = patch.Status
	if patch.PaymentReference != "" {
		tx.PaymentReference = patch.PaymentReference
	}
	if patch.TrackingRef != "" {
		tx.TrackingRef = patch.TrackingRef
	}
	if patch.DisputeRaisedBy != "" {
		tx.DisputeRaisedBy = patch.DisputeRaisedBy
	}
	if patch.DisputeReason != "" {
		tx.DisputeReason = patch.DisputeReason
	}
	if patch.ResolutionNote != "" {
		tx.ResolutionNote = patch.ResolutionNote
	}
	if patch.FundedAt != nil {
		tx.FundedAt = patch.FundedAt
	}
	if patch.ShippedAt != nil {
		tx.ShippedAt = patch.ShippedAt
	}
	if patch.DeliveredAt != nil {
		tx.DeliveredAt = patch.DeliveredAt
	}
	if patch.DisputedAt != nil {
		tx.DisputedAt = patch.DisputedAt
	}
	if patch.ResolvedAt != nil {
		tx.ResolvedAt = patch.ResolvedAt
	}
	if patch.ReleasedAt != nil {
		tx.ReleasedAt = patch.ReleasedAt
	}
	return true, nil
}

func (r *memoryRepo) ListByUser(_ context.Context, userID string, status domain.Status, limit, offset int) ([]*domain.EscrowTransaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.EscrowTransaction
	for _, tx := range r.txs {
		if tx.BuyerID != userID && tx.SellerID != userID {
			continue
		}
		if status != "" && tx.Status != status {
			continue
		}
		cp := *tx
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepo) FindDeliveredBefore(_ context.Context, cutoff time.Time, limit int) ([]*domain.EscrowTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.EscrowTransaction
	for _, tx := range r.txs {
		if tx.Status == domain.StatusDelivered && tx.DeliveredAt != nil && tx.DeliveredAt.Before(cutoff) {
			cp := *tx
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryRepo) SaveLedgerEntries(_ context.Context, entries []*domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *memoryRepo) ListLedgerEntries(_ context.Context, transactionID string) ([]*domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.LedgerEntry
	for _, e := range r.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if r.failTx != nil {
		return r.failTx
	}
	return fn(ctx)
}

// recordingPublisher 记录发布过的事件
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
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
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

// stubGateway 可注入失败的支付网关
type stubGateway struct {
	mu         sync.Mutex
	chargeErr  error
	refundErr  error
	charges    int
	refunds    int
	refundAmts []decimal.Decimal
}

func (g *stubGateway) Charge(_ context.Context, _ decimal.Decimal, _ string, reference string) (*domain.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	g.charges++
	return &domain.Receipt{Reference: "pay-" + reference, Provider: "stub"}, nil
}

func (g *stubGateway) Refund(_ context.Context, _ string, amount decimal.Decimal) (*domain.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds++
	g.refundAmts = append(g.refundAmts, amount)
	return &domain.Receipt{Reference: "refund", Provider: "stub"}, nil
}

// recordingNotifier 记录通知投递
type recordingNotifier struct {
	mu    sync.Mutex
	sends []string
}

func (n *recordingNotifier) Notify(_ context.Context, userID, eventType string, _ map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, userID+":"+eventType)
}

var errGatewayDown = errors.New("gateway unavailable")
