package domain

import (
	"context"
	"time"
)

// StatusPatch 条件更新携带的字段补丁。nil 指针字段不更新，
// 时间戳只会由对应迁移设置一次。
type StatusPatch struct {
	Status           Status
	PaymentReference string
	TrackingRef      string
	DisputeRaisedBy  string
	DisputeReason    string
	ResolutionNote   string
	FundedAt         *time.Time
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
	DisputedAt       *time.Time
	ResolvedAt       *time.Time
	ReleasedAt       *time.Time
}

// EscrowRepository 托管交易仓储接口。
// UpdateStatus 是整个引擎的并发正确性基石：compare-and-set，
// 仅当存量状态仍等于 expected 时写入 patch，返回是否命中。
// 两个并发的冲突迁移恰有一个返回 true。
type EscrowRepository interface {
	Save(ctx context.Context, tx *EscrowTransaction) error
	Get(ctx context.Context, transactionID string) (*EscrowTransaction, error)
	UpdateStatus(ctx context.Context, transactionID string, expected Status, patch StatusPatch) (bool, error)
	ListByUser(ctx context.Context, userID string, status Status, limit, offset int) ([]*EscrowTransaction, int64, error)
	FindDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]*EscrowTransaction, error)
	SaveLedgerEntries(ctx context.Context, entries []*LedgerEntry) error
	ListLedgerEntries(ctx context.Context, transactionID string) ([]*LedgerEntry, error)
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}
