package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EscrowCreatedEventType   = "escrow.transaction.created"
	EscrowFundedEventType    = "escrow.transaction.funded"
	EscrowShippedEventType   = "escrow.transaction.shipped"
	EscrowDeliveredEventType = "escrow.transaction.delivered"
	EscrowReleasedEventType  = "escrow.transaction.released"
	EscrowDisputedEventType  = "escrow.transaction.disputed"
	EscrowResolvedEventType  = "escrow.transaction.resolved"
	EscrowRefundedEventType  = "escrow.transaction.refunded"
)

// EscrowCreatedEvent 交易创建事件
type EscrowCreatedEvent struct {
	TransactionID string          `json:"transaction_id"`
	BuyerID       string          `json:"buyer_id"`
	SellerID      string          `json:"seller_id"`
	ListingID     string          `json:"listing_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	OccurredOn    time.Time       `json:"occurred_on"`
}

// EscrowStatusChangedEvent 状态迁移事件，负载覆盖全部迁移类型
type EscrowStatusChangedEvent struct {
	TransactionID string    `json:"transaction_id"`
	BuyerID       string    `json:"buyer_id"`
	SellerID      string    `json:"seller_id"`
	OldStatus     Status    `json:"old_status"`
	NewStatus     Status    `json:"new_status"`
	OccurredOn    time.Time `json:"occurred_on"`
}

// EscrowReleasedEvent 放款事件，含结算金额
type EscrowReleasedEvent struct {
	TransactionID   string          `json:"transaction_id"`
	SellerID        string          `json:"seller_id"`
	NetSellerAmount decimal.Decimal `json:"net_seller_amount"`
	CommissionAmt   decimal.Decimal `json:"commission_amount"`
	Currency        string          `json:"currency"`
	OccurredOn      time.Time       `json:"occurred_on"`
}

// EscrowDisputedEvent 争议事件
type EscrowDisputedEvent struct {
	TransactionID string    `json:"transaction_id"`
	RaisedBy      string    `json:"raised_by"`
	Reason        string    `json:"reason"`
	OccurredOn    time.Time `json:"occurred_on"`
}

// EventPublisher 领域事件发布接口，Outbox 实现保证与状态写入同事务
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
	PublishInTx(ctx context.Context, tx any, topic string, key string, event any) error
}
