// Package domain 托管交易的领域模型：状态机、佣金计算与仓储契约
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Status 托管交易状态
type Status string

const (
	StatusCreated        Status = "created"
	StatusFunded         Status = "funded"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusReleased       Status = "released"
	StatusDisputed       Status = "disputed"
	StatusResolvedBuyer  Status = "resolved_buyer"
	StatusResolvedSeller Status = "resolved_seller"
	StatusRefunded       Status = "refunded"
)

// transitions 唯一合法的状态迁移表
var transitions = map[Status][]Status{
	StatusCreated:        {StatusFunded},
	StatusFunded:         {StatusShipped, StatusDisputed},
	StatusShipped:        {StatusDelivered, StatusDisputed},
	StatusDelivered:      {StatusReleased, StatusDisputed},
	StatusDisputed:       {StatusResolvedBuyer, StatusResolvedSeller},
	StatusResolvedBuyer:  {StatusRefunded},
	StatusResolvedSeller: {StatusReleased},
}

// IsTerminal 终态判断；resolved_* 冻结一切业务迁移，只允许支付腿收尾
func (s Status) IsTerminal() bool {
	switch s {
	case StatusReleased, StatusRefunded, StatusResolvedBuyer, StatusResolvedSeller:
		return true
	}
	return false
}

// CanTransition 迁移表查询
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// DisputeOutcome 争议裁决结果
type DisputeOutcome string

const (
	OutcomeBuyer  DisputeOutcome = "buyer"
	OutcomeSeller DisputeOutcome = "seller"
)

// EscrowTransaction 托管交易聚合根。资金字段全部使用 decimal 精确运算，
// commission_amount + net_seller_amount == amount 恒成立。
type EscrowTransaction struct {
	gorm.Model
	TransactionID   string          `gorm:"column:transaction_id;type:varchar(32);uniqueIndex;not null" json:"transaction_id"`
	BuyerID         string          `gorm:"column:buyer_id;type:varchar(32);index;not null" json:"buyer_id"`
	SellerID        string          `gorm:"column:seller_id;type:varchar(32);index;not null" json:"seller_id"`
	ListingID       string          `gorm:"column:listing_id;type:varchar(32);index;not null" json:"listing_id"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(20,4);not null" json:"amount"`
	Currency        string          `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	CommissionRate  decimal.Decimal `gorm:"column:commission_rate;type:decimal(8,6);not null" json:"commission_rate"`
	CommissionAmt   decimal.Decimal `gorm:"column:commission_amount;type:decimal(20,4);not null" json:"commission_amount"`
	NetSellerAmount decimal.Decimal `gorm:"column:net_seller_amount;type:decimal(20,4);not null" json:"net_seller_amount"`
	Status          Status          `gorm:"column:status;type:varchar(20);index;not null;default:'created'" json:"status"`

	PaymentReference string `gorm:"column:payment_reference;type:varchar(64)" json:"payment_reference"`
	TrackingRef      string `gorm:"column:tracking_ref;type:varchar(64)" json:"tracking_ref"`

	DisputeRaisedBy string `gorm:"column:dispute_raised_by;type:varchar(32)" json:"dispute_raised_by,omitempty"`
	DisputeReason   string `gorm:"column:dispute_reason;type:varchar(512)" json:"dispute_reason,omitempty"`
	ResolutionNote  string `gorm:"column:resolution_note;type:varchar(512)" json:"resolution_note,omitempty"`

	FundedAt    *time.Time `gorm:"column:funded_at" json:"funded_at"`
	ShippedAt   *time.Time `gorm:"column:shipped_at" json:"shipped_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at" json:"delivered_at"`
	DisputedAt  *time.Time `gorm:"column:disputed_at" json:"disputed_at"`
	ResolvedAt  *time.Time `gorm:"column:resolved_at" json:"resolved_at"`
	ReleasedAt  *time.Time `gorm:"column:released_at" json:"released_at"`
}

// TableName 表名
func (EscrowTransaction) TableName() string {
	return "escrow_transactions"
}

// minorUnits 货币最小单位小数位；未列出的币种按 2 处理
var minorUnits = map[string]int32{
	"JPY": 0, "KRW": 0, "VND": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// MinorUnit 币种的最小单位小数位
func MinorUnit(currency string) int32 {
	if unit, ok := minorUnits[currency]; ok {
		return unit
	}
	return 2
}

// Commission 四舍五入（half-up）到币种最小单位的佣金。
// 佣金计算是整个生命周期里唯一一次取整。
func Commission(amount, rate decimal.Decimal, currency string) decimal.Decimal {
	// decimal.Round 对正数即 half-up
	return amount.Mul(rate).Round(MinorUnit(currency))
}

// NewEscrowTransaction 创建 created 状态的托管交易。
// 校验 amount > 0、0 <= rate < 1、金额精度不超过币种最小单位。
func NewEscrowTransaction(transactionID, buyerID, sellerID, listingID string, amount decimal.Decimal, currency string, rate decimal.Decimal) (*EscrowTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(MinorUnit(currency))) {
		return nil, ErrInvalidAmount
	}

	commission := Commission(amount, rate, currency)
	return &EscrowTransaction{
		TransactionID:   transactionID,
		BuyerID:         buyerID,
		SellerID:        sellerID,
		ListingID:       listingID,
		Amount:          amount,
		Currency:        currency,
		CommissionRate:  rate,
		CommissionAmt:   commission,
		NetSellerAmount: amount.Sub(commission),
		Status:          StatusCreated,
	}, nil
}

// guard 校验迁移合法性，终态优先报 AlreadyTerminal
func (t *EscrowTransaction) guard(to Status) error {
	if t.Status.IsTerminal() {
		return &AlreadyTerminalError{Current: t.Status, Attempted: to}
	}
	if !t.Status.CanTransition(to) {
		return &InvalidTransitionError{Current: t.Status, Attempted: to}
	}
	return nil
}

// Fund 买家付款入托管，仅允许 created -> funded
func (t *EscrowTransaction) Fund(paymentReference string, now time.Time) error {
	if err := t.guard(StatusFunded); err != nil {
		return err
	}
	t.Status = StatusFunded
	t.PaymentReference = paymentReference
	t.FundedAt = &now
	return nil
}

// MarkShipped 卖家发货，仅允许 funded -> shipped
func (t *EscrowTransaction) MarkShipped(trackingRef string, now time.Time) error {
	if err := t.guard(StatusShipped); err != nil {
		return err
	}
	t.Status = StatusShipped
	t.TrackingRef = trackingRef
	t.ShippedAt = &now
	return nil
}

// MarkDelivered 买家确认收货，仅允许 shipped -> delivered
func (t *EscrowTransaction) MarkDelivered(now time.Time) error {
	if err := t.guard(StatusDelivered); err != nil {
		return err
	}
	t.Status = StatusDelivered
	t.DeliveredAt = &now
	return nil
}

// Release 放款给卖家，仅允许 delivered -> released
// （争议路径走 Resolve + CompleteResolution）
func (t *EscrowTransaction) Release(now time.Time) error {
	if err := t.guard(StatusReleased); err != nil {
		return err
	}
	t.Status = StatusReleased
	t.ReleasedAt = &now
	return nil
}

// OpenDispute 开启争议，允许 funded|shipped|delivered -> disputed；
// 此后冻结一切非争议迁移
func (t *EscrowTransaction) OpenDispute(raisedBy, reason string, now time.Time) error {
	if err := t.guard(StatusDisputed); err != nil {
		return err
	}
	t.Status = StatusDisputed
	t.DisputeRaisedBy = raisedBy
	t.DisputeReason = reason
	t.DisputedAt = &now
	return nil
}

// Resolve 裁决争议，disputed -> resolved_buyer | resolved_seller
func (t *EscrowTransaction) Resolve(outcome DisputeOutcome, note string, now time.Time) error {
	var target Status
	switch outcome {
	case OutcomeBuyer:
		target = StatusResolvedBuyer
	case OutcomeSeller:
		target = StatusResolvedSeller
	default:
		return ErrInvalidDisputeOutcome
	}
	if err := t.guard(target); err != nil {
		return err
	}
	t.Status = target
	t.ResolutionNote = note
	t.ResolvedAt = &now
	return nil
}

// CompleteResolution 裁决后的支付腿收尾：
// resolved_buyer -> refunded（退款），resolved_seller -> released（放款）。
// 是唯一允许从 resolved_* 出发的迁移，不经过终态守卫。
func (t *EscrowTransaction) CompleteResolution(now time.Time) error {
	switch t.Status {
	case StatusResolvedBuyer:
		t.Status = StatusRefunded
	case StatusResolvedSeller:
		t.Status = StatusReleased
		t.ReleasedAt = &now
	default:
		return &InvalidTransitionError{Current: t.Status, Attempted: StatusRefunded}
	}
	return nil
}
