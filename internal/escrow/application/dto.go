package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/marketplace/internal/escrow/domain"
)

type CreateEscrowCommand struct {
	BuyerID   string
	SellerID  string
	ListingID string
	Amount    decimal.Decimal
	Currency  string
}

type FundEscrowCommand struct {
	TransactionID string
	PaymentMethod string
}

type ShipEscrowCommand struct {
	TransactionID string
	TrackingRef   string
}

type OpenDisputeCommand struct {
	TransactionID string
	RaisedBy      string
	Reason        string
}

type ResolveDisputeCommand struct {
	TransactionID string
	Outcome       domain.DisputeOutcome
	Note          string
}

type EscrowDTO struct {
	TransactionID   string     `json:"transaction_id"`
	BuyerID         string     `json:"buyer_id"`
	SellerID        string     `json:"seller_id"`
	ListingID       string     `json:"listing_id"`
	Amount          string     `json:"amount"`
	Currency        string     `json:"currency"`
	CommissionRate  string     `json:"commission_rate"`
	CommissionAmt   string     `json:"commission_amount"`
	NetSellerAmount string     `json:"net_seller_amount"`
	Status          string     `json:"status"`
	TrackingRef     string     `json:"tracking_ref,omitempty"`
	DisputeRaisedBy string     `json:"dispute_raised_by,omitempty"`
	DisputeReason   string     `json:"dispute_reason,omitempty"`
	ResolutionNote  string     `json:"resolution_note,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	FundedAt        *time.Time `json:"funded_at,omitempty"`
	ShippedAt       *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	DisputedAt      *time.Time `json:"disputed_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ReleasedAt      *time.Time `json:"released_at,omitempty"`
}

type LedgerEntryDTO struct {
	EntryID     string    `json:"entry_id"`
	AccountID   string    `json:"account_id"`
	AccountType string    `json:"account_type"`
	Direction   string    `json:"direction"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Memo        string    `json:"memo"`
	CreatedAt   time.Time `json:"created_at"`
}

func toDTO(t *domain.EscrowTransaction) *EscrowDTO {
	return &EscrowDTO{
		TransactionID:   t.TransactionID,
		BuyerID:         t.BuyerID,
		SellerID:        t.SellerID,
		ListingID:       t.ListingID,
		Amount:          t.Amount.String(),
		Currency:        t.Currency,
		CommissionRate:  t.CommissionRate.String(),
		CommissionAmt:   t.CommissionAmt.String(),
		NetSellerAmount: t.NetSellerAmount.String(),
		Status:          string(t.Status),
		TrackingRef:     t.TrackingRef,
		DisputeRaisedBy: t.DisputeRaisedBy,
		DisputeReason:   t.DisputeReason,
		ResolutionNote:  t.ResolutionNote,
		CreatedAt:       t.CreatedAt,
		FundedAt:        t.FundedAt,
		ShippedAt:       t.ShippedAt,
		DeliveredAt:     t.DeliveredAt,
		DisputedAt:      t.DisputedAt,
		ResolvedAt:      t.ResolvedAt,
		ReleasedAt:      t.ReleasedAt,
	}
}

func toLedgerDTO(e *domain.LedgerEntry) *LedgerEntryDTO {
	return &LedgerEntryDTO{
		EntryID:     e.EntryID,
		AccountID:   e.AccountID,
		AccountType: string(e.AccountType),
		Direction:   string(e.Direction),
		Amount:      e.Amount.String(),
		Currency:    e.Currency,
		Memo:        e.Memo,
		CreatedAt:   e.CreatedAt,
	}
}
