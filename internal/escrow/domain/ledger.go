package domain

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerDirection 记账方向
type LedgerDirection string

const (
	DirectionCredit LedgerDirection = "credit"
	DirectionDebit  LedgerDirection = "debit"
)

// LedgerAccount 记账主体类型
type LedgerAccount string

const (
	AccountSeller   LedgerAccount = "seller"
	AccountBuyer    LedgerAccount = "buyer"
	AccountPlatform LedgerAccount = "platform"
)

// LedgerEntry 托管资金流水。放款/退款与状态写入同一事务落账，
// 条件更新的胜者恰好产生一组流水，资金动账至多一次。
type LedgerEntry struct {
	gorm.Model
	EntryID       string          `gorm:"column:entry_id;type:varchar(32);uniqueIndex;not null" json:"entry_id"`
	TransactionID string          `gorm:"column:transaction_id;type:varchar(32);index;not null" json:"transaction_id"`
	AccountID     string          `gorm:"column:account_id;type:varchar(32);index;not null" json:"account_id"`
	AccountType   LedgerAccount   `gorm:"column:account_type;type:varchar(16);not null" json:"account_type"`
	Direction     LedgerDirection `gorm:"column:direction;type:varchar(8);not null" json:"direction"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(20,4);not null" json:"amount"`
	Currency      string          `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	Memo          string          `gorm:"column:memo;type:varchar(128)" json:"memo"`
}

// TableName 表名
func (LedgerEntry) TableName() string {
	return "escrow_ledger_entries"
}

// ReleaseEntries 放款流水：卖家净额 + 平台佣金
func (t *EscrowTransaction) ReleaseEntries(entryID func() string) []*LedgerEntry {
	entries := []*LedgerEntry{
		{
			EntryID:       entryID(),
			TransactionID: t.TransactionID,
			AccountID:     t.SellerID,
			AccountType:   AccountSeller,
			Direction:     DirectionCredit,
			Amount:        t.NetSellerAmount,
			Currency:      t.Currency,
			Memo:          "escrow release payout",
		},
	}
	if t.CommissionAmt.IsPositive() {
		entries = append(entries, &LedgerEntry{
			EntryID:       entryID(),
			TransactionID: t.TransactionID,
			AccountID:     "platform",
			AccountType:   AccountPlatform,
			Direction:     DirectionCredit,
			Amount:        t.CommissionAmt,
			Currency:      t.Currency,
			Memo:          "escrow commission",
		})
	}
	return entries
}

// RefundEntries 退款流水：买家全额
func (t *EscrowTransaction) RefundEntries(entryID func() string) []*LedgerEntry {
	return []*LedgerEntry{
		{
			EntryID:       entryID(),
			TransactionID: t.TransactionID,
			AccountID:     t.BuyerID,
			AccountType:   AccountBuyer,
			Direction:     DirectionCredit,
			Amount:        t.Amount,
			Currency:      t.Currency,
			Memo:          "escrow dispute refund",
		},
	}
}
