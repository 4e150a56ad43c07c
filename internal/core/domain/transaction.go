package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxDeposit  TransactionType = "deposit"
	TxWithdraw TransactionType = "withdraw"
	TxEntryFee TransactionType = "entry_fee"
	TxRefund   TransactionType = "refund"
)

// IsCredit reports whether the type increases the user's balance.
func (t TransactionType) IsCredit() bool {
	return t == TxDeposit || t == TxRefund
}

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// Transaction is one ledger line. Amount is always positive; the direction
// follows from Type.
type Transaction struct {
	ID            uint
	UserID        uint
	Type          TransactionType
	Amount        decimal.Decimal
	Status        TransactionStatus
	ExternalID    string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LedgerEntry describes a balance change to be applied atomically together
// with its transaction record.
type LedgerEntry struct {
	UserID     uint
	Type       TransactionType
	Amount     decimal.Decimal
	Status     TransactionStatus
	ExternalID string
}

// MoneyPlaces is the number of decimal places a money amount may carry.
const MoneyPlaces = 2

// RequirePositive validates a monetary amount.
func RequirePositive(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Invalid(field, "must be greater than 0")
	}
	return requireCents(field, amount)
}

// ParseAmount parses a positive money amount from its text form.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, Invalid(field, "must be a number")
	}
	if err := RequirePositive(field, amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func requireCents(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(MoneyPlaces)) {
		return Invalid(field, "must have at most 2 decimal places")
	}
	return nil
}
