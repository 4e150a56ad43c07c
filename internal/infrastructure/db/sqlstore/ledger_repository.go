package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

const defaultListLimit = 50

// LedgerRepository implements ports.LedgerRepository.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Apply(ctx context.Context, entry domain.LedgerEntry) (*ports.LedgerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result *ports.LedgerResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = applyLedgerEntry(tx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *LedgerRepository) CreatePending(ctx context.Context, entry domain.LedgerEntry) (*domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := domain.RequirePositive("amount", entry.Amount); err != nil {
		return nil, err
	}
	row := &transactionModel{
		UserID:     entry.UserID,
		Type:        string(entry.Type),
		AmountCents: toCents(entry.Amount),
		Status:      string(domain.TxPending),
		ExternalID: optionalString(entry.ExternalID),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, translateInsert(err)
	}
	t := toDomainTransaction(row)
	return &t, nil
}

func (r *LedgerRepository) CompleteWithdrawal(ctx context.Context, txID uint) (*ports.LedgerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result *ports.LedgerResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row transactionModel
		if err := tx.First(&row, txID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTransactionNotFound
			}
			return fmt.Errorf("load transaction: %w", err)
		}
		if row.Status != string(domain.TxPending) {
			return domain.ErrTransactionSettled
		}

		balance, err := adjustBalance(tx, row.UserID, domain.TransactionType(row.Type), row.AmountCents)
		if err != nil {
			return err
		}

		res := tx.Model(&transactionModel{}).
			Where("id = ? AND status = ?", txID, domain.TxPending).
			Update("status", domain.TxCompleted)
		if res.Error != nil {
			return fmt.Errorf("complete transaction: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrTransactionSettled
		}

		row.Status = string(domain.TxCompleted)
		result = &ports.LedgerResult{Transaction: toDomainTransaction(&row), Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *LedgerRepository) MarkFailed(ctx context.Context, txID uint, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&transactionModel{}).
		Where("id = ? AND status = ?", txID, domain.TxPending).
		Updates(map[string]any{"status": domain.TxFailed, "failure_reason": truncate(reason, 255)})
	if res.Error != nil {
		return fmt.Errorf("mark transaction failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrTransactionSettled
	}
	return nil
}

func (r *LedgerRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var row transactionModel
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	t := toDomainTransaction(&row)
	return &t, nil
}

func (r *LedgerRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultListLimit
	}
	var rows []transactionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, toDomainTransaction(&rows[i]))
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers shared by repositories that move money inside their own transaction.
// ---------------------------------------------------------------------------

// applyLedgerEntry adjusts the balance and inserts the matching transaction.
// It must run inside tx.
func applyLedgerEntry(tx *gorm.DB, entry domain.LedgerEntry) (*ports.LedgerResult, error) {
	if err := domain.RequirePositive("amount", entry.Amount); err != nil {
		return nil, err
	}

	balance, err := adjustBalance(tx, entry.UserID, entry.Type, toCents(entry.Amount))
	if err != nil {
		return nil, err
	}

	status := entry.Status
	if status == "" {
		status = domain.TxCompleted
	}
	row := &transactionModel{
		UserID:     entry.UserID,
		Type:        string(entry.Type),
		AmountCents: toCents(entry.Amount),
		Status:      string(status),
		ExternalID: optionalString(entry.ExternalID),
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, translateInsert(err)
	}

	return &ports.LedgerResult{Transaction: toDomainTransaction(row), Balance: balance}, nil
}

// adjustBalance credits or debits the user and returns the new balance.
// Debits only match rows whose balance covers the amount.
func adjustBalance(tx *gorm.DB, userID uint, typ domain.TransactionType, amount cents) (decimal.Decimal, error) {
	q := tx.Model(&userModel{}).Where("id = ?", userID)
	var res *gorm.DB
	if typ.IsCredit() {
		res = q.Update("balance_cents", gorm.Expr("balance_cents + ?", int64(amount)))
	} else {
		res = q.Where("balance_cents >= ?", int64(amount)).
			Update("balance_cents", gorm.Expr("balance_cents - ?", int64(amount)))
	}
	if res.Error != nil {
		return decimal.Zero, fmt.Errorf("adjust balance: %w", res.Error)
	}

	var user userModel
	if err := tx.Select("id", "balance_cents").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, domain.ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("reload balance: %w", err)
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, domain.ErrInsufficientFunds
	}
	return user.BalanceCents.Decimal(), nil
}

func translateInsert(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrDuplicateReference
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domain.ErrUserNotFound
	}
	return fmt.Errorf("insert transaction: %w", err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
