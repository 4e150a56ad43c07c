package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

// LedgerResult is the outcome of an atomic balance change.
type LedgerResult struct {
	Transaction domain.Transaction
	Balance     decimal.Decimal
}

// UserRepository is the outbound port for user persistence.
type UserRepository interface {
	// Create persists a new user. It returns domain.ErrUserExists when the
	// username is taken and domain.ErrDepositCodeTaken on a code collision.
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByFPCode(ctx context.Context, code string) (*domain.User, error)
	UpdateIBAN(ctx context.Context, userID uint, iban string) error
	AddRole(ctx context.Context, userID, roleID uint) error
	RemoveRole(ctx context.Context, userID, roleID uint) error
}

// RoleRepository is the outbound port for role persistence.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	FindByID(ctx context.Context, id uint) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
	Delete(ctx context.Context, id uint) error
}

// LedgerRepository applies balance changes together with their transaction
// records. Every method is a single store transaction.
type LedgerRepository interface {
	// Apply adjusts the balance and inserts the transaction. Debits fail with
	// domain.ErrInsufficientFunds instead of going negative.
	Apply(ctx context.Context, entry domain.LedgerEntry) (*LedgerResult, error)
	// CreatePending records a transaction without touching the balance.
	CreatePending(ctx context.Context, entry domain.LedgerEntry) (*domain.Transaction, error)
	// CompleteWithdrawal debits the pending withdrawal amount and marks it completed.
	CompleteWithdrawal(ctx context.Context, txID uint) (*LedgerResult, error)
	// MarkFailed moves a pending transaction to failed.
	MarkFailed(ctx context.Context, txID uint, reason string) error
	FindByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]domain.Transaction, error)
}

// EntryRepository is the outbound port for contest entries.
type EntryRepository interface {
	// CreateWithFee debits entry.FeePaid, logs an entry_fee transaction and
	// inserts the entry in one store transaction.
	CreateWithFee(ctx context.Context, entry *domain.Entry) (*LedgerResult, error)
	// DeleteWithRefund removes the entry and its votes and refunds FeePaid to
	// ownerID in one store transaction.
	DeleteWithRefund(ctx context.Context, entryID, ownerID uint) (*domain.Entry, *LedgerResult, error)
	FindByID(ctx context.Context, id uint) (*domain.Entry, error)
	ListByWeek(ctx context.Context, week int) ([]domain.Entry, error)
}

// VoteRepository is the outbound port for votes.
type VoteRepository interface {
	// Create inserts the vote unless the voter already voted that week, in
	// which case domain.ErrAlreadyVoted is returned.
	Create(ctx context.Context, vote *domain.Vote) error
}

// EditionRepository is the outbound port for magazine editions.
type EditionRepository interface {
	Save(ctx context.Context, edition *domain.Edition) error
	FindByID(ctx context.Context, id string) (*domain.Edition, error)
	List(ctx context.Context) ([]domain.Edition, error)
	FindPublished(ctx context.Context) (*domain.Edition, error)
	// Publish demotes every other edition and publishes id in one store transaction.
	Publish(ctx context.Context, id string, at time.Time) (*domain.Edition, error)
	Delete(ctx context.Context, id string) error
	MaxEditionNumber(ctx context.Context) (int, error)
}

// SettingsRepository is the outbound port for the settings singleton.
type SettingsRepository interface {
	// Get returns the settings row, creating it with defaults when missing.
	Get(ctx context.Context) (*domain.Settings, error)
	Update(ctx context.Context, patch domain.SettingsPatch) (*domain.Settings, error)
}
