package ports

import (
	"context"
	"io"

	"github.com/shopspring/decimal"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

// AccountService is the inbound port for user accounts.
type AccountService interface {
	Register(ctx context.Context, username string) (*domain.User, error)
	GetUser(ctx context.Context, username string) (*domain.User, error)
	SaveIBAN(ctx context.Context, username, iban string) (*domain.User, error)
	ListTransactions(ctx context.Context, username string, limit int) ([]domain.Transaction, error)
}

// DepositInput is the webhook payload as received. Amount is the raw amount
// text, parsed only once the caller is authenticated.
type DepositInput struct {
	Code      string
	Amount    string
	APIKey    string
	Reference string
}

type DepositResult struct {
	UserID        uint
	TransactionID uint
	Amount        decimal.Decimal
	Balance       decimal.Decimal
	Duplicate     bool
}

type WithdrawInput struct {
	UserID uint
	Amount decimal.Decimal
	IBAN   string
}

type WithdrawResult struct {
	TransactionID uint
	WithdrawID    string
	Balance       decimal.Decimal
}

// WalletService is the inbound port for deposits and withdrawals.
type WalletService interface {
	Deposit(ctx context.Context, in DepositInput) (*DepositResult, error)
	Withdraw(ctx context.Context, in WithdrawInput) (*WithdrawResult, error)
}

type SubmitEntryInput struct {
	UserID      uint
	Description string
	ImageName   string
	Image       io.Reader
}

type CancelEntryResult struct {
	EntryID  uint
	Refunded decimal.Decimal
	Balance  decimal.Decimal
}

// EntryService is the inbound port for contest entries.
type EntryService interface {
	Submit(ctx context.Context, in SubmitEntryInput) (*domain.Entry, error)
	Cancel(ctx context.Context, entryID, userID uint) (*CancelEntryResult, error)
	// List returns the entries of week, or of the current week when week is nil.
	List(ctx context.Context, week *int) (int, []domain.Entry, error)
}

type CastVoteInput struct {
	VoterID    uint
	EntryID    uint
	WeekNumber *int
}

// VoteService is the inbound port for weekly voting.
type VoteService interface {
	Cast(ctx context.Context, in CastVoteInput) (*domain.Vote, error)
}

// EditionService is the inbound port for the magazine CMS.
type EditionService interface {
	List(ctx context.Context) ([]domain.Edition, error)
	GetPublished(ctx context.Context) (*domain.Edition, error)
	Upsert(ctx context.Context, edition domain.Edition) (*domain.Edition, error)
	CreateDraft(ctx context.Context) (*domain.Edition, error)
	Publish(ctx context.Context, id string) (*domain.Edition, error)
	Delete(ctx context.Context, id string) error
}

// PublicSettings is the subset of settings visible without authentication.
type PublicSettings struct {
	EntryFee    decimal.Decimal
	CurrentWeek int
}

// SettingsService is the inbound port for site settings.
type SettingsService interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Update(ctx context.Context, patch domain.SettingsPatch) (*domain.Settings, error)
	Public(ctx context.Context) (*PublicSettings, error)
}

// AdminService is the inbound port for admin sessions and role management.
type AdminService interface {
	VerifyPassword(ctx context.Context, password string) (string, error)
	IssueStaffToken(ctx context.Context, username string) (string, error)
	CurrentRoles(ctx context.Context, username string) ([]domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
	CreateRole(ctx context.Context, role domain.Role) (*domain.Role, error)
	DeleteRole(ctx context.Context, id uint) error
	AssignRole(ctx context.Context, username string, roleID uint) (*domain.User, error)
	RevokeRole(ctx context.Context, username string, roleID uint) (*domain.User, error)
}
