package ports

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// PayoutRequest is the body sent to the external payout endpoint.
type PayoutRequest struct {
	Amount     decimal.Decimal
	WithdrawID string
	IBAN       string
	APIKey     string
}

// PayoutResult describes a payout call that reached the provider.
type PayoutResult struct {
	Accepted   bool
	StatusCode int
	Reason     string
}

// PayoutGateway sends withdrawals to the payout provider. A non-nil error
// means the provider could not be reached (including timeouts).
type PayoutGateway interface {
	Send(ctx context.Context, endpoint string, req PayoutRequest) (*PayoutResult, error)
}

// ImageStore persists uploaded entry images and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// AuditEvent is an append-only record of a ledger movement.
type AuditEvent struct {
	Kind          string
	UserID        uint
	TransactionID uint
	Amount        decimal.Decimal
	Status        string
	ExternalID    string
	Detail        string
	OccurredAt    time.Time
}

// AuditSink accepts audit events without blocking the caller.
type AuditSink interface {
	Publish(event AuditEvent)
}

// AuditRepository stores audit events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event AuditEvent) error
}
