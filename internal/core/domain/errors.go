package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors. Adapters wrap them with context; the HTTP layer maps them
// to status codes with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("access forbidden")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrDepositCodeTaken    = errors.New("deposit code already assigned")
	ErrEntryNotFound       = errors.New("entry not found")
	ErrEditionNotFound     = errors.New("edition not found")
	ErrNoPublishedEdition  = errors.New("no published edition found")
	ErrRoleNotFound        = errors.New("role not found")
	ErrRoleExists          = errors.New("role already exists")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionSettled  = errors.New("transaction is no longer pending")
	ErrDuplicateReference  = errors.New("transaction reference already used")
	ErrInsufficientFunds   = errors.New("insufficient balance")
	ErrAlreadyVoted        = errors.New("you have already voted this week")
	ErrPayoutRejected      = errors.New("payout rejected")
	ErrPayoutUnavailable   = errors.New("could not connect to payout service")
)

// ValidationError reports a malformed or out-of-range input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a *ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientFundsError carries the amount the user was short of.
type InsufficientFundsError struct {
	Required decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance, entry fee is %s", e.Required.StringFixed(2))
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

// PayoutRejectedError is returned when the payout provider answers with a
// non-success status.
type PayoutRejectedError struct {
	StatusCode int
	Reason     string
}

func (e *PayoutRejectedError) Error() string {
	if e.Reason == "" {
		return "withdrawal rejected by payout service"
	}
	return "withdrawal rejected by payout service: " + e.Reason
}

func (e *PayoutRejectedError) Is(target error) bool { return target == ErrPayoutRejected }
