package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

// DepositDedup abstracts the idempotency store (Redis) for deposit references.
type DepositDedup interface {
	// Claim reserves ref. It returns false when ref was already claimed.
	Claim(ctx context.Context, ref string) (bool, error)
	Release(ctx context.Context, ref string) error
}

// Failure reasons recorded on withdrawals that never completed.
const (
	reasonUnreachable        = "payout_unreachable"
	reasonInsufficientFunds  = "insufficient_funds_after_payout"
	reasonCompletionFailed   = "completion_failed"
	reasonRejectedWithStatus = "rejected with status %d"
)

type walletService struct {
	users    ports.UserRepository
	ledger   ports.LedgerRepository
	settings ports.SettingsRepository
	payout   ports.PayoutGateway
	dedup    DepositDedup
	audit    ports.AuditSink
	log      zerolog.Logger
}

// NewWalletService returns a WalletService implementation.
func NewWalletService(
	users ports.UserRepository,
	ledger ports.LedgerRepository,
	settings ports.SettingsRepository,
	payout ports.PayoutGateway,
	dedup DepositDedup,
	audit ports.AuditSink,
	log zerolog.Logger,
) ports.WalletService {
	return &walletService{
		users:    users,
		ledger:   ledger,
		settings: settings,
		payout:   payout,
		dedup:    dedup,
		audit:    audit,
		log:      log,
	}
}

// Deposit credits a user identified by deposit code. Called by the payment
// provider webhook, authenticated with the shared API key from settings.
func (s *walletService) Deposit(ctx context.Context, in ports.DepositInput) (*ports.DepositResult, error) {
	// 1. Authenticate the caller against the configured key.
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("deposit: load settings: %w", err)
	}
	if cfg.APIKey == "" || in.APIKey == "" ||
		subtle.ConstantTimeCompare([]byte(cfg.APIKey), []byte(in.APIKey)) != 1 {
		return nil, fmt.Errorf("%w: invalid api key", domain.ErrUnauthorized)
	}

	// 2. Validate the payload.
	code := domain.NormalizeDepositCode(in.Code)
	if code == "" {
		return nil, domain.Invalid("code", "is required")
	}
	amount, err := domain.ParseAmount("amount", in.Amount)
	if err != nil {
		return nil, err
	}

	// 3. Resolve the recipient.
	user, err := s.users.FindByFPCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}

	// 4. Idempotency check. Redis failures fall back to the unique index.
	ref := strings.TrimSpace(in.Reference)
	claimed := false
	if ref != "" && s.dedup != nil {
		ok, err := s.dedup.Claim(ctx, ref)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("reference", ref).Msg("dedup claim failed, processing anyway")
		case !ok:
			s.log.Debug().Str("reference", ref).Msg("duplicate deposit skipped")
			return s.duplicateDeposit(ctx, user, ref, amount)
		default:
			claimed = true
		}
	}

	// 5. Credit the balance and log the transaction atomically.
	res, err := s.ledger.Apply(ctx, domain.LedgerEntry{
		UserID:     user.ID,
		Type:       domain.TxDeposit,
		Amount:     amount,
		Status:     domain.TxCompleted,
		ExternalID: ref,
	})
	if errors.Is(err, domain.ErrDuplicateReference) {
		return s.duplicateDeposit(ctx, user, ref, amount)
	}
	if err != nil {
		if claimed {
			if relErr := s.dedup.Release(context.WithoutCancel(ctx), ref); relErr != nil {
				s.log.Warn().Err(relErr).Str("reference", ref).Msg("failed to release dedup key")
			}
		}
		return nil, fmt.Errorf("deposit: %w", err)
	}

	// 6. Audit trail (non-blocking).
	s.publish(res.Transaction, "")

	s.log.Info().
		Uint("user_id", user.ID).
		Str("amount", amount.String()).
		Str("reference", ref).
		Msg("deposit credited")

	return &ports.DepositResult{
		UserID:        user.ID,
		TransactionID: res.Transaction.ID,
		Amount:        amount,
		Balance:       res.Balance,
	}, nil
}

func (s *walletService) duplicateDeposit(ctx context.Context, user *domain.User, ref string, amount decimal.Decimal) (*ports.DepositResult, error) {
	out := &ports.DepositResult{UserID: user.ID, Amount: amount, Balance: user.Balance, Duplicate: true}
	if tx, err := s.ledger.FindByExternalID(ctx, ref); err == nil {
		out.TransactionID = tx.ID
	}
	if fresh, err := s.users.FindByID(ctx, user.ID); err == nil {
		out.Balance = fresh.Balance
	}
	return out, nil
}

// Withdraw sends money to the user's IBAN through the payout provider. The
// balance is debited only after the provider accepts the request.
func (s *walletService) Withdraw(ctx context.Context, in ports.WithdrawInput) (*ports.WithdrawResult, error) {
	// 1. Validate amount against the current balance.
	if err := domain.RequirePositive("amount", in.Amount); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	if in.Amount.GreaterThan(user.Balance) {
		return nil, domain.Invalid("amount", "exceeds available balance")
	}

	// 2. Resolve the destination IBAN. A missing one is forwarded as is and
	// left to the provider.
	iban := domain.NormalizeIBAN(in.IBAN)
	if iban == "" {
		iban = user.IBAN
	} else if err := domain.ValidateIBAN(iban); err != nil {
		return nil, err
	}

	// 3. Load provider settings.
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("withdraw: load settings: %w", err)
	}

	// 4. Record the pending withdrawal before calling out.
	withdrawID := uuid.NewString()
	pending, err := s.ledger.CreatePending(ctx, domain.LedgerEntry{
		UserID:     user.ID,
		Type:       domain.TxWithdraw,
		Amount:     in.Amount,
		Status:     domain.TxPending,
		ExternalID: withdrawID,
	})
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}

	logger := s.log.With().Uint("user_id", user.ID).Uint("tx_id", pending.ID).Str("withdraw_id", withdrawID).Logger()

	// 5. Call the payout provider.
	result, err := s.payout.Send(ctx, cfg.WithdrawURL, ports.PayoutRequest{
		Amount:     in.Amount,
		WithdrawID: withdrawID,
		IBAN:       iban,
		APIKey:     cfg.APIKey,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("payout provider unreachable")
		s.fail(ctx, pending, reasonUnreachable)
		return nil, fmt.Errorf("withdraw: %w", domain.ErrPayoutUnavailable)
	}
	if !result.Accepted {
		reason := result.Reason
		if reason == "" {
			reason = fmt.Sprintf(reasonRejectedWithStatus, result.StatusCode)
		}
		logger.Warn().Int("status", result.StatusCode).Str("reason", reason).Msg("payout rejected")
		s.fail(ctx, pending, reason)
		return nil, &domain.PayoutRejectedError{StatusCode: result.StatusCode, Reason: result.Reason}
	}

	// 6. Debit and complete. The provider already accepted, so a failure
	// here needs manual reconciliation.
	done, err := s.ledger.CompleteWithdrawal(context.WithoutCancel(ctx), pending.ID)
	if err != nil {
		reason := reasonCompletionFailed
		if errors.Is(err, domain.ErrInsufficientFunds) {
			reason = reasonInsufficientFunds
		}
		logger.Error().Err(err).Msg("payout accepted but withdrawal could not be completed")
		s.fail(ctx, pending, reason)
		return nil, fmt.Errorf("withdraw: %w", err)
	}

	s.publish(done.Transaction, "")
	logger.Info().Str("amount", in.Amount.String()).Msg("withdrawal completed")

	return &ports.WithdrawResult{
		TransactionID: done.Transaction.ID,
		WithdrawID:    withdrawID,
		Balance:       done.Balance,
	}, nil
}

func (s *walletService) fail(ctx context.Context, tx *domain.Transaction, reason string) {
	if err := s.ledger.MarkFailed(context.WithoutCancel(ctx), tx.ID, reason); err != nil {
		s.log.Error().Err(err).Uint("tx_id", tx.ID).Msg("failed to mark withdrawal failed")
		return
	}
	failed := *tx
	failed.Status = domain.TxFailed
	s.publish(failed, reason)
}

func (s *walletService) publish(tx domain.Transaction, detail string) {
	publishTransaction(s.audit, tx, detail)
}

func publishTransaction(sink ports.AuditSink, tx domain.Transaction, detail string) {
	if sink == nil {
		return
	}
	sink.Publish(ports.AuditEvent{
		Kind:          string(tx.Type),
		UserID:        tx.UserID,
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Status:        string(tx.Status),
		ExternalID:    tx.ExternalID,
		Detail:        detail,
		OccurredAt:    time.Now().UTC(),
	})
}
