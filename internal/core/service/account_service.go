package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

const maxCodeAttempts = 10

// AccountService implements ports.AccountService.
type AccountService struct {
	users   ports.UserRepository
	ledger  ports.LedgerRepository
	newCode func() (string, error)
	log     zerolog.Logger
}

func NewAccountService(users ports.UserRepository, ledger ports.LedgerRepository, log zerolog.Logger) *AccountService {
	return &AccountService{users: users, ledger: ledger, newCode: generateDepositCode, log: log}
}

// Register creates a user with a fresh deposit code.
func (s *AccountService) Register(ctx context.Context, username string) (*domain.User, error) {
	username = domain.NormalizeUsername(username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("register: generate code: %w", err)
		}

		user := &domain.User{Username: username, FPCode: code, Balance: decimal.Zero, Roles: []domain.Role{}}
		err = s.users.Create(ctx, user)
		switch {
		case err == nil:
			s.log.Info().Str("username", username).Uint("user_id", user.ID).Msg("user registered")
			return user, nil
		case errors.Is(err, domain.ErrDepositCodeTaken):
			s.log.Debug().Int("attempt", attempt).Msg("deposit code collision, retrying")
			continue
		default:
			return nil, fmt.Errorf("register: %w", err)
		}
	}
	return nil, fmt.Errorf("register: no free deposit code after %d attempts", maxCodeAttempts)
}

func (s *AccountService) GetUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, domain.NormalizeUsername(username))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// SaveIBAN validates and stores the payout IBAN used by withdrawals.
func (s *AccountService) SaveIBAN(ctx context.Context, username, iban string) (*domain.User, error) {
	iban = domain.NormalizeIBAN(iban)
	if err := domain.ValidateIBAN(iban); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateIBAN(ctx, user.ID, iban); err != nil {
		return nil, fmt.Errorf("save iban: %w", err)
	}
	user.IBAN = iban
	return user, nil
}

func (s *AccountService) ListTransactions(ctx context.Context, username string, limit int) ([]domain.Transaction, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	txs, err := s.ledger.ListByUser(ctx, user.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// generateDepositCode returns a uniformly random code of DepositCodeLength digits.
func generateDepositCode() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(domain.DepositCodeLength), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", domain.DepositCodeLength, n.Int64()), nil
}
