package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

const maxDescriptionLength = 1000

type entryService struct {
	users    ports.UserRepository
	entries  ports.EntryRepository
	settings ports.SettingsRepository
	images   ports.ImageStore
	audit    ports.AuditSink
	log      zerolog.Logger
}

// NewEntryService returns an EntryService implementation.
func NewEntryService(
	users ports.UserRepository,
	entries ports.EntryRepository,
	settings ports.SettingsRepository,
	images ports.ImageStore,
	audit ports.AuditSink,
	log zerolog.Logger,
) ports.EntryService {
	return &entryService{
		users:    users,
		entries:  entries,
		settings: settings,
		images:   images,
		audit:    audit,
		log:      log,
	}
}

// Submit charges the entry fee and stores a new entry for the current week.
func (s *entryService) Submit(ctx context.Context, in ports.SubmitEntryInput) (*domain.Entry, error) {
	// 1. Validate input.
	if in.Image == nil {
		return nil, domain.Invalid("image", "is required")
	}
	description := strings.TrimSpace(in.Description)
	if len(description) > maxDescriptionLength {
		return nil, domain.Invalid("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLength))
	}

	// 2. Check the user can afford the current fee.
	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("submit entry: %w", err)
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("submit entry: load settings: %w", err)
	}
	if user.Balance.LessThan(cfg.EntryFee) {
		return nil, &domain.InsufficientFundsError{Required: cfg.EntryFee}
	}

	// 3. Store the image before touching the ledger.
	imageURL, err := s.images.Save(ctx, in.ImageName, in.Image)
	if err != nil {
		return nil, fmt.Errorf("submit entry: %w", err)
	}

	// 4. Debit the fee and create the entry atomically.
	entry := &domain.Entry{
		UserID:        user.ID,
		OwnerUsername: user.Username,
		ImageURL:      imageURL,
		Description:   description,
		WeekNumber:    cfg.CurrentWeek,
		FeePaid:       cfg.EntryFee,
	}
	res, err := s.entries.CreateWithFee(ctx, entry)
	if err != nil {
		s.removeImage(ctx, imageURL)
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return nil, &domain.InsufficientFundsError{Required: cfg.EntryFee}
		}
		return nil, fmt.Errorf("submit entry: %w", err)
	}
	if res != nil {
		publishTransaction(s.audit, res.Transaction, fmt.Sprintf("entry %d", entry.ID))
	}

	s.log.Info().
		Uint("entry_id", entry.ID).
		Uint("user_id", user.ID).
		Int("week", entry.WeekNumber).
		Str("fee", entry.FeePaid.String()).
		Msg("entry submitted")

	return entry, nil
}

// Cancel deletes an entry owned by userID and refunds the fee it was charged.
func (s *entryService) Cancel(ctx context.Context, entryID, userID uint) (*ports.CancelEntryResult, error) {
	existing, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("cancel entry: %w", err)
	}
	if existing.UserID != userID {
		return nil, fmt.Errorf("cancel entry: %w: entry belongs to another user", domain.ErrUnauthorized)
	}

	deleted, res, err := s.entries.DeleteWithRefund(ctx, entryID, userID)
	if err != nil {
		return nil, fmt.Errorf("cancel entry: %w", err)
	}

	s.removeImage(ctx, deleted.ImageURL)

	out := &ports.CancelEntryResult{EntryID: deleted.ID, Refunded: deleted.FeePaid}
	if res != nil {
		out.Balance = res.Balance
		publishTransaction(s.audit, res.Transaction, fmt.Sprintf("entry %d", deleted.ID))
	} else if user, err := s.users.FindByID(ctx, userID); err == nil {
		out.Balance = user.Balance
	}

	s.log.Info().
		Uint("entry_id", deleted.ID).
		Uint("user_id", userID).
		Str("refunded", deleted.FeePaid.String()).
		Msg("entry cancelled")

	return out, nil
}

func (s *entryService) List(ctx context.Context, week *int) (int, []domain.Entry, error) {
	var w int
	if week != nil {
		if *week < 1 {
			return 0, nil, domain.Invalid("week", "must be at least 1")
		}
		w = *week
	} else {
		cfg, err := s.settings.Get(ctx)
		if err != nil {
			return 0, nil, fmt.Errorf("list entries: load settings: %w", err)
		}
		w = cfg.CurrentWeek
	}

	entries, err := s.entries.ListByWeek(ctx, w)
	if err != nil {
		return 0, nil, fmt.Errorf("list entries: %w", err)
	}
	return w, entries, nil
}

func (s *entryService) removeImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.images.Delete(context.WithoutCancel(ctx), url); err != nil {
		s.log.Warn().Err(err).Str("image", url).Msg("failed to remove entry image")
	}
}
