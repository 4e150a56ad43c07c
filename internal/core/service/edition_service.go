package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

type editionService struct {
	repo ports.EditionRepository
	now  func() time.Time
	log  zerolog.Logger
}

// NewEditionService returns an EditionService implementation.
func NewEditionService(repo ports.EditionRepository, log zerolog.Logger) ports.EditionService {
	return &editionService{repo: repo, now: func() time.Time { return time.Now().UTC() }, log: log}
}

func (s *editionService) List(ctx context.Context) ([]domain.Edition, error) {
	editions, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list editions: %w", err)
	}
	return editions, nil
}

func (s *editionService) GetPublished(ctx context.Context) (*domain.Edition, error) {
	ed, err := s.repo.FindPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("get published edition: %w", err)
	}
	return ed, nil
}

// Upsert creates or overwrites an edition without touching the others. It
// never publishes: promoting to published goes through Publish.
func (s *editionService) Upsert(ctx context.Context, in domain.Edition) (*domain.Edition, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.Status == "" {
		in.Status = domain.EditionDraft
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var existing *domain.Edition
	if in.ID == "" {
		in.ID = uuid.NewString()
	} else {
		found, err := s.repo.FindByID(ctx, in.ID)
		switch {
		case err == nil:
			existing = found
		case errors.Is(err, domain.ErrEditionNotFound):
		default:
			return nil, fmt.Errorf("upsert edition: %w", err)
		}
	}

	switch {
	case in.Status == domain.EditionPublished && (existing == nil || existing.Status != domain.EditionPublished):
		return nil, domain.Invalid("status", "cannot be set to published here, use publish")
	case in.Status == domain.EditionPublished:
		in.PublishedAt = existing.PublishedAt
	default:
		in.PublishedAt = nil
	}
	if existing != nil {
		in.CreatedAt = existing.CreatedAt
	} else {
		in.CreatedAt = s.now()
	}

	if err := s.repo.Save(ctx, &in); err != nil {
		return nil, fmt.Errorf("upsert edition: %w", err)
	}

	s.log.Info().Str("edition_id", in.ID).Int("number", in.EditionNumber).Bool("created", existing == nil).Msg("edition saved")
	return &in, nil
}

// CreateDraft stores an empty draft numbered after the latest edition.
func (s *editionService) CreateDraft(ctx context.Context) (*domain.Edition, error) {
	n, err := s.repo.MaxEditionNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	ed := &domain.Edition{
		ID:            uuid.NewString(),
		EditionNumber: n + 1,
		Status:        domain.EditionDraft,
		Content:       domain.NewDraftContent(n + 1),
		CreatedAt:     s.now(),
	}
	if err := s.repo.Save(ctx, ed); err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}

	s.log.Info().Str("edition_id", ed.ID).Int("number", ed.EditionNumber).Msg("draft created")
	return ed, nil
}

// Publish makes id the only published edition.
func (s *editionService) Publish(ctx context.Context, id string) (*domain.Edition, error) {
	ed, err := s.repo.Publish(ctx, strings.TrimSpace(id), s.now())
	if err != nil {
		return nil, fmt.Errorf("publish edition: %w", err)
	}

	s.log.Info().Str("edition_id", ed.ID).Int("number", ed.EditionNumber).Msg("edition published")
	return ed, nil
}

func (s *editionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return fmt.Errorf("delete edition: %w", err)
	}
	s.log.Info().Str("edition_id", id).Msg("edition deleted")
	return nil
}
