package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

type settingsService struct {
	repo ports.SettingsRepository
	log  zerolog.Logger
}

// NewSettingsService returns a SettingsService implementation.
func NewSettingsService(repo ports.SettingsRepository, log zerolog.Logger) ports.SettingsService {
	return &settingsService{repo: repo, log: log}
}

func (s *settingsService) Get(ctx context.Context) (*domain.Settings, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return cfg, nil
}

// Update applies the fields present in patch.
func (s *settingsService) Update(ctx context.Context, patch domain.SettingsPatch) (*domain.Settings, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.Get(ctx)
	}

	cfg, err := s.repo.Update(ctx, patch)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	s.log.Info().
		Str("entry_fee", cfg.EntryFee.String()).
		Int("current_week", cfg.CurrentWeek).
		Bool("api_key_set", cfg.APIKey != "").
		Bool("withdraw_url_set", cfg.WithdrawURL != "").
		Msg("settings updated")

	return cfg, nil
}

func (s *settingsService) Public(ctx context.Context) (*ports.PublicSettings, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &ports.PublicSettings{EntryFee: cfg.EntryFee, CurrentWeek: cfg.CurrentWeek}, nil
}
