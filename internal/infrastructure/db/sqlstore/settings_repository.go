package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

// SettingsRepository implements ports.SettingsRepository over the singleton
// row with id = domain.SettingsID.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row, err := loadOrCreateSettings(r.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return toDomainSettings(row), nil
}

func (r *SettingsRepository) Update(ctx context.Context, patch domain.SettingsPatch) (*domain.Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var out *domain.Settings
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadOrCreateSettings(tx)
		if err != nil {
			return err
		}

		next := patch.Apply(*toDomainSettings(row))
		err = tx.Model(&settingsModel{}).Where("id = ?", domain.SettingsID).Updates(map[string]any{
			"entry_fee_cents": toCents(next.EntryFee),
			"api_key":         next.APIKey,
			"withdraw_url":    next.WithdrawURL,
			"current_week":    next.CurrentWeek,
		}).Error
		if err != nil {
			return fmt.Errorf("update settings: %w", err)
		}

		if err := tx.First(row, domain.SettingsID).Error; err != nil {
			return fmt.Errorf("reload settings: %w", err)
		}
		out = toDomainSettings(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// loadOrCreateSettings inserts the default row if absent. Concurrent first
// reads race on the primary key; the loser's insert is a no-op.
func loadOrCreateSettings(db *gorm.DB) (*settingsModel, error) {
	var row settingsModel
	err := db.First(&row, domain.SettingsID).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	defaults := domain.DefaultSettings()
	seed := &settingsModel{
		ID:            domain.SettingsID,
		EntryFeeCents: toCents(defaults.EntryFee),
		APIKey:        defaults.APIKey,
		WithdrawURL:   defaults.WithdrawURL,
		CurrentWeek:   defaults.CurrentWeek,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, fmt.Errorf("create settings: %w", err)
	}

	row = settingsModel{}
	if err := db.First(&row, domain.SettingsID).Error; err != nil {
		return nil, fmt.Errorf("reload settings: %w", err)
	}
	return &row, nil
}
