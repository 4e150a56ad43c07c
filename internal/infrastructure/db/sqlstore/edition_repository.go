package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

// EditionRepository implements ports.EditionRepository.
type EditionRepository struct {
	db *gorm.DB
}

func NewEditionRepository(db *gorm.DB) *EditionRepository {
	return &EditionRepository{db: db}
}

// Save inserts the edition or overwrites number, status, content and
// publishedAt of an existing one.
func (r *EditionRepository) Save(ctx context.Context, edition *domain.Edition) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing editionModel
		err := tx.Select("id", "created_at").First(&existing, "id = ?", edition.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := &editionModel{
				ID:            edition.ID,
				EditionNumber: edition.EditionNumber,
				Status:        string(edition.Status),
				Content:       datatypes.NewJSONType(edition.Content),
				PublishedAt:   edition.PublishedAt,
			}
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("insert edition: %w", err)
			}
			edition.CreatedAt = row.CreatedAt
			return nil
		case err != nil:
			return fmt.Errorf("load edition: %w", err)
		}

		err = tx.Model(&editionModel{}).Where("id = ?", edition.ID).Updates(map[string]any{
			"edition_number": edition.EditionNumber,
			"status":         string(edition.Status),
			"content":        datatypes.NewJSONType(edition.Content),
			"published_at":   edition.PublishedAt,
		}).Error
		if err != nil {
			return fmt.Errorf("update edition: %w", err)
		}
		edition.CreatedAt = existing.CreatedAt
		return nil
	})
}

func (r *EditionRepository) FindByID(ctx context.Context, id string) (*domain.Edition, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var row editionModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEditionNotFound
		}
		return nil, err
	}
	return toDomainEdition(&row), nil
}

func (r *EditionRepository) List(ctx context.Context) ([]domain.Edition, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows []editionModel
	if err := r.db.WithContext(ctx).Order("edition_number DESC, created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Edition, 0, len(rows))
	for i := range rows {
		out = append(out, *toDomainEdition(&rows[i]))
	}
	return out, nil
}

func (r *EditionRepository) FindPublished(ctx context.Context) (*domain.Edition, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var row editionModel
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.EditionPublished).
		Order("published_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoPublishedEdition
		}
		return nil, err
	}
	return toDomainEdition(&row), nil
}

func (r *EditionRepository) Publish(ctx context.Context, id string, at time.Time) (*domain.Edition, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var published editionModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&published, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrEditionNotFound
			}
			return fmt.Errorf("load edition: %w", err)
		}

		err := tx.Model(&editionModel{}).
			Where("id <> ?", id).
			Updates(map[string]any{"status": string(domain.EditionDraft), "published_at": nil}).Error
		if err != nil {
			return fmt.Errorf("demote editions: %w", err)
		}

		err = tx.Model(&editionModel{}).
			Where("id = ?", id).
			Updates(map[string]any{"status": string(domain.EditionPublished), "published_at": at}).Error
		if err != nil {
			return fmt.Errorf("publish edition: %w", err)
		}

		published.Status = string(domain.EditionPublished)
		published.PublishedAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDomainEdition(&published), nil
}

func (r *EditionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Delete(&editionModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete edition: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrEditionNotFound
	}
	return nil
}

func (r *EditionRepository) MaxEditionNumber(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	err := r.db.WithContext(ctx).
		Model(&editionModel{}).
		Select("COALESCE(MAX(edition_number), 0)").
		Scan(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}
