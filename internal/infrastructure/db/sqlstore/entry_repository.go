package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

// EntryRepository implements ports.EntryRepository.
type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// entryRow is the projection used by reads: the entry joined with its owner
// and vote count.
type entryRow struct {
	ID            uint
	UserID        uint
	ImageURL      string
	Description   string
	WeekNumber    int
	FeePaidCents  cents
	CreatedAt     time.Time
	OwnerUsername string
	VotesCount    int64
}

func (r entryRow) toDomain() domain.Entry {
	return domain.Entry{
		ID:            r.ID,
		UserID:        r.UserID,
		OwnerUsername: r.OwnerUsername,
		ImageURL:      r.ImageURL,
		Description:   r.Description,
		WeekNumber:    r.WeekNumber,
		FeePaid:       r.FeePaidCents.Decimal(),
		VotesCount:    r.VotesCount,
		CreatedAt:     r.CreatedAt,
	}
}

func (r *EntryRepository) CreateWithFee(ctx context.Context, entry *domain.Entry) (*ports.LedgerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result *ports.LedgerResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if entry.FeePaid.IsPositive() {
			res, err := applyLedgerEntry(tx, domain.LedgerEntry{
				UserID: entry.UserID,
				Type:   domain.TxEntryFee,
				Amount: entry.FeePaid,
				Status: domain.TxCompleted,
			})
			if err != nil {
				return err
			}
			result = res
		}

		row := &entryModel{
			UserID:       entry.UserID,
			ImageURL:     entry.ImageURL,
			Description:  entry.Description,
			WeekNumber:   entry.WeekNumber,
			FeePaidCents: toCents(entry.FeePaid),
		}
		if err := tx.Omit("User").Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("insert entry: %w", err)
		}
		entry.ID = row.ID
		entry.CreatedAt = row.CreatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *EntryRepository) DeleteWithRefund(ctx context.Context, entryID, ownerID uint) (*domain.Entry, *ports.LedgerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		removed domain.Entry
		result  *ports.LedgerResult
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row entryModel
		if err := tx.First(&row, entryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrEntryNotFound
			}
			return fmt.Errorf("load entry: %w", err)
		}
		if row.UserID != ownerID {
			return fmt.Errorf("%w: entry belongs to another user", domain.ErrUnauthorized)
		}

		if err := tx.Where("entry_id = ?", entryID).Delete(&voteModel{}).Error; err != nil {
			return fmt.Errorf("delete votes: %w", err)
		}
		if err := tx.Delete(&entryModel{}, entryID).Error; err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}

		if row.FeePaidCents > 0 {
			res, err := applyLedgerEntry(tx, domain.LedgerEntry{
				UserID: row.UserID,
				Type:   domain.TxRefund,
				Amount: row.FeePaidCents.Decimal(),
				Status: domain.TxCompleted,
			})
			if err != nil {
				return err
			}
			result = res
		}

		removed = domain.Entry{
			ID:          row.ID,
			UserID:      row.UserID,
			ImageURL:    row.ImageURL,
			Description: row.Description,
			WeekNumber:  row.WeekNumber,
			FeePaid:     row.FeePaidCents.Decimal(),
			CreatedAt:   row.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &removed, result, nil
}

func (r *EntryRepository) FindByID(ctx context.Context, id uint) (*domain.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows []entryRow
	if err := r.projection(ctx).Where("entries.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrEntryNotFound
	}
	e := rows[0].toDomain()
	return &e, nil
}

func (r *EntryRepository) ListByWeek(ctx context.Context, week int) ([]domain.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows []entryRow
	err := r.projection(ctx).
		Where("entries.week_number = ?", week).
		Order("entries.created_at DESC, entries.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *EntryRepository) projection(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("entries").
		Select(`entries.id, entries.user_id, entries.image_url, entries.description,
			entries.week_number, entries.fee_paid_cents, entries.created_at,
			users.username AS owner_username,
			(SELECT COUNT(*) FROM votes WHERE votes.entry_id = entries.id) AS votes_count`).
		Joins("JOIN users ON users.id = entries.user_id")
}
