package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

// VoteRepository implements ports.VoteRepository. The unique index on
// (voter_id, week_number) decides races the pre-check cannot see.
type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

func (r *VoteRepository) Create(ctx context.Context, vote *domain.Vote) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		err := tx.Model(&voteModel{}).
			Where("voter_id = ? AND week_number = ?", vote.VoterID, vote.WeekNumber).
			Count(&n).Error
		if err != nil {
			return fmt.Errorf("check vote: %w", err)
		}
		if n > 0 {
			return domain.ErrAlreadyVoted
		}

		row := &voteModel{
			VoterID:    vote.VoterID,
			EntryID:    vote.EntryID,
			WeekNumber: vote.WeekNumber,
		}
		if err := tx.Omit("Voter", "Entry").Create(row).Error; err != nil {
			switch {
			case errors.Is(err, gorm.ErrDuplicatedKey):
				return domain.ErrAlreadyVoted
			case errors.Is(err, gorm.ErrForeignKeyViolated):
				return domain.ErrEntryNotFound
			}
			return fmt.Errorf("insert vote: %w", err)
		}

		vote.ID = row.ID
		vote.CreatedAt = row.CreatedAt
		return nil
	})
}
