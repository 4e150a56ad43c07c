package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

type voteService struct {
	users    ports.UserRepository
	entries  ports.EntryRepository
	votes    ports.VoteRepository
	settings ports.SettingsRepository
	log      zerolog.Logger
}

// NewVoteService returns a VoteService implementation.
func NewVoteService(
	users ports.UserRepository,
	entries ports.EntryRepository,
	votes ports.VoteRepository,
	settings ports.SettingsRepository,
	log zerolog.Logger,
) ports.VoteService {
	return &voteService{users: users, entries: entries, votes: votes, settings: settings, log: log}
}

// Cast records one vote for the voter in the given week, defaulting to the
// current contest week.
func (s *voteService) Cast(ctx context.Context, in ports.CastVoteInput) (*domain.Vote, error) {
	// 1. Resolve the week.
	var week int
	if in.WeekNumber != nil {
		if *in.WeekNumber < 1 {
			return nil, domain.Invalid("weekNumber", "must be at least 1")
		}
		week = *in.WeekNumber
	} else {
		cfg, err := s.settings.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("cast vote: load settings: %w", err)
		}
		week = cfg.CurrentWeek
	}

	// 2. Voter and entry must exist.
	if _, err := s.users.FindByID(ctx, in.VoterID); err != nil {
		return nil, fmt.Errorf("cast vote: %w", err)
	}
	if _, err := s.entries.FindByID(ctx, in.EntryID); err != nil {
		return nil, fmt.Errorf("cast vote: %w", err)
	}

	// 3. Insert; the store rejects a second vote for the same week.
	vote := &domain.Vote{VoterID: in.VoterID, EntryID: in.EntryID, WeekNumber: week}
	if err := s.votes.Create(ctx, vote); err != nil {
		return nil, fmt.Errorf("cast vote: %w", err)
	}

	s.log.Info().
		Uint("voter_id", in.VoterID).
		Uint("entry_id", in.EntryID).
		Int("week", week).
		Msg("vote cast")

	return vote, nil
}
