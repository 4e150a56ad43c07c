package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

func TestVoteHandler_Cast_Success(t *testing.T) {
	stub := &stubVoteService{
		castFn: func(ctx context.Context, in ports.CastVoteInput) (*domain.Vote, error) {
			if in.VoterID != 2 || in.EntryID != 8 || in.WeekNumber == nil || *in.WeekNumber != 4 {
				t.Fatalf("unexpected input %+v", in)
			}
			return &domain.Vote{ID: 1, VoterID: 2, EntryID: 8, WeekNumber: 4}, nil
		},
	}
	c, rec := jsonContext(http.MethodPost, "/api/vote", `{"voter_id":"2","entry_id":8,"week_number":4}`)

	if err := NewVoteHandler(stub).Cast(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp castVoteResponse
	decode(t, rec, &resp)
	if resp.Vote.WeekNumber != 4 || resp.Vote.EntryID != 8 {
		t.Fatalf("unexpected vote %+v", resp.Vote)
	}
}

func TestVoteHandler_Cast_DefaultsWeek(t *testing.T) {
	stub := &stubVoteService{
		castFn: func(ctx context.Context, in ports.CastVoteInput) (*domain.Vote, error) {
			if in.WeekNumber != nil {
				t.Fatalf("week must be left to the service, got %d", *in.WeekNumber)
			}
			return &domain.Vote{ID: 1, VoterID: 2, EntryID: 8, WeekNumber: 1}, nil
		},
	}
	c, _ := jsonContext(http.MethodPost, "/api/vote", `{"voter_id":2,"entry_id":8}`)

	if err := NewVoteHandler(stub).Cast(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestVoteHandler_Cast_MissingIDs(t *testing.T) {
	c, _ := jsonContext(http.MethodPost, "/api/vote", `{"voter_id":2}`)

	assertValidation(t, NewVoteHandler(&stubVoteService{}).Cast(c), "entry_id is required")
}

func TestVoteHandler_Cast_AlreadyVoted(t *testing.T) {
	stub := &stubVoteService{
		castFn: func(ctx context.Context, in ports.CastVoteInput) (*domain.Vote, error) {
			return nil, domain.ErrAlreadyVoted
		},
	}
	c, _ := jsonContext(http.MethodPost, "/api/vote", `{"voter_id":2,"entry_id":8}`)

	if err := NewVoteHandler(stub).Cast(c); !errors.Is(err, domain.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
}
