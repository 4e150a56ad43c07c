package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is a car photo submitted to a weekly contest.
type Entry struct {
	ID            uint
	UserID        uint
	OwnerUsername string
	ImageURL      string
	Description   string
	WeekNumber    int
	FeePaid       decimal.Decimal
	VotesCount    int64
	CreatedAt     time.Time
}

// Vote is a single voter's choice for a given week.
type Vote struct {
	ID         uint
	VoterID    uint
	EntryID    uint
	WeekNumber int
	CreatedAt  time.Time
}
