package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fakaperformance/contest-api/internal/core/ports"
)

// LogRecorder writes audit events to the log. It stands in for the MongoDB
// audit store when that is unavailable.
type LogRecorder struct {
	log zerolog.Logger
}

func NewLogRecorder(log zerolog.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) InsertEvent(_ context.Context, event ports.AuditEvent) error {
	r.log.Info().
		Str("kind", event.Kind).
		Uint("user_id", event.UserID).
		Uint("tx_id", event.TransactionID).
		Str("amount", event.Amount.String()).
		Str("status", event.Status).
		Str("external_id", event.ExternalID).
		Str("detail", event.Detail).
		Time("occurred_at", event.OccurredAt).
		Msg("ledger event")
	return nil
}
