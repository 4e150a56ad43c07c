package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fakaperformance/contest-api/internal/core/ports"
)

const collectionLedgerEvents = "ledger_events"

// AuditRepository implements ports.AuditRepository using MongoDB. The
// collection is append-only.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionLedgerEvents)}
}

// InsertEvent persists a ledger event to the audit collection.
func (r *AuditRepository) InsertEvent(ctx context.Context, event ports.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, auditDocument(event, time.Now().UTC()))
	return err
}

// EnsureIndexes creates the lookup indexes on the audit collection.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "transaction_id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "external_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// auditDocument stores amounts as strings so no precision is lost.
func auditDocument(event ports.AuditEvent, recordedAt time.Time) bson.M {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = recordedAt
	}
	doc := bson.M{
		"kind":           event.Kind,
		"user_id":        int64(event.UserID),
		"transaction_id": int64(event.TransactionID),
		"amount":         event.Amount.String(),
		"status":         event.Status,
		"occurred_at":    occurred.UTC(),
		"recorded_at":    recordedAt,
	}
	if event.ExternalID != "" {
		doc["external_id"] = event.ExternalID
	}
	if event.Detail != "" {
		doc["detail"] = event.Detail
	}
	return doc
}
