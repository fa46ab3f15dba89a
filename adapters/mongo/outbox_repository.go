package mongo

import (
	"context"
	"time"

	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/satriahrh/pronounce/domain"
	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

const outboxCollection = "feedback_outbox"

// outboxEntry wraps a parked record with bookkeeping
type outboxEntry struct {
	ID       string                  `bson:"_id"`
	Record   entities.FeedbackRecord `bson:"record"`
	Cause    string                  `bson:"cause"`
	ParkedAt time.Time               `bson:"parked_at"`
}

// OutboxRepository stores records whose persistence failed after streaming
type OutboxRepository struct {
	collection *mongo.Collection
}

var _ repositories.OutboxRepository = (*OutboxRepository)(nil)

// NewOutboxRepository creates a new MongoDB outbox repository
func NewOutboxRepository(db *mongo.Database) *OutboxRepository {
	return &OutboxRepository{collection: db.Collection(outboxCollection)}
}

func ensureOutboxIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(outboxCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "parked_at", Value: 1}},
	})
	if err != nil {
		return errors.Annotate(err, "creating outbox indexes")
	}
	return nil
}

// Park implements repositories.OutboxRepository. Parking the same record
// twice keeps a single entry.
func (r *OutboxRepository) Park(ctx context.Context, record *entities.FeedbackRecord, cause string) error {
	if record == nil || record.ID == "" {
		return errors.NotValidf("record without id")
	}
	entry := outboxEntry{
		ID:       record.ID,
		Record:   *record,
		Cause:    cause,
		ParkedAt: time.Now().UTC(),
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return domain.StorageError(err, "parking feedback %s", record.ID)
	}
	return nil
}

// Pending implements repositories.OutboxRepository, oldest first
func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]*entities.FeedbackRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "parked_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, domain.StorageError(err, "listing outbox")
	}
	defer cursor.Close(ctx)

	var entries []outboxEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, domain.StorageError(err, "decoding outbox")
	}

	records := make([]*entities.FeedbackRecord, 0, len(entries))
	for i := range entries {
		records = append(records, &entries[i].Record)
	}
	return records, nil
}

// Remove implements repositories.OutboxRepository
func (r *OutboxRepository) Remove(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return domain.StorageError(err, "removing outbox entry %s", id)
	}
	if result.DeletedCount == 0 {
		return errors.NotFoundf("outbox entry %s", id)
	}
	return nil
}
