package mongo

import (
	"context"

	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/satriahrh/pronounce/domain"
	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

const feedbackCollection = "feedbacks"

// FeedbackRepository stores feedback records in MongoDB
type FeedbackRepository struct {
	collection *mongo.Collection
}

var _ repositories.FeedbackRepository = (*FeedbackRepository)(nil)

// NewFeedbackRepository creates a new MongoDB feedback repository
func NewFeedbackRepository(db *mongo.Database) *FeedbackRepository {
	return &FeedbackRepository{
		collection: db.Collection(feedbackCollection),
	}
}

func ensureFeedbackIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(feedbackCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "sentence_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return errors.Annotate(err, "creating feedback indexes")
	}
	return nil
}

// Save implements repositories.FeedbackRepository. The insert is a single
// document write, so a record is either fully stored or not at all.
func (r *FeedbackRepository) Save(ctx context.Context, record *entities.FeedbackRecord) error {
	if record == nil {
		return errors.NotValidf("nil record")
	}
	if err := record.Validate(); err != nil {
		return errors.NewNotValid(err, "feedback record")
	}

	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.AlreadyExistsf("feedback record %s", record.ID)
		}
		return domain.StorageError(err, "inserting feedback %s", record.ID)
	}
	return nil
}

// FindLatestByUserAndSentence implements repositories.FeedbackRepository
func (r *FeedbackRepository) FindLatestByUserAndSentence(ctx context.Context, userID, sentenceID int64) (*entities.FeedbackRecord, error) {
	filter := bson.M{
		"user_id":     userID,
		"sentence_id": sentenceID,
		"is_deleted":  false,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	var record entities.FeedbackRecord
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&record); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.NotFoundf("feedback for user %d sentence %d", userID, sentenceID)
		}
		return nil, domain.StorageError(err, "finding latest feedback")
	}
	return &record, nil
}

// FindAllByUser implements repositories.FeedbackRepository
func (r *FeedbackRepository) FindAllByUser(ctx context.Context, userID int64) ([]*entities.FeedbackRecord, error) {
	filter := bson.M{"user_id": userID, "is_deleted": false}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.StorageError(err, "finding feedback of user %d", userID)
	}
	defer cursor.Close(ctx)

	records := []*entities.FeedbackRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, domain.StorageError(err, "decoding feedback of user %d", userID)
	}
	return records, nil
}

// SoftDelete implements repositories.FeedbackRepository
func (r *FeedbackRepository) SoftDelete(ctx context.Context, id string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{"is_deleted": true}},
	)
	if err != nil {
		return domain.StorageError(err, "deleting feedback %s", id)
	}
	if result.MatchedCount == 0 {
		return errors.NotFoundf("feedback record %s", id)
	}
	return nil
}
