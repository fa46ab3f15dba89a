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

const (
	sentenceCollection = "sentences"
	userCollection     = "users"
)

// SentenceRepository reads the sentence catalog from MongoDB
type SentenceRepository struct {
	collection *mongo.Collection
}

var _ repositories.SentenceRepository = (*SentenceRepository)(nil)

// NewSentenceRepository creates a new MongoDB sentence repository
func NewSentenceRepository(db *mongo.Database) *SentenceRepository {
	return &SentenceRepository{collection: db.Collection(sentenceCollection)}
}

func ensureSentenceIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(sentenceCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "situation", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return errors.Annotate(err, "creating sentence indexes")
	}
	return nil
}

// GetByID implements repositories.SentenceRepository
func (r *SentenceRepository) GetByID(ctx context.Context, id int64) (*entities.Sentence, error) {
	var sentence entities.Sentence
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&sentence)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.NotFoundf("sentence %d", id)
		}
		return nil, domain.StorageError(err, "finding sentence %d", id)
	}
	return &sentence, nil
}

// ListBySituation implements repositories.SentenceRepository
func (r *SentenceRepository) ListBySituation(ctx context.Context, situation string) ([]*entities.Sentence, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"situation": situation, "is_deleted": false},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, domain.StorageError(err, "listing sentences for %s", situation)
	}
	defer cursor.Close(ctx)

	sentences := []*entities.Sentence{}
	if err := cursor.All(ctx, &sentences); err != nil {
		return nil, domain.StorageError(err, "decoding sentences for %s", situation)
	}
	return sentences, nil
}

// Upsert stores a sentence, used for seeding
func (r *SentenceRepository) Upsert(ctx context.Context, sentence *entities.Sentence) error {
	if err := sentence.Validate(); err != nil {
		return errors.NewNotValid(err, "sentence")
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": sentence.ID}, sentence, options.Replace().SetUpsert(true))
	if err != nil {
		return domain.StorageError(err, "upserting sentence %d", sentence.ID)
	}
	return nil
}

// UserRepository reads users from MongoDB
type UserRepository struct {
	collection *mongo.Collection
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new MongoDB user repository
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(userCollection)}
}

// GetByID implements repositories.UserRepository
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	var user entities.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.NotFoundf("user %d", id)
		}
		return nil, domain.StorageError(err, "finding user %d", id)
	}
	return &user, nil
}

// Upsert stores a user, used for seeding
func (r *UserRepository) Upsert(ctx context.Context, user *entities.User) error {
	if err := user.Validate(); err != nil {
		return errors.NewNotValid(err, "user")
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user, options.Replace().SetUpsert(true))
	if err != nil {
		return domain.StorageError(err, "upserting user %d", user.ID)
	}
	return nil
}
