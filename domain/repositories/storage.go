package repositories

import (
	"context"

	"github.com/satriahrh/pronounce/domain/entities"
)

// FeedbackRepository defines data access methods for feedback records.
// Reads never return soft-deleted records.
type FeedbackRepository interface {
	// Save appends a new record. A record whose ID already exists fails
	// with an AlreadyExists error.
	Save(ctx context.Context, record *entities.FeedbackRecord) error
	FindLatestByUserAndSentence(ctx context.Context, userID, sentenceID int64) (*entities.FeedbackRecord, error)
	// FindAllByUser returns records ordered by creation time
	FindAllByUser(ctx context.Context, userID int64) ([]*entities.FeedbackRecord, error)
	SoftDelete(ctx context.Context, id string) error
}

// OutboxRepository parks records whose persistence failed after streaming
type OutboxRepository interface {
	Park(ctx context.Context, record *entities.FeedbackRecord, cause string) error
	Pending(ctx context.Context, limit int) ([]*entities.FeedbackRecord, error)
	Remove(ctx context.Context, id string) error
}

// SentenceRepository defines read access to the sentence catalog
type SentenceRepository interface {
	GetByID(ctx context.Context, id int64) (*entities.Sentence, error)
	ListBySituation(ctx context.Context, situation string) ([]*entities.Sentence, error)
}

// UserRepository defines read access to users
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*entities.User, error)
}
