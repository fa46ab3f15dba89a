package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FeedbackRecord is the persisted result of one streamed analysis
type FeedbackRecord struct {
	ID         string    `json:"id" bson:"_id"`
	UserID     int64     `json:"user_id" bson:"user_id"`
	SentenceID int64     `json:"sentence_id" bson:"sentence_id"`
	Accuracy   float64   `json:"accuracy" bson:"accuracy"`
	Scores     ScoreSet  `json:"scores" bson:"scores"`
	Feedback   string    `json:"feedback" bson:"feedback"`
	IsDeleted  bool      `json:"is_deleted" bson:"is_deleted"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// NewFeedbackRecord creates a record with a fresh identity.
// Accuracy is denormalised from scores for aggregation.
func NewFeedbackRecord(userID, sentenceID int64, scores ScoreSet, feedback string) *FeedbackRecord {
	return &FeedbackRecord{
		ID:         uuid.New().String(),
		UserID:     userID,
		SentenceID: sentenceID,
		Accuracy:   scores.Accuracy,
		Scores:     scores,
		Feedback:   feedback,
		CreatedAt:  time.Now().UTC(),
	}
}

// Validate rejects partial records
func (r *FeedbackRecord) Validate() error {
	if r.ID == "" {
		return errors.New("record ID is required")
	}
	if r.UserID <= 0 {
		return errors.New("user ID is required")
	}
	if r.SentenceID <= 0 {
		return errors.New("sentence ID is required")
	}
	if strings.TrimSpace(r.Feedback) == "" {
		return errors.New("feedback text is required")
	}
	if r.CreatedAt.IsZero() {
		return errors.New("creation time is required")
	}
	return nil
}
