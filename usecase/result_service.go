package usecase

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

// LatestResult is the most recent feedback for a (user, sentence) pair
type LatestResult struct {
	RecordID  string            `json:"record_id"`
	Accuracy  float64           `json:"accuracy"`
	Scores    entities.ScoreSet `json:"scores"`
	Feedback  string            `json:"feedback"`
	Content   string            `json:"content"`
	CreatedAt string            `json:"created_at"`
}

// ResultService serves the read side: stored results, summaries and sentences
type ResultService struct {
	users      repositories.UserRepository
	sentences  repositories.SentenceRepository
	feedbacks  repositories.FeedbackRepository
	aggregator *Aggregator
}

// NewResultService creates a new result service
func NewResultService(
	users repositories.UserRepository,
	sentences repositories.SentenceRepository,
	feedbacks repositories.FeedbackRepository,
	aggregator *Aggregator,
) *ResultService {
	return &ResultService{
		users:      users,
		sentences:  sentences,
		feedbacks:  feedbacks,
		aggregator: aggregator,
	}
}

// LatestResult returns the newest stored result with the sentence content
func (s *ResultService) LatestResult(ctx context.Context, userID, sentenceID int64) (*LatestResult, error) {
	if userID <= 0 || sentenceID <= 0 {
		return nil, errors.NotValidf("user %d sentence %d", userID, sentenceID)
	}

	sentence, err := s.sentences.GetByID(ctx, sentenceID)
	if err != nil {
		return nil, errors.Annotatef(err, "sentence %d", sentenceID)
	}

	record, err := s.feedbacks.FindLatestByUserAndSentence(ctx, userID, sentenceID)
	if err != nil {
		return nil, errors.Annotatef(err, "feedback of user %d", userID)
	}

	return &LatestResult{
		RecordID:  record.ID,
		Accuracy:  record.Accuracy,
		Scores:    record.Scores,
		Feedback:  record.Feedback,
		Content:   sentence.Content,
		CreatedAt: record.CreatedAt.Format(time.RFC3339),
	}, nil
}

// ScoreSummary aggregates a user's accuracy. Unknown users are NotFound,
// known users without records get an empty summary.
func (s *ResultService) ScoreSummary(ctx context.Context, userID int64) (*entities.ScoreSummary, error) {
	if userID <= 0 {
		return nil, errors.NotValidf("user id %d", userID)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, errors.Annotatef(err, "user %d", userID)
	}
	return s.aggregator.Summarize(ctx, userID)
}

// Sentence returns one sentence by id
func (s *ResultService) Sentence(ctx context.Context, id int64) (*entities.Sentence, error) {
	if id <= 0 {
		return nil, errors.NotValidf("sentence id %d", id)
	}
	return s.sentences.GetByID(ctx, id)
}

// SentencesBySituation lists the sentences of a situation
func (s *ResultService) SentencesBySituation(ctx context.Context, situation string) ([]*entities.Sentence, error) {
	if situation == "" {
		return nil, errors.NotValidf("empty situation")
	}
	sentences, err := s.sentences.ListBySituation(ctx, situation)
	if err != nil {
		return nil, err
	}
	if len(sentences) == 0 {
		return nil, errors.NotFoundf("sentences for situation %q", situation)
	}
	return sentences, nil
}
