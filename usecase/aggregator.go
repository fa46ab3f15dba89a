package usecase

import (
	"context"

	"github.com/juju/errors"

	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

// Aggregator computes per-user averages over stored feedback
type Aggregator struct {
	feedbacks repositories.FeedbackRepository
}

// NewAggregator creates a new aggregator
func NewAggregator(feedbacks repositories.FeedbackRepository) *Aggregator {
	return &Aggregator{feedbacks: feedbacks}
}

// Summarize returns the mean accuracy across the user's non-deleted records.
// A user without records gets a summary with a nil Average, not an error.
func (a *Aggregator) Summarize(ctx context.Context, userID int64) (*entities.ScoreSummary, error) {
	records, err := a.feedbacks.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, errors.Annotatef(err, "loading feedback of user %d", userID)
	}

	summary := &entities.ScoreSummary{UserID: userID}
	var sum float64
	for _, record := range records {
		if record == nil || record.IsDeleted {
			continue
		}
		sum += record.Accuracy
		summary.Count++
	}

	if summary.Count > 0 {
		avg := sum / float64(summary.Count)
		summary.Average = &avg
	}
	return summary, nil
}
