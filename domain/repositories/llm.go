package repositories

import (
	"context"

	"github.com/satriahrh/pronounce/domain/entities"
)

// FeedbackGenerator abstracts any streaming text-generation provider
type FeedbackGenerator interface {
	// GenerateFeedback starts a new generation for one analysis. The returned
	// stream is bound to ctx and must be closed by the caller.
	GenerateFeedback(ctx context.Context, req FeedbackRequest) (FeedbackStream, error)
}

// FeedbackStream is a lazy, finite, non-restartable sequence of text fragments.
// It must not be read concurrently.
type FeedbackStream interface {
	// Recv returns the next fragment. io.EOF marks normal exhaustion; any
	// other error means the backend terminated the sequence early.
	Recv() (string, error)
	// Close releases the backend stream
	Close() error
}

// FeedbackRequest is the input of one feedback generation
type FeedbackRequest struct {
	SentenceText string
	Scores       entities.ScoreSet
	Payload      entities.AnalysisPayload
}
