package llm

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/satriahrh/pronounce/domain/repositories"
)

// MockGenerator streams a canned narrative derived from the scores, one
// word per fragment. It is used for local development without an API key.
type MockGenerator struct {
	delay time.Duration
}

var _ repositories.FeedbackGenerator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock generator pausing delay between fragments
func NewMockGenerator(delay time.Duration) *MockGenerator {
	return &MockGenerator{delay: delay}
}

// GenerateFeedback implements FeedbackGenerator
func (m *MockGenerator) GenerateFeedback(ctx context.Context, req repositories.FeedbackRequest) (repositories.FeedbackStream, error) {
	return &mockStream{
		ctx:       ctx,
		fragments: splitWords(fallbackFeedback(req.Scores)),
		delay:     m.delay,
	}, nil
}

type mockStream struct {
	ctx       context.Context
	fragments []string
	delay     time.Duration
	pos       int
}

func (s *mockStream) Recv() (string, error) {
	if s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	if s.delay > 0 {
		select {
		case <-s.ctx.Done():
			return "", s.ctx.Err()
		case <-time.After(s.delay):
		}
	} else if err := s.ctx.Err(); err != nil {
		return "", err
	}

	fragment := s.fragments[s.pos]
	s.pos++
	return fragment, nil
}

func (s *mockStream) Close() error {
	s.pos = len(s.fragments)
	return nil
}

// splitWords keeps the trailing space on every word but the last so the
// fragments concatenate back to the original text.
func splitWords(text string) []string {
	words := strings.Fields(text)
	for i := 0; i < len(words)-1; i++ {
		words[i] += " "
	}
	return words
}
