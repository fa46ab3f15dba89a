package usecase

import (
	"context"
	"io"
	"sync"

	"github.com/juju/errors"

	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

// sliceStream yields fragments then err (io.EOF when nil)
type sliceStream struct {
	fragments []string
	err       error
	pos       int
	closed    bool
	closeErr  error
}

func newSliceStream(err error, fragments ...string) *sliceStream {
	return &sliceStream{fragments: fragments, err: err}
}

func (s *sliceStream) Recv() (string, error) {
	if s.pos < len(s.fragments) {
		f := s.fragments[s.pos]
		s.pos++
		return f, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *sliceStream) Close() error {
	s.closed = true
	return s.closeErr
}

// recordingSink records events; it can cancel the client context after
// a number of fragments to simulate a disconnect.
type recordingSink struct {
	mu          sync.Mutex
	opened      bool
	fragments   []string
	done        int
	cancelAfter int
	cancel      context.CancelFunc
	fragmentErr error
	onFragment  func()
}

func (s *recordingSink) Open() error {
	s.opened = true
	return nil
}

func (s *recordingSink) Fragment(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fragmentErr != nil {
		return s.fragmentErr
	}
	s.fragments = append(s.fragments, text)
	if s.cancel != nil && len(s.fragments) == s.cancelAfter {
		s.cancel()
	}
	if s.onFragment != nil {
		s.onFragment()
	}
	return nil
}

func (s *recordingSink) Done() error {
	s.done++
	return nil
}

// countingRepo wraps a FeedbackRepository and counts Save calls
type countingRepo struct {
	repositories.FeedbackRepository
	saves   int
	saveErr error
}

func (r *countingRepo) Save(ctx context.Context, record *entities.FeedbackRecord) error {
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.FeedbackRepository.Save(ctx, record)
}

// fakeAnalyzer returns a fixed payload or error
type fakeAnalyzer struct {
	payload entities.AnalysisPayload
	err     error
	calls   int
	lastRef string
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, audio []byte, referenceText string, config repositories.AudioConfig) (entities.AnalysisPayload, error) {
	a.calls++
	a.lastRef = referenceText
	return a.payload, a.err
}

// fakeGenerator hands out a prepared stream
type fakeGenerator struct {
	stream  repositories.FeedbackStream
	err     error
	lastReq repositories.FeedbackRequest
}

func (g *fakeGenerator) GenerateFeedback(ctx context.Context, req repositories.FeedbackRequest) (repositories.FeedbackStream, error) {
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	return g.stream, nil
}

var errBackend = errors.New("backend exploded")

func scoresPayload() entities.AnalysisPayload {
	return entities.AnalysisPayload{
		"result_properties": map[string]any{
			"SpeechServiceResponse_JsonResult": `{"NBest":[{"AccuracyScore":88,"FluencyScore":91,"CompletenessScore":95,"PronScore":90}]}`,
		},
	}
}
