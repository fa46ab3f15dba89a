package usecase

import (
	"context"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/satriahrh/pronounce/domain"
	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

// AnalysisRequest is one inbound pronunciation submission
type AnalysisRequest struct {
	UserID      int64
	SentenceID  int64
	Audio       []byte
	AudioConfig repositories.AudioConfig
}

// Validate checks the client supplied fields
func (r AnalysisRequest) Validate() error {
	if r.UserID <= 0 {
		return errors.NotValidf("user id %d", r.UserID)
	}
	if r.SentenceID <= 0 {
		return errors.NotValidf("sentence id %d", r.SentenceID)
	}
	if len(r.Audio) == 0 {
		return errors.NotValidf("empty audio")
	}
	if r.AudioConfig.SampleRate < 0 {
		return errors.NotValidf("sample rate %d", r.AudioConfig.SampleRate)
	}
	return nil
}

// PreparedFeedback is an analysis whose scores are extracted and whose
// generation has started, but nothing has been sent to the client yet.
type PreparedFeedback struct {
	UserID     int64
	SentenceID int64
	Sentence   *entities.Sentence
	Scores     entities.ScoreSet
	Stream     repositories.FeedbackStream

	logger *zap.Logger
}

// Discard releases a prepared stream that will never be relayed
func (p *PreparedFeedback) Discard() {
	if p == nil || p.Stream == nil {
		return
	}
	if err := p.Stream.Close(); err != nil && p.logger != nil {
		p.logger.Debug("Failed to close feedback stream", zap.Error(err))
	}
}

// FeedbackService orchestrates the pronunciation feedback flow
type FeedbackService struct {
	users     repositories.UserRepository
	sentences repositories.SentenceRepository
	analyzer  repositories.SpeechAnalyzer
	generator repositories.FeedbackGenerator
	relay     *StreamRelay
	defaults  repositories.AudioConfig
	logger    *zap.Logger
}

// NewFeedbackService creates a new feedback service
func NewFeedbackService(
	users repositories.UserRepository,
	sentences repositories.SentenceRepository,
	analyzer repositories.SpeechAnalyzer,
	generator repositories.FeedbackGenerator,
	relay *StreamRelay,
	defaults repositories.AudioConfig,
	logger *zap.Logger,
) *FeedbackService {
	return &FeedbackService{
		users:     users,
		sentences: sentences,
		analyzer:  analyzer,
		generator: generator,
		relay:     relay,
		defaults:  defaults,
		logger:    logger,
	}
}

// Prepare runs every step that can still fail with a normal error response:
// validation, lookups, speech analysis, score extraction and starting the
// generator. The generation stream is bound to ctx, which should be the
// client's request context.
func (s *FeedbackService) Prepare(ctx context.Context, req AnalysisRequest) (*PreparedFeedback, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger.With(
		zap.Int64("userID", req.UserID),
		zap.Int64("sentenceID", req.SentenceID))

	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return nil, errors.Annotatef(err, "user %d", req.UserID)
	}

	sentence, err := s.sentences.GetByID(ctx, req.SentenceID)
	if err != nil {
		return nil, errors.Annotatef(err, "sentence %d", req.SentenceID)
	}

	config := s.audioConfig(req.AudioConfig)
	logger.Info("Analyzing pronunciation",
		zap.Int("audioSize", len(req.Audio)),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("language", config.Language))

	payload, err := s.analyzer.Analyze(ctx, req.Audio, sentence.Content, config)
	if err != nil {
		if domain.IsUpstream(err) {
			return nil, err
		}
		return nil, domain.UpstreamError(err, "analyzing sentence %d", req.SentenceID)
	}

	scores, err := ExtractScores(payload)
	if err != nil {
		logger.Warn("Score extraction failed", zap.Error(err))
		return nil, err
	}

	logger.Info("Scores extracted",
		zap.Float64("accuracy", scores.Accuracy),
		zap.Float64("fluency", scores.Fluency),
		zap.Float64("completeness", scores.Completeness),
		zap.Float64("pronunciation", scores.Pronunciation))

	stream, err := s.generator.GenerateFeedback(ctx, repositories.FeedbackRequest{
		SentenceText: sentence.Content,
		Scores:       scores,
		Payload:      payload,
	})
	if err != nil {
		if domain.IsUpstream(err) {
			return nil, err
		}
		return nil, domain.UpstreamError(err, "starting feedback generation")
	}

	return &PreparedFeedback{
		UserID:     req.UserID,
		SentenceID: req.SentenceID,
		Sentence:   sentence,
		Scores:     scores,
		Stream:     stream,
		logger:     logger,
	}, nil
}

// Stream relays a prepared feedback to sink and persists the result
func (s *FeedbackService) Stream(ctx context.Context, prepared *PreparedFeedback, sink EventSink) (*entities.FeedbackRecord, error) {
	return s.relay.Relay(ctx, RelayInput{
		Stream:     prepared.Stream,
		Sink:       sink,
		UserID:     prepared.UserID,
		SentenceID: prepared.SentenceID,
		Scores:     prepared.Scores,
	})
}

func (s *FeedbackService) audioConfig(req repositories.AudioConfig) repositories.AudioConfig {
	config := req
	if config.SampleRate == 0 {
		config.SampleRate = s.defaults.SampleRate
	}
	if config.Encoding == "" {
		config.Encoding = s.defaults.Encoding
	}
	if config.Language == "" {
		config.Language = s.defaults.Language
	}
	return config
}
