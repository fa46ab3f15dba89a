package usecase

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/satriahrh/pronounce/domain"
	"github.com/satriahrh/pronounce/domain/entities"
	"github.com/satriahrh/pronounce/domain/repositories"
)

const defaultPersistTimeout = 10 * time.Second

// Abort reasons reported to StreamMetrics
const (
	AbortClientGone = "client_gone"
	AbortUpstream   = "upstream"
	AbortStorage    = "storage"
	AbortSink       = "sink"
)

// ErrClientGone is returned by Relay when the client disconnected before
// the stream completed.
const ErrClientGone = errors.ConstError("client disconnected")

// EventSink is the client side of one feedback stream
type EventSink interface {
	// Open commits the streaming response. No error response can be sent after it.
	Open() error
	// Fragment writes one fragment and blocks until the transport accepted it.
	Fragment(text string) error
	// Done writes the terminal event.
	Done() error
}

// StreamMetrics observes relay outcomes
type StreamMetrics interface {
	StreamStarted()
	FragmentSent()
	StreamCompleted()
	StreamAborted(reason string)
	PersistFailed()
}

type nopMetrics struct{}

func (nopMetrics) StreamStarted() {}
func (nopMetrics) FragmentSent() {}
func (nopMetrics) StreamCompleted() {}
func (nopMetrics) StreamAborted(string) {}
func (nopMetrics) PersistFailed() {}

// RelayInput carries everything one stream needs
type RelayInput struct {
	Stream     repositories.FeedbackStream
	Sink       EventSink
	UserID     int64
	SentenceID int64
	Scores     entities.ScoreSet
}

// StreamRelay forwards generated fragments to a client and persists the
// finished record exactly once.
type StreamRelay struct {
	feedbacks      repositories.FeedbackRepository
	outbox         repositories.OutboxRepository
	metrics        StreamMetrics
	persistTimeout time.Duration
	logger         *zap.Logger
}

// NewStreamRelay creates a new stream relay. outbox and metrics may be nil.
func NewStreamRelay(
	feedbacks repositories.FeedbackRepository,
	outbox repositories.OutboxRepository,
	metrics StreamMetrics,
	persistTimeout time.Duration,
	logger *zap.Logger,
) *StreamRelay {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if persistTimeout <= 0 {
		persistTimeout = defaultPersistTimeout
	}
	return &StreamRelay{
		feedbacks:      feedbacks,
		outbox:         outbox,
		metrics:        metrics,
		persistTimeout: persistTimeout,
		logger:         logger,
	}
}

// Relay drives in.Stream to exhaustion. ctx is the client's lifetime: once
// it is done the relay stops at the next fragment boundary and nothing is
// persisted. The stream is always closed on return.
func (r *StreamRelay) Relay(ctx context.Context, in RelayInput) (*entities.FeedbackRecord, error) {
	defer func() {
		if err := in.Stream.Close(); err != nil {
			r.logger.Debug("Failed to close feedback stream", zap.Error(err))
		}
	}()

	logger := r.logger.With(
		zap.Int64("userID", in.UserID),
		zap.Int64("sentenceID", in.SentenceID))

	r.metrics.StreamStarted()
	if err := in.Sink.Open(); err != nil {
		r.metrics.StreamAborted(AbortSink)
		return nil, errors.Annotate(err, "opening stream")
	}

	var text strings.Builder
	fragments := 0
	for {
		if ctx.Err() != nil {
			return nil, r.clientGone(logger, fragments)
		}

		fragment, err := in.Stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, r.clientGone(logger, fragments)
			}
			r.metrics.StreamAborted(AbortUpstream)
			logger.Error("Feedback generation terminated early",
				zap.Int("fragments", fragments),
				zap.Error(err))
			return nil, domain.UpstreamError(err, "generating feedback")
		}
		text.WriteString(fragment)
		if err := in.Sink.Fragment(fragment); err != nil {
			logger.Info("Client stopped accepting fragments", zap.Error(err))
			return nil, r.clientGone(logger, fragments)
		}
		fragments++
		r.metrics.FragmentSent()
	}

	if ctx.Err() != nil {
		return nil, r.clientGone(logger, fragments)
	}

	if strings.TrimSpace(text.String()) == "" {
		r.metrics.StreamAborted(AbortUpstream)
		logger.Error("Feedback generation produced no text")
		return nil, domain.UpstreamError(errors.New("empty feedback"), "generating feedback")
	}

	record := entities.NewFeedbackRecord(in.UserID, in.SentenceID, in.Scores, text.String())
	if err := r.persist(ctx, record); err != nil {
		r.metrics.PersistFailed()
		r.metrics.StreamAborted(AbortStorage)
		logger.Error("Failed to persist feedback record",
			zap.String("recordID", record.ID),
			zap.Error(err))
		r.park(ctx, logger, record, err)
		return nil, domain.StorageError(err, "saving feedback %s", record.ID)
	}

	if err := in.Sink.Done(); err != nil {
		// The record is already durable; the client only misses the marker.
		logger.Warn("Failed to send terminal event",
			zap.String("recordID", record.ID),
			zap.Error(err))
	}
	r.metrics.StreamCompleted()

	logger.Info("Feedback stream completed",
		zap.String("recordID", record.ID),
		zap.Int("fragments", fragments))

	return record, nil
}

// persist runs detached from the client context so a started write is not
// torn by a late disconnect.
func (r *StreamRelay) persist(ctx context.Context, record *entities.FeedbackRecord) error {
	if err := record.Validate(); err != nil {
		return errors.Trace(err)
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.persistTimeout)
	defer cancel()
	return r.feedbacks.Save(saveCtx, record)
}

func (r *StreamRelay) park(ctx context.Context, logger *zap.Logger, record *entities.FeedbackRecord, cause error) {
	if r.outbox == nil {
		return
	}
	parkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.persistTimeout)
	defer cancel()
	if err := r.outbox.Park(parkCtx, record, cause.Error()); err != nil {
		logger.Error("Failed to park feedback record, record is lost",
			zap.String("recordID", record.ID),
			zap.Error(err))
		return
	}
	logger.Warn("Feedback record parked for reconciliation", zap.String("recordID", record.ID))
}

func (r *StreamRelay) clientGone(logger *zap.Logger, fragments int) error {
	r.metrics.StreamAborted(AbortClientGone)
	logger.Info("Client disconnected, discarding feedback", zap.Int("fragments", fragments))
	return ErrClientGone
}
