package outbox

import (
	"context"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/satriahrh/pronounce/domain/repositories"
)

// Metrics receives replay outcomes
type Metrics interface {
	Replayed()
	ReplayFailed()
}

type nopMetrics struct{}

func (nopMetrics) Replayed()     {}
func (nopMetrics) ReplayFailed() {}

// Reconciler replays parked feedback records into the feedback store. A
// record already present in the store counts as replayed.
type Reconciler struct {
	outbox    repositories.OutboxRepository
	feedbacks repositories.FeedbackRepository
	metrics   Metrics
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

// NewReconciler creates a new outbox reconciler
func NewReconciler(
	outbox repositories.OutboxRepository,
	feedbacks repositories.FeedbackRepository,
	metrics Metrics,
	interval time.Duration,
	batchSize int,
	logger *zap.Logger,
) *Reconciler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Reconciler{
		outbox:    outbox,
		feedbacks: feedbacks,
		metrics:   metrics,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run replays the outbox every interval until ctx is done
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Outbox reconciler started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Outbox reconciler stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("Failed to reconcile outbox", zap.Error(err))
			}
		}
	}
}

// RunOnce replays one batch and returns how many records reached the store
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.Pending(ctx, r.batchSize)
	if err != nil {
		return 0, errors.Annotate(err, "listing outbox")
	}
	if len(pending) == 0 {
		return 0, nil
	}

	replayed := 0
	for _, record := range pending {
		if ctx.Err() != nil {
			return replayed, ctx.Err()
		}

		err := r.feedbacks.Save(ctx, record)
		if err != nil && !errors.Is(err, errors.AlreadyExists) {
			r.metrics.ReplayFailed()
			r.logger.Warn("Failed to replay feedback record",
				zap.String("recordID", record.ID),
				zap.Error(err))
			continue
		}

		if err := r.outbox.Remove(ctx, record.ID); err != nil && !errors.Is(err, errors.NotFound) {
			r.logger.Warn("Failed to remove replayed record from outbox",
				zap.String("recordID", record.ID),
				zap.Error(err))
		}
		r.metrics.Replayed()
		replayed++
	}

	r.logger.Info("Outbox reconciled",
		zap.Int("pending", len(pending)),
		zap.Int("replayed", replayed))
	return replayed, nil
}
