package worker

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/shopfront/order-service/internal/infrastructure/events"
	"github.com/shopfront/order-service/internal/repo"
)

var outboxPublishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Total number of outbox events relayed to the broker",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(outboxPublishedTotal)
}

// OutboxRelay publishes committed outbox events. Events that fail to publish
// stay pending and are retried on the next tick.
type OutboxRelay struct {
	db        *sql.DB
	outbox    repo.OutboxRepo
	publisher events.Publisher
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

func NewOutboxRelay(
	db *sql.DB,
	outbox repo.OutboxRepo,
	publisher events.Publisher,
	interval time.Duration,
	batchSize int,
	logger *zap.Logger,
) *OutboxRelay {
	return &OutboxRelay{
		db:        db,
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (w *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Outbox relay started", zap.Duration("interval", w.interval), zap.Int("batch_size", w.batchSize))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := w.process(ctx); err != nil {
				w.logger.Error("Outbox relay failed", zap.Error(err))
			}
		}
	}
}

// process relays one batch and returns how many events were published.
func (w *OutboxRelay) process(ctx context.Context) (int, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	pending, err := w.outbox.ClaimPending(ctx, tx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	published := make([]uuid.UUID, 0, len(pending))
	for _, ev := range pending {
		// Stop at the first failure so later events of the same order are
		// not delivered ahead of it.
		evCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(ev.TraceContext))
		if err := w.publisher.Publish(evCtx, ev); err != nil {
			outboxPublishedTotal.WithLabelValues("error").Inc()
			w.logger.Warn("Failed to publish outbox event",
				zap.String("event_id", ev.ID.String()),
				zap.String("event_type", string(ev.Type)),
				zap.Error(err),
			)
			break
		}
		outboxPublishedTotal.WithLabelValues("success").Inc()
		published = append(published, ev.ID)
	}

	if err := w.outbox.MarkPublished(ctx, tx, published, w.now().UTC()); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if len(published) > 0 {
		w.logger.Info("Outbox events relayed", zap.Int("count", len(published)), zap.Int("pending", len(pending)-len(published)))
	}
	return len(published), nil
}
