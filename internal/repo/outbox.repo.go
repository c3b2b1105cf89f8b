package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shopfront/order-service/internal/domain"
)

type OutboxRepo interface {
	Insert(ctx context.Context, db DBTX, ev domain.OutboxEvent) error
	// ClaimPending locks up to limit unpublished events, skipping rows another
	// relay already holds. db must be a transaction for the lock to matter.
	ClaimPending(ctx context.Context, db DBTX, limit int) ([]domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, db DBTX, ids []uuid.UUID, at time.Time) error
}

type outboxRepo struct{}

func NewOutboxRepo() OutboxRepo {
	return &outboxRepo{}
}

func (r *outboxRepo) Insert(ctx context.Context, db DBTX, ev domain.OutboxEvent) error {
	traceContext, err := json.Marshal(ev.TraceContext)
	if err != nil {
		return err
	}
	if ev.TraceContext == nil {
		traceContext = []byte("{}")
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO outbox_events (id, event_type, event_key, payload, trace_context, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.Type, ev.Key, string(ev.Payload), string(traceContext), ev.CreatedAt)
	return err
}

func (r *outboxRepo) ClaimPending(ctx context.Context, db DBTX, limit int) ([]domain.OutboxEvent, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, event_type, event_key, payload, trace_context, created_at FROM outbox_events
		 WHERE published_at IS NULL
		 ORDER BY created_at
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var (
			ev           domain.OutboxEvent
			traceContext []byte
		)
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.Key, &ev.Payload, &traceContext, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(traceContext) > 0 {
			if err := json.Unmarshal(traceContext, &ev.TraceContext); err != nil {
				return nil, fmt.Errorf("outbox event %s: bad trace context: %w", ev.ID, err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *outboxRepo) MarkPublished(ctx context.Context, db DBTX, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	_, err := db.ExecContext(ctx,
		"UPDATE outbox_events SET published_at = $1 WHERE id = ANY($2::uuid[])", at, pq.Array(keys))
	return err
}
