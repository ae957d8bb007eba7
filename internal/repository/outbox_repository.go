package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"shopflow/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// outboxRepository implements the OutboxRepository interface using PostgreSQL.
type outboxRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOutboxRepository creates a new PostgreSQL-backed outbox.
func NewOutboxRepository(pool *pgxpool.Pool, logger zerolog.Logger) OutboxRepository {
	return &outboxRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "outbox").Logger(),
	}
}

// Append stores the event in the ambient transaction.
func (r *outboxRepository) Append(ctx context.Context, event model.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}

	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO order_outbox (event_id, event_type, aggregate_id, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, string(event.Type), event.OrderID.String(), payload, int(model.OutboxPending), event.OccurredAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("event_type", string(event.Type)).
			Str("order_id", event.OrderID.String()).
			Msg("failed to append outbox message")
		return fmt.Errorf("failed to append outbox message: %w", err)
	}

	return nil
}

// Pending returns unpublished messages in insertion order.
func (r *outboxRepository) Pending(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, event_id, event_type, aggregate_id, payload, status, created_at
		FROM order_outbox
		WHERE status = $1
		ORDER BY id
		LIMIT $2
	`, int(model.OutboxPending), limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query outbox")
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var messages []model.OutboxMessage
	for rows.Next() {
		var (
			m         model.OutboxMessage
			eventType string
			status    int16
		)
		if err := rows.Scan(&m.ID, &m.EventID, &eventType, &m.Key, &m.Payload, &status, &m.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan outbox row")
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		m.EventType = model.EventType(eventType)
		m.Status = model.OutboxStatus(status)
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating outbox rows")
		return nil, fmt.Errorf("error iterating outbox: %w", err)
	}

	return messages, nil
}

// MarkPublished flags the given messages as delivered.
func (r *outboxRepository) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE order_outbox SET status = $2, published_at = NOW()
		WHERE id = ANY($1)
	`, ids, int(model.OutboxPublished))
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to mark outbox messages published")
		return fmt.Errorf("failed to mark outbox messages published: %w", err)
	}

	return nil
}
