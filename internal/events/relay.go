package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopflow/internal/repository"

	"github.com/rs/zerolog"
)

// Relay moves committed order events from the outbox to a Publisher. Delivery is
// at-least-once: a crash between publishing and marking republishes the batch.
type Relay struct {
	outbox    repository.OutboxRepository
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    zerolog.Logger
}

// NewRelay creates a relay polling the outbox every interval for up to batchSize events.
func NewRelay(outbox repository.OutboxRepository, publisher Publisher, interval time.Duration, batchSize int, logger zerolog.Logger) *Relay {
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "outbox-relay").Logger(),
	}
}

// RelayOnce publishes one batch of pending events and returns how many were published.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	msgs, err := r.outbox.Pending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to read outbox: %w", err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	if err := r.publisher.Publish(ctx, msgs); err != nil {
		return 0, err
	}

	ids := make([]int64, 0, len(msgs))
	for _, msg := range msgs {
		ids = append(ids, msg.ID)
	}
	if err := r.outbox.MarkPublished(ctx, ids); err != nil {
		return 0, fmt.Errorf("failed to mark outbox messages published: %w", err)
	}

	return len(msgs), nil
}

// Run relays events until ctx is cancelled. Full batches are followed immediately by
// the next one; otherwise the relay waits for the next tick.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info().
		Dur("interval", r.interval).
		Int("batch_size", r.batchSize).
		Msg("outbox relay started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		for {
			n, err := r.RelayOnce(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					break
				}
				r.logger.Error().Err(err).Msg("outbox relay failed")
				break
			}
			if n > 0 {
				r.logger.Debug().Int("count", n).Msg("relayed order events")
			}
			if n < r.batchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			r.logger.Info().Msg("outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}
