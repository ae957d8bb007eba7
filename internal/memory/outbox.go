package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"shopflow/internal/model"
	"shopflow/internal/saga"
)

type outbox struct{ *Store }

func (o outbox) Append(ctx context.Context, event model.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}

	// The message becomes visible to the relay only once the unit commits.
	saga.OnCommit(ctx, func() {
		o.outboxMu.Lock()
		defer o.outboxMu.Unlock()
		o.nextOutbox++
		o.outbox = append(o.outbox, model.OutboxMessage{
			ID:        o.nextOutbox,
			EventID:   event.ID,
			EventType: event.Type,
			Key:       event.OrderID.String(),
			Payload:   payload,
			Status:    model.OutboxPending,
			CreatedAt: event.OccurredAt,
		})
	})
	return nil
}

func (o outbox) Pending(_ context.Context, limit int) ([]model.OutboxMessage, error) {
	o.outboxMu.Lock()
	defer o.outboxMu.Unlock()

	var pending []model.OutboxMessage
	for _, m := range o.outbox {
		if len(pending) == limit {
			break
		}
		if m.Status == model.OutboxPending {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

func (o outbox) MarkPublished(_ context.Context, ids []int64) error {
	o.outboxMu.Lock()
	defer o.outboxMu.Unlock()

	// Published messages are dropped; nothing reads them back.
	o.outbox = slices.DeleteFunc(o.outbox, func(m model.OutboxMessage) bool {
		return slices.Contains(ids, m.ID)
	})
	return nil
}
