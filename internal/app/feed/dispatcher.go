package feed

import (
	"context"
	"fmt"

	"warehub/internal/app/outbox"
)

// Dispatch routes a committed outbox record into the hub.
func (h *Hub) Dispatch(_ context.Context, rec outbox.EventRecord) error {
	topics, err := TopicsFor(rec.Name, rec.Payload)
	if err != nil {
		return fmt.Errorf("feed: decode %s: %w", rec.Name, err)
	}
	for _, topic := range topics {
		h.Publish(Event{
			ID:         rec.ID,
			Name:       rec.Name,
			Topic:      topic,
			Payload:    append([]byte(nil), rec.Payload...),
			OccurredAt: rec.OccurredAt,
		})
	}
	return nil
}

var _ outbox.Dispatcher = (*Hub)(nil)
