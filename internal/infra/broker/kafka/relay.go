package kafka

import (
	"context"

	"github.com/IBM/sarama"

	appoutbox "warehub/internal/app/outbox"
	infraoutbox "warehub/internal/infra/outbox"
)

// Inbox dedupes deliveries by event id.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// FeedRelay turns broker messages back into outbox records and hands them to
// the local dispatcher, once per event id.
type FeedRelay struct {
	Inbox      Inbox
	Dispatcher appoutbox.Dispatcher
}

func (r FeedRelay) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	rec, err := infraoutbox.Unwrap(msg.Value)
	if err != nil {
		return err
	}
	if r.Inbox != nil {
		seen, err := r.Inbox.Seen(ctx, rec.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	if err := r.Dispatcher.Dispatch(ctx, rec); err != nil {
		if r.Inbox != nil {
			_ = r.Inbox.Forget(ctx, rec.ID)
		}
		return err
	}
	return nil
}

// FeedTopics lists the topics whose events reach live streams.
func FeedTopics(prefix string) []string {
	return []string{
		infraoutbox.TopicFor(prefix, "booking."),
		infraoutbox.TopicFor(prefix, "conversation."),
	}
}

var _ MessageHandler = FeedRelay{}
