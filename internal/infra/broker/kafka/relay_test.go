package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "warehub/internal/app/outbox"
	infraoutbox "warehub/internal/infra/outbox"
)

type memInbox struct {
	seen map[string]bool
}

func (m *memInbox) Seen(_ context.Context, id string) (bool, error) {
	if m.seen[id] {
		return true, nil
	}
	m.seen[id] = true
	return false, nil
}

func (m *memInbox) Forget(_ context.Context, id string) error {
	delete(m.seen, id)
	return nil
}

type countingDispatcher struct {
	got []string
	err error
}

func (d *countingDispatcher) Dispatch(_ context.Context, rec appoutbox.EventRecord) error {
	if d.err != nil {
		return d.err
	}
	d.got = append(d.got, rec.ID)
	return nil
}

func envelope(t *testing.T, id string) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := infraoutbox.Wrap(appoutbox.EventRecord{
		ID:         id,
		Name:       "conversation.message_appended",
		Payload:    []byte(`{}`),
		OccurredAt: time.Now(),
	}, "app://test")
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "conversation.events.v1", Value: raw}
}

func TestFeedRelayDedupes(t *testing.T) {
	inbox := &memInbox{seen: map[string]bool{}}
	dispatcher := &countingDispatcher{}
	relay := FeedRelay{Inbox: inbox, Dispatcher: dispatcher}
	ctx := context.Background()

	require.NoError(t, relay.Handle(ctx, envelope(t, "e-1")))
	require.NoError(t, relay.Handle(ctx, envelope(t, "e-1")))
	require.NoError(t, relay.Handle(ctx, envelope(t, "e-2")))
	assert.Equal(t, []string{"e-1", "e-2"}, dispatcher.got)
}

func TestFeedRelayForgetsFailedDelivery(t *testing.T) {
	inbox := &memInbox{seen: map[string]bool{}}
	relay := FeedRelay{Inbox: inbox, Dispatcher: &countingDispatcher{err: errors.New("closed")}}

	assert.Error(t, relay.Handle(context.Background(), envelope(t, "e-1")))
	assert.False(t, inbox.seen["e-1"])

	assert.ErrorIs(t, relay.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("junk")}), infraoutbox.ErrEnvelopeInvalid)
}

func TestFeedTopics(t *testing.T) {
	assert.Equal(t, []string{"p.booking.events.v1", "p.conversation.events.v1"}, FeedTopics("p."))
}
