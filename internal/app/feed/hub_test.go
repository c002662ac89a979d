package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehub/internal/app/outbox"
	domainbooking "warehub/internal/domain/booking"
	domainconversation "warehub/internal/domain/conversation"
)

func TestHubDeliversToTopicSubscribers(t *testing.T) {
	hub := NewHub(4, nil)
	sub := hub.Subscribe("a")
	other := hub.Subscribe("b")
	defer sub.Cancel()
	defer other.Cancel()

	hub.Publish(Event{ID: "1", Topic: "a"})

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "1", ev.ID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	assert.Len(t, other.Events(), 0)
}

func TestHubClosesLaggingSubscriber(t *testing.T) {
	hub := NewHub(1, nil)
	sub := hub.Subscribe("a")

	hub.Publish(Event{ID: "1", Topic: "a"})
	hub.Publish(Event{ID: "2", Topic: "a"})

	first, ok := <-sub.Events()
	require.True(t, ok)
	assert.Equal(t, "1", first.ID)
	_, ok = <-sub.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, sub.Err(), ErrSubscriberLagged)
	assert.Equal(t, 0, hub.Subscribers("a"))
}

func TestSubscriptionCancel(t *testing.T) {
	hub := NewHub(1, nil)
	sub := hub.Subscribe("a")
	sub.Cancel()
	sub.Cancel()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.NoError(t, sub.Err())

	hub.Publish(Event{Topic: "a"})
}

func TestHubClose(t *testing.T) {
	hub := NewHub(1, nil)
	sub := hub.Subscribe("a")
	hub.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, sub.Err(), ErrHubClosed)

	late := hub.Subscribe("a")
	_, ok = <-late.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, late.Err(), ErrHubClosed)
}

func TestDispatchRoutesMessageAppended(t *testing.T) {
	hub := NewHub(4, nil)
	key := domainconversation.Key{ListingID: "l-1", CustomerID: "c-1"}
	sub := hub.Subscribe(ConversationTopic(key))
	defer sub.Cancel()

	payload, err := json.Marshal(domainconversation.MessageAppended{ID: "m-1", ListingID: "l-1", CustomerID: "c-1", Body: "hi"})
	require.NoError(t, err)
	require.NoError(t, hub.Dispatch(context.Background(), outbox.EventRecord{ID: "e-1", Name: domainconversation.EventMessageAppended, Payload: payload}))

	ev := <-sub.Events()
	assert.Equal(t, "conversation/l-1/c-1", ev.Topic)
	assert.Equal(t, "e-1", ev.ID)
}

func TestTopicsForReservationEvents(t *testing.T) {
	payload, err := json.Marshal(domainbooking.ReservationConfirmed{Reservation: domainbooking.ReservationSnapshot{ID: "r-1", OwnerID: "o-1"}})
	require.NoError(t, err)

	topics, err := TopicsFor(domainbooking.EventReservationConfirmed, payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner/o-1/reservations"}, topics)

	topics, err = TopicsFor("listing.updated", []byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, topics)

	_, err = TopicsFor(domainconversation.EventMessageAppended, []byte("not json"))
	assert.Error(t, err)
}
