package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehub/internal/domain/auth"
	domainbooking "warehub/internal/domain/booking"
)

func TestCheckAvailabilityReportsReasons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestOne(t, f)
	h := &CheckAvailabilityHandler{UoWFactory: f.store}

	cases := []struct {
		name  string
		start time.Time
		days  int
		code  string
	}{
		{"free", day(2024, 7, 4), 2, ""},
		{"conflict", day(2024, 7, 2), 1, domainbooking.CodeConflict},
		{"window", day(2024, 5, 30), 2, domainbooking.CodeDateRangeInvalid},
		{"missing", time.Time{}, 2, domainbooking.CodeMissingFields},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.Handle(ctx, CheckAvailabilityQuery{ListingID: "l-1", Start: tc.start, DurationDays: tc.days})
			require.NoError(t, err)
			assert.Equal(t, tc.code == "", got.Available)
			assert.Equal(t, tc.code, got.Code)
		})
	}
}

func TestRejectedReservationFreesDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := requestOne(t, f)
	_, err := f.decideHandler().Reject().Handle(ctx, RejectReservationCommand{Actor: owner, ReservationID: id})
	require.NoError(t, err)

	got, err := (&CheckAvailabilityHandler{UoWFactory: f.store}).Handle(ctx, CheckAvailabilityQuery{ListingID: "l-1", Start: day(2024, 7, 1), DurationDays: 3})
	require.NoError(t, err)
	assert.True(t, got.Available)
}

func TestListOwnerReservationsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := requestOne(t, f)
	_, err := f.requestHandler().Handle(ctx, RequestReservationCommand{Actor: other, ListingID: "l-1", Start: day(2024, 8, 1), DurationDays: 2})
	require.NoError(t, err)
	_, err = f.decideHandler().Confirm().Handle(ctx, ConfirmReservationCommand{Actor: owner, ReservationID: first})
	require.NoError(t, err)

	h := &ListOwnerReservationsHandler{UoWFactory: f.store}
	pending, err := h.Handle(ctx, ListOwnerReservationsQuery{Actor: owner})
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, "bob@example.com", pending.Items[0].CustomerEmail)

	all, err := h.Handle(ctx, ListOwnerReservationsQuery{Actor: owner, Status: "all"})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	_, err = h.Handle(ctx, ListOwnerReservationsQuery{Actor: owner, Status: "approved"})
	assert.ErrorIs(t, err, domainbooking.ErrUnknownStatus)

	_, err = h.Handle(ctx, ListOwnerReservationsQuery{Actor: customer})
	assert.ErrorIs(t, err, auth.ErrForbiddenForRole)
}

func TestListCustomerReservationsMarksReviewable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := requestOne(t, f)
	_, err := f.decideHandler().Confirm().Handle(ctx, ConfirmReservationCommand{Actor: owner, ReservationID: id})
	require.NoError(t, err)

	got, err := (&ListCustomerReservationsHandler{UoWFactory: f.store}).Handle(ctx, ListCustomerReservationsQuery{Actor: customer})
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].CanReview)
}

func TestWatchPendingReservationsStreamsChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := requestOne(t, f)
	require.NoError(t, f.box.Flush(ctx))

	stream, err := (&WatchPendingReservationsHandler{UoWFactory: f.store, Hub: f.hub}).Handle(ctx, WatchPendingReservationsQuery{Actor: owner})
	require.NoError(t, err)
	defer stream.Cancel()
	require.Len(t, stream.Snapshot, 1)
	assert.Equal(t, first, stream.Snapshot[0].Reservation.ID)

	_, err = f.decideHandler().Confirm().Handle(ctx, ConfirmReservationCommand{Actor: owner, ReservationID: first})
	require.NoError(t, err)
	require.NoError(t, f.box.Flush(ctx))

	select {
	case change := <-stream.Updates:
		assert.Equal(t, domainbooking.EventReservationConfirmed, change.Event)
		assert.Equal(t, "confirmed", change.Reservation.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("no live update")
	}

	stream.Cancel()
	_, open := <-stream.Updates
	assert.False(t, open)
	assert.NoError(t, stream.Err())
}
