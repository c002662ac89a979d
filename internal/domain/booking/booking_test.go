package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehub/internal/domain/listings"
	"warehub/internal/domain/shared/daterange"
)

func date(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := daterange.ParseDay(raw)
	require.NoError(t, err)
	return d
}

func testListing(t *testing.T) *listings.Listing {
	t.Helper()
	l, err := listings.NewListing(listings.CreateParams{
		ID:         "l-1",
		OwnerID:    "o-1",
		OwnerEmail: "owner@example.com",
		Details: listings.Details{
			Name:          "North Hall",
			Location:      "Astana",
			AreaSqM:       500,
			RentPerArea:   3,
			Industry:      "retail",
			AvailableFrom: date(t, "2024-06-01"),
			AvailableTo:   date(t, "2024-07-31"),
			ImageURL:      "https://img/1.jpg",
		},
	})
	require.NoError(t, err)
	return l
}

func reservation(t *testing.T, start string, days int, status Status) *Reservation {
	t.Helper()
	return &Reservation{ID: ReservationID(start), ListingID: "l-1", Start: date(t, start), DurationDays: days, Status: status}
}

func TestCheckConflictBoundaries(t *testing.T) {
	existing := []*Reservation{reservation(t, "2024-06-01", 4, StatusConfirmed)}

	overlapping, err := daterange.FromDays(date(t, "2024-06-04"), 2)
	require.NoError(t, err)
	adjacent, err := daterange.FromDays(date(t, "2024-06-05"), 2)
	require.NoError(t, err)

	assert.True(t, CheckConflict(overlapping, existing))
	assert.False(t, CheckConflict(adjacent, existing))
}

func TestCheckConflictIgnoresRejected(t *testing.T) {
	existing := []*Reservation{reservation(t, "2024-06-01", 10, StatusRejected)}
	proposed, err := daterange.FromDays(date(t, "2024-06-03"), 2)
	require.NoError(t, err)

	assert.False(t, CheckConflict(proposed, existing))
}

func TestCheckConflictCountsPending(t *testing.T) {
	existing := []*Reservation{reservation(t, "2024-06-10", 3, StatusPending)}
	proposed, err := daterange.FromDays(date(t, "2024-06-12"), 1)
	require.NoError(t, err)

	assert.True(t, CheckConflict(proposed, existing))
}

func TestNewReservationValidationOrder(t *testing.T) {
	listing := testListing(t)
	base := CreateParams{ID: "r-1", Listing: listing, CustomerID: "c-1", CustomerEmail: "c@example.com"}

	p := base
	p.Start, p.DurationDays = date(t, "2024-07-01"), 0
	_, err := NewReservation(p, nil)
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Equal(t, CodeMissingFields, RejectionCode(err))

	p = base
	p.DurationDays = 3
	_, err = NewReservation(p, nil)
	assert.ErrorIs(t, err, ErrMissingFields)

	p = base
	p.Start, p.DurationDays = date(t, "2024-08-01"), 3
	_, err = NewReservation(p, []*Reservation{reservation(t, "2024-08-01", 3, StatusConfirmed)})
	assert.ErrorIs(t, err, ErrDateRangeInvalid)
	assert.Equal(t, CodeDateRangeInvalid, RejectionCode(err))

	p = base
	p.Start, p.DurationDays = date(t, "2024-07-01"), 3
	_, err = NewReservation(p, []*Reservation{reservation(t, "2024-07-02", 1, StatusPending)})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, CodeConflict, RejectionCode(err))
}

func TestNewReservationDenormalizesOwner(t *testing.T) {
	listing := testListing(t)
	r, err := NewReservation(CreateParams{
		ID:            "r-1",
		Listing:       listing,
		CustomerID:    "c-1",
		CustomerEmail: "C@Example.com",
		Start:         date(t, "2024-07-01"),
		DurationDays:  3,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, listings.OwnerID("o-1"), r.OwnerID)
	assert.Equal(t, "owner@example.com", r.OwnerEmail)
	assert.Equal(t, "North Hall", r.ListingName)
	assert.Equal(t, "c@example.com", r.CustomerEmail)
	assert.Equal(t, date(t, "2024-07-04"), r.End())
	require.Len(t, r.PendingEvents(), 1)
	assert.Equal(t, EventReservationRequested, r.PendingEvents()[0].EventName())
}

func TestNewReservationRejectsOwnerBookingOwnListing(t *testing.T) {
	_, err := NewReservation(CreateParams{
		ID: "r-1", Listing: testListing(t), CustomerID: "o-1", Start: date(t, "2024-07-01"), DurationDays: 1,
	}, nil)
	assert.ErrorIs(t, err, ErrOwnReservation)
}

func TestTransitionsAreTerminal(t *testing.T) {
	now := time.Now()

	r := reservation(t, "2024-07-01", 3, StatusPending)
	require.NoError(t, r.Reject(now))
	assert.Equal(t, StatusRejected, r.Status)
	assert.ErrorIs(t, r.Confirm(now), ErrInvalidState)
	assert.ErrorIs(t, r.Reject(now), ErrInvalidState)
	assert.Equal(t, StatusRejected, r.Status)

	r = reservation(t, "2024-07-01", 3, StatusPending)
	require.NoError(t, r.Confirm(now))
	assert.ErrorIs(t, r.Reject(now), ErrInvalidState)
	assert.Equal(t, StatusConfirmed, r.Status)
	assert.Len(t, r.PendingEvents(), 1)
}

func TestSystemMessageText(t *testing.T) {
	r := &Reservation{CustomerEmail: "c@example.com", ListingName: "North Hall", Start: date(t, "2024-07-01"), DurationDays: 3, Status: StatusPending}
	assert.Equal(t, "c@example.com requested a booking of North Hall from 2024-07-01 for 3 day(s).", RequestedMessage(r))

	r.Status = StatusConfirmed
	assert.Equal(t, "Booking confirmed from 2024-07-01 for 3 day(s).", DecisionMessage(r))

	r.Status = StatusRejected
	assert.Equal(t, "Booking rejected from 2024-07-01 for 3 day(s).", DecisionMessage(r))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Confirmed ")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)

	_, err = ParseStatus("approved")
	assert.Error(t, err)
}
