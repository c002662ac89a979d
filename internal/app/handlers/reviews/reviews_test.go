package reviews

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainbooking "warehub/internal/domain/booking"
	domainlistings "warehub/internal/domain/listings"
	domainreviews "warehub/internal/domain/reviews"
	domainuser "warehub/internal/domain/user"
	"warehub/internal/infra/storage/memory"
)

var (
	owner = auth.Actor{UserID: "owner-1", Email: "owner@example.com", Role: domainuser.RoleOwner}
	alice = auth.Actor{UserID: "cust-1", Email: "alice@example.com", Role: domainuser.RoleCustomer}
	bob   = auth.Actor{UserID: "cust-2", Email: "bob@example.com", Role: domainuser.RoleCustomer}
	carol = auth.Actor{UserID: "cust-3", Email: "carol@example.com", Role: domainuser.RoleCustomer}
)

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:         "l-1",
		OwnerID:    domainlistings.OwnerID(owner.UserID),
		OwnerEmail: owner.Email,
		Details: domainlistings.Details{
			Name:          "Dock 7",
			Location:      "Rotterdam",
			AreaSqM:       1200,
			RentPerArea:   4.5,
			Industry:      "logistics",
			AvailableFrom: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			AvailableTo:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			ImageURL:      "https://img.example.com/dock7.jpg",
		},
	})
	require.NoError(t, err)

	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Listings().Save(ctx, listing))
	for i, actor := range []auth.Actor{alice, bob} {
		res, err := domainbooking.NewReservation(domainbooking.CreateParams{
			ID:            domainbooking.ReservationID("r-" + string(actor.UserID)),
			Listing:       listing,
			CustomerID:    actor.UserID,
			CustomerEmail: actor.Email,
			Start:         time.Date(2024, 7, 1+i*10, 0, 0, 0, 0, time.UTC),
			DurationDays:  3,
		}, nil)
		require.NoError(t, err)
		require.NoError(t, unit.Reservations().Create(ctx, res))
		require.NoError(t, res.Confirm(time.Now()))
		require.NoError(t, unit.Reservations().Transition(ctx, res, domainbooking.StatusPending))
	}
	require.NoError(t, unit.Commit(ctx))
	return store
}

func averageOf(t *testing.T, store *memory.Store) *float64 {
	t.Helper()
	ctx := context.Background()
	unit, err := store.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer unit.Rollback(ctx)
	listing, err := unit.Listings().ByID(ctx, "l-1")
	require.NoError(t, err)
	return listing.AverageRating
}

func TestSubmitReviewRecomputesMean(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	h := &SubmitReviewHandler{UoWFactory: store, UniquePerCustomer: true}

	first, err := h.Handle(ctx, SubmitReviewCommand{Actor: alice, ListingID: "l-1", Rating: 5, Body: "Great"})
	require.NoError(t, err)
	assert.True(t, first.Submitted)

	second, err := h.Handle(ctx, SubmitReviewCommand{Actor: bob, ListingID: "l-1", Rating: 2, Body: "Leaky roof"})
	require.NoError(t, err)
	require.NotNil(t, second.AverageRating)
	assert.InDelta(t, 3.5, *second.AverageRating, 1e-9)

	avg := averageOf(t, store)
	require.NotNil(t, avg)
	assert.InDelta(t, 3.5, *avg, 1e-9)

	list, err := (&ListReviewsHandler{UoWFactory: store}).Handle(ctx, ListReviewsQuery{ListingID: "l-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	require.NotNil(t, list.AverageRating)
	assert.InDelta(t, 3.5, *list.AverageRating, 1e-9)
}

func TestSubmitReviewIneligibleLeavesAverage(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	h := &SubmitReviewHandler{UoWFactory: store, UniquePerCustomer: true}

	_, err := h.Handle(ctx, SubmitReviewCommand{Actor: alice, ListingID: "l-1", Rating: 4, Body: "Fine"})
	require.NoError(t, err)

	_, err = h.Handle(ctx, SubmitReviewCommand{Actor: carol, ListingID: "l-1", Rating: 1, Body: "Never stayed"})
	assert.ErrorIs(t, err, domainreviews.ErrNotEligible)

	_, err = h.Handle(ctx, SubmitReviewCommand{Actor: owner, ListingID: "l-1", Rating: 5, Body: "Mine is best"})
	assert.ErrorIs(t, err, domainreviews.ErrNotEligible)

	avg := averageOf(t, store)
	require.NotNil(t, avg)
	assert.InDelta(t, 4.0, *avg, 1e-9)
}

func TestSubmitReviewEmptyInputIsIgnored(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	h := &SubmitReviewHandler{UoWFactory: store, UniquePerCustomer: true}

	for _, cmd := range []SubmitReviewCommand{
		{Actor: alice, ListingID: "l-1", Rating: 0, Body: "text"},
		{Actor: alice, ListingID: "l-1", Rating: 4, Body: "  "},
		{Actor: carol, ListingID: "l-1", Rating: 0, Body: ""},
	} {
		got, err := h.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.False(t, got.Submitted)
	}
	assert.Nil(t, averageOf(t, store))

	_, err := h.Handle(ctx, SubmitReviewCommand{Actor: alice, ListingID: "l-1", Rating: 6, Body: "text"})
	assert.ErrorIs(t, err, domainreviews.ErrInvalidRating)
}

func TestSubmitReviewUniqueness(t *testing.T) {
	ctx := context.Background()

	unique := newStore(t)
	h := &SubmitReviewHandler{UoWFactory: unique, UniquePerCustomer: true}
	_, err := h.Handle(ctx, SubmitReviewCommand{Actor: alice, ListingID: "l-1", Rating: 5, Body: "one"})
	require.NoError(t, err)
	_, err = h.Handle(ctx, SubmitReviewCommand{Actor: alice, ListingID: "l-1", Rating: 1, Body: "two"})
	assert.ErrorIs(t, err, domainreviews.ErrAlreadyReviewed)

	open := newStore(t)
	h = &SubmitReviewHandler{UoWFactory: open, UniquePerCustomer: false}
	_, err = h.Handle(ctx, SubmitReviewCommand{Actor: alice, ListingID: "l-1", Rating: 5, Body: "one"})
	require.NoError(t, err)
	got, err := h.Handle(ctx, SubmitReviewCommand{Actor: alice, ListingID: "l-1", Rating: 2, Body: "two"})
	require.NoError(t, err)
	require.NotNil(t, got.AverageRating)
	assert.InDelta(t, 3.5, *got.AverageRating, 1e-9)
}

func TestReviewEligibility(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	h := &ReviewEligibilityHandler{UoWFactory: store}

	got, err := h.Handle(ctx, ReviewEligibilityQuery{Actor: alice, ListingID: "l-1"})
	require.NoError(t, err)
	assert.Equal(t, true, got.Eligible)
	assert.False(t, got.AlreadyReviewed)

	got, err = h.Handle(ctx, ReviewEligibilityQuery{Actor: carol, ListingID: "l-1"})
	require.NoError(t, err)
	assert.False(t, got.Eligible)

	got, err = h.Handle(ctx, ReviewEligibilityQuery{Actor: owner, ListingID: "l-1"})
	require.NoError(t, err)
	assert.False(t, got.Eligible)
}
