package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"warehub/internal/app/feed"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainconversation "warehub/internal/domain/conversation"
	domainlistings "warehub/internal/domain/listings"
	domainuser "warehub/internal/domain/user"
	"warehub/internal/infra/storage/memory"
)

var (
	owner    = auth.Actor{UserID: "owner-1", Email: "owner@example.com", Role: domainuser.RoleOwner}
	customer = auth.Actor{UserID: "cust-1", Email: "alice@example.com", Role: domainuser.RoleCustomer}
	other    = auth.Actor{UserID: "cust-2", Email: "bob@example.com", Role: domainuser.RoleCustomer}
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	store *memory.Store
	box   *memory.Outbox
	hub   *feed.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	hub := feed.NewHub(16, nil)
	t.Cleanup(hub.Close)
	f := &fixture{store: store, hub: hub, box: memory.NewOutbox(store, hub)}

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
			AvailableFrom: day(2024, 6, 1),
			AvailableTo:   day(2024, 12, 31),
			ImageURL:      "https://img.example.com/dock7.jpg",
		},
	})
	require.NoError(t, err)
	ctx := context.Background()
	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Listings().Save(ctx, listing))
	require.NoError(t, unit.Commit(ctx))
	return f
}

func (f *fixture) requestHandler() *RequestReservationHandler {
	return &RequestReservationHandler{UoWFactory: f.store, Outbox: f.box}
}

func (f *fixture) decideHandler() *DecideReservationHandler {
	return &DecideReservationHandler{UoWFactory: f.store, Outbox: f.box}
}

func (f *fixture) messages(t *testing.T, key domainconversation.Key) []*domainconversation.Message {
	t.Helper()
	ctx := context.Background()
	unit, err := f.store.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer unit.Rollback(ctx)
	msgs, err := unit.Messages().ListByKey(ctx, key)
	require.NoError(t, err)
	return msgs
}

var errMessagesDown = errors.New("messages unavailable")

// failingMessagesFactory wraps a factory so every Append fails.
type failingMessagesFactory struct {
	inner uow.UoWFactory
}

func (f failingMessagesFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	unit, err := f.inner.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return failingMessagesUnit{UnitOfWork: unit}, nil
}

type failingMessagesUnit struct {
	uow.UnitOfWork
}

func (u failingMessagesUnit) Messages() domainconversation.Repository {
	return failingMessages{Repository: u.UnitOfWork.Messages()}
}

type failingMessages struct {
	domainconversation.Repository
}

func (failingMessages) Append(context.Context, *domainconversation.Message) error {
	return errMessagesDown
}
