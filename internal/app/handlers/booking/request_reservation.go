package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"warehub/internal/app/commands"
	"warehub/internal/app/dto"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/middleware"
	"warehub/internal/app/outbox"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainbooking "warehub/internal/domain/booking"
	domainconversation "warehub/internal/domain/conversation"
	domainlistings "warehub/internal/domain/listings"
	domainuser "warehub/internal/domain/user"
)

const requestReservationKey = "booking.reservation.request"

type RequestReservationCommand struct {
	Actor           auth.Actor
	ListingID       string `validate:"notblank"`
	Start           time.Time
	DurationDays    int
	IdempotencyKeyV string
}

func (c RequestReservationCommand) Key() string { return requestReservationKey }

func (c RequestReservationCommand) RequestActor() auth.Actor { return c.Actor }

// IdempotencyKey is scoped to the requesting user so two customers sending the
// same header value never share a result.
func (c RequestReservationCommand) IdempotencyKey() string {
	key := strings.TrimSpace(c.IdempotencyKeyV)
	if key == "" {
		return ""
	}
	return requestReservationKey + ":" + string(c.Actor.UserID) + ":" + key
}

func (c RequestReservationCommand) ResultPrototype() any { return &dto.Reservation{} }

type RequestReservationHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Clock      func() time.Time
	IDs        func() string
}

func (h *RequestReservationHandler) Handle(ctx context.Context, cmd RequestReservationCommand) (*dto.Reservation, error) {
	if !cmd.Actor.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	return handlersupport.WithinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (*dto.Reservation, error) {
		listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(cmd.ListingID)))
		if err != nil {
			return nil, err
		}
		if listing.OwnedBy(domainlistings.OwnerID(cmd.Actor.UserID)) {
			return nil, domainbooking.ErrOwnReservation
		}
		if err := cmd.Actor.RequireRole(domainuser.RoleCustomer); err != nil {
			return nil, err
		}

		// Everything below runs with the listing's reservation set locked
		// until the unit ends.
		if err := unit.Reservations().LockListing(ctx, listing.ID); err != nil {
			return nil, err
		}
		existing, err := unit.Reservations().ListByListing(ctx, listing.ID, domainbooking.StatusPending, domainbooking.StatusConfirmed)
		if err != nil {
			return nil, err
		}
		now := handlersupport.Now(h.Clock)
		reservation, err := domainbooking.NewReservation(domainbooking.CreateParams{
			ID:            domainbooking.ReservationID(handlersupport.NewID(h.IDs)),
			Listing:       listing,
			CustomerID:    cmd.Actor.UserID,
			CustomerEmail: cmd.Actor.Email,
			Start:         cmd.Start,
			DurationDays:  cmd.DurationDays,
			CreatedAt:     now,
		}, existing)
		if err != nil {
			return nil, err
		}
		if err := unit.Reservations().Create(ctx, reservation); err != nil {
			return nil, err
		}

		msg, err := appendSystemMessage(ctx, unit, reservation, domainbooking.RequestedMessage(reservation), h.IDs)
		if err != nil {
			return nil, err
		}

		evs := append(reservation.DrainEvents(), domainconversation.Appended(msg))
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, evs); err != nil {
			return nil, err
		}

		handlersupport.Logger(h.Logger).Info("reservation requested",
			"reservation_id", reservation.ID,
			"listing_id", reservation.ListingID,
			"customer_id", reservation.CustomerID,
			"start", reservation.Start.Format(time.DateOnly),
			"days", reservation.DurationDays,
		)
		result := dto.MapReservation(reservation)
		return &result, nil
	})
}

// appendSystemMessage writes body into the reservation's conversation as a
// system entry.
func appendSystemMessage(ctx context.Context, unit uow.UnitOfWork, r *domainbooking.Reservation, body string, ids func() string) (*domainconversation.Message, error) {
	msg, err := domainconversation.NewMessage(domainconversation.NewParams{
		ID:            domainconversation.MessageID(handlersupport.NewID(ids)),
		Key:           domainconversation.Key{ListingID: r.ListingID, CustomerID: r.CustomerID},
		CustomerEmail: r.CustomerEmail,
		OwnerID:       r.OwnerID,
		ListingName:   r.ListingName,
		SenderRole:    domainconversation.SenderSystem,
		Body:          body,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Messages().Append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

var (
	_ commands.Handler[RequestReservationCommand, *dto.Reservation] = (*RequestReservationHandler)(nil)
	_ middleware.IdempotentCommand                                  = RequestReservationCommand{}
	_ middleware.ActorMessage                                       = RequestReservationCommand{}
)
