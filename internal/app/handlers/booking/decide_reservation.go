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
)

const (
	confirmReservationKey = "booking.reservation.confirm"
	rejectReservationKey  = "booking.reservation.reject"
)

type ConfirmReservationCommand struct {
	Actor         auth.Actor
	ReservationID string `validate:"notblank"`
}

func (c ConfirmReservationCommand) Key() string              { return confirmReservationKey }
func (c ConfirmReservationCommand) RequestActor() auth.Actor { return c.Actor }

type RejectReservationCommand struct {
	Actor         auth.Actor
	ReservationID string `validate:"notblank"`
}

func (c RejectReservationCommand) Key() string              { return rejectReservationKey }
func (c RejectReservationCommand) RequestActor() auth.Actor { return c.Actor }

// DecideReservationHandler confirms or rejects pending reservations on behalf
// of the listing owner recorded on the reservation.
type DecideReservationHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Clock      func() time.Time
	IDs        func() string
}

func (h *DecideReservationHandler) Confirm() commands.Handler[ConfirmReservationCommand, *dto.ReservationDecision] {
	return commands.HandlerFunc[ConfirmReservationCommand, *dto.ReservationDecision](func(ctx context.Context, cmd ConfirmReservationCommand) (*dto.ReservationDecision, error) {
		return h.decide(ctx, cmd.Actor, cmd.ReservationID, domainbooking.StatusConfirmed)
	})
}

func (h *DecideReservationHandler) Reject() commands.Handler[RejectReservationCommand, *dto.ReservationDecision] {
	return commands.HandlerFunc[RejectReservationCommand, *dto.ReservationDecision](func(ctx context.Context, cmd RejectReservationCommand) (*dto.ReservationDecision, error) {
		return h.decide(ctx, cmd.Actor, cmd.ReservationID, domainbooking.StatusRejected)
	})
}

func (h *DecideReservationHandler) decide(ctx context.Context, actor auth.Actor, rawID string, target domainbooking.Status) (*dto.ReservationDecision, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	id := domainbooking.ReservationID(strings.TrimSpace(rawID))
	return handlersupport.WithinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (*dto.ReservationDecision, error) {
		reservation, err := unit.Reservations().ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !reservation.DecidableBy(domainlistings.OwnerID(actor.UserID)) {
			return nil, domainbooking.ErrNotReservationOwner
		}
		if reservation.Status == target {
			return &dto.ReservationDecision{Reservation: dto.MapReservation(reservation), Changed: false}, nil
		}

		now := handlersupport.Now(h.Clock)
		switch target {
		case domainbooking.StatusConfirmed:
			err = reservation.Confirm(now)
		default:
			err = reservation.Reject(now)
		}
		if err != nil {
			return nil, err
		}
		if err := unit.Reservations().Transition(ctx, reservation, domainbooking.StatusPending); err != nil {
			return nil, err
		}

		msg, err := appendSystemMessage(ctx, unit, reservation, domainbooking.DecisionMessage(reservation), h.IDs)
		if err != nil {
			return nil, err
		}
		evs := append(reservation.DrainEvents(), domainconversation.Appended(msg))
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, evs); err != nil {
			return nil, err
		}

		handlersupport.Logger(h.Logger).Info("reservation decided",
			"reservation_id", reservation.ID,
			"listing_id", reservation.ListingID,
			"owner_id", actor.UserID,
			"status", reservation.Status,
		)
		return &dto.ReservationDecision{Reservation: dto.MapReservation(reservation), Changed: true}, nil
	})
}

var (
	_ middleware.ActorMessage = ConfirmReservationCommand{}
	_ middleware.ActorMessage = RejectReservationCommand{}
)
