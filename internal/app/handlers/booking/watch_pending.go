package booking

import (
	"context"
	"encoding/json"
	"log/slog"

	"warehub/internal/app/dto"
	"warehub/internal/app/feed"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/queries"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainbooking "warehub/internal/domain/booking"
	domainlistings "warehub/internal/domain/listings"
	domainuser "warehub/internal/domain/user"
)

const watchPendingKey = "booking.reservations.watch"

type WatchPendingReservationsQuery struct {
	Actor auth.Actor
}

func (q WatchPendingReservationsQuery) Key() string              { return watchPendingKey }
func (q WatchPendingReservationsQuery) RequestActor() auth.Actor { return q.Actor }

// ReservationStream starts with the pending reservations and then carries
// every request, confirmation, and rejection on the owner's listings.
type ReservationStream = feed.Stream[dto.ReservationChange]

type WatchPendingReservationsHandler struct {
	UoWFactory uow.UoWFactory
	Hub        *feed.Hub
	Logger     *slog.Logger
}

func (h *WatchPendingReservationsHandler) Handle(ctx context.Context, q WatchPendingReservationsQuery) (*ReservationStream, error) {
	if err := q.Actor.RequireRole(domainuser.RoleOwner); err != nil {
		return nil, err
	}
	owner := domainlistings.OwnerID(q.Actor.UserID)
	sub := h.Hub.Subscribe(feed.OwnerReservationsTopic(owner))

	pending, err := handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) ([]*domainbooking.Reservation, error) {
		return unit.Reservations().ListByOwner(ctx, owner, domainbooking.StatusPending)
	})
	if err != nil {
		sub.Cancel()
		return nil, err
	}
	newestFirst(pending)

	seen := make(map[domainbooking.ReservationID]bool, len(pending))
	snapshot := make([]dto.ReservationChange, 0, len(pending))
	for _, r := range pending {
		seen[r.ID] = true
		snapshot = append(snapshot, dto.ReservationChange{
			Event:       domainbooking.EventReservationRequested,
			Reservation: dto.MapReservation(r),
			At:          r.CreatedAt,
		})
	}

	handlersupport.Logger(h.Logger).Debug("pending reservations stream opened", "owner_id", owner, "pending", len(snapshot))
	return feed.Follow(ctx, sub, snapshot, func(ev feed.Event) (dto.ReservationChange, bool, error) {
		var payload struct {
			Reservation domainbooking.ReservationSnapshot `json:"reservation"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return dto.ReservationChange{}, false, err
		}
		if ev.Name == domainbooking.EventReservationRequested && seen[payload.Reservation.ID] {
			return dto.ReservationChange{}, false, nil
		}
		return dto.ReservationChange{
			Event:       ev.Name,
			Reservation: dto.MapReservationSnapshot(payload.Reservation),
			At:          ev.OccurredAt,
		}, true, nil
	}), nil
}

var _ queries.Handler[WatchPendingReservationsQuery, *ReservationStream] = (*WatchPendingReservationsHandler)(nil)
