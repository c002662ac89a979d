package booking

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"warehub/internal/app/dto"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/middleware"
	"warehub/internal/app/queries"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainbooking "warehub/internal/domain/booking"
	domainlistings "warehub/internal/domain/listings"
	domainuser "warehub/internal/domain/user"
)

const (
	listOwnerReservationsKey    = "booking.reservations.owner"
	listCustomerReservationsKey = "booking.reservations.customer"
	allStatusesFilterValue      = "all"
)

type ListOwnerReservationsQuery struct {
	Actor auth.Actor
	// Status is a single status, "all", or empty for pending.
	Status string
}

func (q ListOwnerReservationsQuery) Key() string              { return listOwnerReservationsKey }
func (q ListOwnerReservationsQuery) RequestActor() auth.Actor { return q.Actor }

type ListOwnerReservationsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListOwnerReservationsHandler) Handle(ctx context.Context, q ListOwnerReservationsQuery) (dto.ReservationCollection, error) {
	if err := q.Actor.RequireRole(domainuser.RoleOwner); err != nil {
		return dto.ReservationCollection{}, err
	}
	statuses, err := statusFilter(q.Status)
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	return handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.ReservationCollection, error) {
		items, err := unit.Reservations().ListByOwner(ctx, domainlistings.OwnerID(q.Actor.UserID), statuses...)
		if err != nil {
			return dto.ReservationCollection{}, err
		}
		newestFirst(items)
		out := dto.ReservationCollection{Items: make([]dto.Reservation, 0, len(items))}
		for _, r := range items {
			out.Items = append(out.Items, dto.MapReservation(r))
		}
		handlersupport.Logger(h.Logger).Debug("owner reservations listed", "owner_id", q.Actor.UserID, "count", len(out.Items), "status", q.Status)
		return out, nil
	})
}

type ListCustomerReservationsQuery struct {
	Actor auth.Actor
}

func (q ListCustomerReservationsQuery) Key() string              { return listCustomerReservationsKey }
func (q ListCustomerReservationsQuery) RequestActor() auth.Actor { return q.Actor }

type ListCustomerReservationsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListCustomerReservationsHandler) Handle(ctx context.Context, q ListCustomerReservationsQuery) (dto.ReservationCollection, error) {
	if err := q.Actor.RequireRole(domainuser.RoleCustomer); err != nil {
		return dto.ReservationCollection{}, err
	}
	return handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.ReservationCollection, error) {
		items, err := unit.Reservations().ListByCustomer(ctx, q.Actor.UserID)
		if err != nil {
			return dto.ReservationCollection{}, err
		}
		newestFirst(items)
		reviewed := make(map[domainlistings.ListingID]bool)
		out := dto.ReservationCollection{Items: make([]dto.Reservation, 0, len(items))}
		for _, r := range items {
			item := dto.MapReservation(r)
			if r.Status == domainbooking.StatusConfirmed {
				done, ok := reviewed[r.ListingID]
				if !ok {
					done, err = unit.Reviews().ExistsFor(ctx, r.ListingID, q.Actor.UserID)
					if err != nil {
						return dto.ReservationCollection{}, err
					}
					reviewed[r.ListingID] = done
				}
				item.CanReview = !done
			}
			out.Items = append(out.Items, item)
		}
		return out, nil
	})
}

func statusFilter(raw string) ([]domainbooking.Status, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return []domainbooking.Status{domainbooking.StatusPending}, nil
	case allStatusesFilterValue:
		return nil, nil
	}
	status, err := domainbooking.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	return []domainbooking.Status{status}, nil
}

func newestFirst(items []*domainbooking.Reservation) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

var (
	_ queries.Handler[ListOwnerReservationsQuery, dto.ReservationCollection]    = (*ListOwnerReservationsHandler)(nil)
	_ queries.Handler[ListCustomerReservationsQuery, dto.ReservationCollection] = (*ListCustomerReservationsHandler)(nil)
	_ middleware.ActorMessage                                                   = ListOwnerReservationsQuery{}
)
