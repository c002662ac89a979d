package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"warehub/internal/app/dto"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/queries"
	"warehub/internal/app/uow"
	domainbooking "warehub/internal/domain/booking"
	domainlistings "warehub/internal/domain/listings"
)

const checkAvailabilityKey = "booking.availability.check"

type CheckAvailabilityQuery struct {
	ListingID    string `validate:"notblank"`
	Start        time.Time
	DurationDays int
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

// CheckAvailabilityHandler answers whether a request would be accepted right
// now. Rejections are reported in the result, not as errors.
type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	return handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.Availability, error) {
		listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(q.ListingID)))
		if err != nil {
			return dto.Availability{}, err
		}
		proposed, err := domainbooking.ValidateRequest(listing, q.Start, q.DurationDays)
		if err != nil {
			return rejection(err)
		}
		existing, err := unit.Reservations().ListByListing(ctx, listing.ID, domainbooking.StatusPending, domainbooking.StatusConfirmed)
		if err != nil {
			return dto.Availability{}, err
		}
		if domainbooking.CheckConflict(proposed, existing) {
			return rejection(domainbooking.ErrConflict)
		}
		return dto.Availability{Available: true}, nil
	})
}

func rejection(err error) (dto.Availability, error) {
	code := domainbooking.RejectionCode(err)
	if code == "" {
		return dto.Availability{}, err
	}
	return dto.Availability{Available: false, Code: code, Reason: reasonText(err)}, nil
}

func reasonText(err error) string {
	switch {
	case errors.Is(err, domainbooking.ErrMissingFields):
		return "Start date and a duration of at least one day are required."
	case errors.Is(err, domainbooking.ErrDateRangeInvalid):
		return "Selected dates are outside the listing's availability."
	case errors.Is(err, domainbooking.ErrConflict):
		return "Selected dates are already booked."
	default:
		return err.Error()
	}
}

// RejectionReason is the customer-facing text for a request rejection.
func RejectionReason(err error) string { return reasonText(err) }

var _ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)
