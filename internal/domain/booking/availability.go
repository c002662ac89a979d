package booking

import (
	"errors"
	"time"

	"warehub/internal/domain/listings"
	"warehub/internal/domain/shared/daterange"
)

var (
	ErrMissingFields    = errors.New("booking: start date and a duration of at least one day are required")
	ErrDateRangeInvalid = errors.New("booking: start date is outside the listing availability window")
	ErrConflict         = errors.New("booking: selected dates overlap an existing reservation")
)

// Rejection codes surfaced to callers next to the human readable reason.
const (
	CodeMissingFields    = "missing_fields"
	CodeDateRangeInvalid = "date_range_invalid"
	CodeConflict         = "conflict"
)

// RejectionCode maps a request rejection to its stable code, or "" when err is
// not a request rejection.
func RejectionCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return CodeMissingFields
	case errors.Is(err, ErrDateRangeInvalid):
		return CodeDateRangeInvalid
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return ""
	}
}

// ValidateRequest checks the fields and the listing window. It does not look
// at other reservations.
func ValidateRequest(listing *listings.Listing, start time.Time, durationDays int) (daterange.DateRange, error) {
	if start.IsZero() || durationDays < 1 {
		return daterange.DateRange{}, ErrMissingFields
	}
	proposed, err := daterange.FromDays(start, durationDays)
	if err != nil {
		return daterange.DateRange{}, ErrMissingFields
	}
	if listing == nil || !listing.InWindow(proposed.Start) {
		return daterange.DateRange{}, ErrDateRangeInvalid
	}
	return proposed, nil
}

// CheckConflict reports whether proposed overlaps any pending or confirmed
// reservation in existing.
func CheckConflict(proposed daterange.DateRange, existing []*Reservation) bool {
	for _, r := range existing {
		if r == nil || !r.Status.Active() {
			continue
		}
		if proposed.Overlaps(r.Range()) {
			return true
		}
	}
	return false
}
