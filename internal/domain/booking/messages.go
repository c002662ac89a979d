package booking

import (
	"fmt"

	"warehub/internal/domain/shared/daterange"
)

// RequestedMessage is the conversation entry appended when a reservation is created.
func RequestedMessage(r *Reservation) string {
	return fmt.Sprintf("%s requested a booking of %s from %s for %d day(s).",
		r.CustomerEmail, r.ListingName, daterange.Format(r.Start), r.DurationDays)
}

// DecisionMessage is the conversation entry appended when the owner decides.
func DecisionMessage(r *Reservation) string {
	switch r.Status {
	case StatusConfirmed:
		return fmt.Sprintf("Booking confirmed from %s for %d day(s).", daterange.Format(r.Start), r.DurationDays)
	case StatusRejected:
		return fmt.Sprintf("Booking rejected from %s for %d day(s).", daterange.Format(r.Start), r.DurationDays)
	default:
		return ""
	}
}
