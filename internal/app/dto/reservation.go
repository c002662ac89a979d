package dto

import (
	"time"

	domainbooking "warehub/internal/domain/booking"
	"warehub/internal/domain/shared/daterange"
)

type Reservation struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listing_id"`
	ListingName   string    `json:"listing_name"`
	CustomerID    string    `json:"customer_id"`
	CustomerEmail string    `json:"customer_email"`
	OwnerID       string    `json:"owner_id"`
	OwnerEmail    string    `json:"owner_email"`
	Start         string    `json:"start"`
	End           string    `json:"end"`
	DurationDays  int       `json:"duration_days"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CanReview     bool      `json:"can_review,omitempty"`
}

type ReservationCollection struct {
	Items []Reservation `json:"items"`
}

// ReservationDecision is returned by confirm and reject. Changed is false when
// the reservation already had the requested status.
type ReservationDecision struct {
	Reservation Reservation `json:"reservation"`
	Changed     bool        `json:"changed"`
}

type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Code      string `json:"code,omitempty"`
}

// ReservationChange is one live update on an owner's reservation stream.
type ReservationChange struct {
	Event       string      `json:"event"`
	Reservation Reservation `json:"reservation"`
	At          time.Time   `json:"at"`
}

func MapReservation(r *domainbooking.Reservation) Reservation {
	if r == nil {
		return Reservation{}
	}
	return Reservation{
		ID:            string(r.ID),
		ListingID:     string(r.ListingID),
		ListingName:   r.ListingName,
		CustomerID:    string(r.CustomerID),
		CustomerEmail: r.CustomerEmail,
		OwnerID:       string(r.OwnerID),
		OwnerEmail:    r.OwnerEmail,
		Start:         daterange.Format(r.Start),
		End:           daterange.Format(r.End()),
		DurationDays:  r.DurationDays,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func MapReservationSnapshot(s domainbooking.ReservationSnapshot) Reservation {
	return Reservation{
		ID:            string(s.ID),
		ListingID:     string(s.ListingID),
		ListingName:   s.ListingName,
		CustomerID:    string(s.CustomerID),
		CustomerEmail: s.CustomerEmail,
		OwnerID:       string(s.OwnerID),
		Start:         daterange.Format(s.Start),
		End:           daterange.Format(s.Start.AddDate(0, 0, s.DurationDays)),
		DurationDays:  s.DurationDays,
		Status:        string(s.Status),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}
