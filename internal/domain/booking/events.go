package booking

import (
	"time"

	"warehub/internal/domain/listings"
	"warehub/internal/domain/user"
)

type ReservationSnapshot struct {
	ID            ReservationID      `json:"id"`
	ListingID     listings.ListingID `json:"listing_id"`
	ListingName   string             `json:"listing_name"`
	CustomerID    user.ID            `json:"customer_id"`
	CustomerEmail string             `json:"customer_email"`
	OwnerID       listings.OwnerID   `json:"owner_id"`
	Start         time.Time          `json:"start"`
	DurationDays  int                `json:"duration_days"`
	Status        Status             `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

const (
	EventReservationRequested = "booking.reservation_requested"
	EventReservationConfirmed = "booking.reservation_confirmed"
	EventReservationRejected  = "booking.reservation_rejected"
)

type ReservationRequested struct {
	Reservation ReservationSnapshot `json:"reservation"`
	At          time.Time           `json:"at"`
}

func (e ReservationRequested) EventName() string     { return EventReservationRequested }
func (e ReservationRequested) AggregateID() string   { return string(e.Reservation.ID) }
func (e ReservationRequested) OccurredAt() time.Time { return e.At }

type ReservationConfirmed struct {
	Reservation ReservationSnapshot `json:"reservation"`
	At          time.Time           `json:"at"`
}

func (e ReservationConfirmed) EventName() string     { return EventReservationConfirmed }
func (e ReservationConfirmed) AggregateID() string   { return string(e.Reservation.ID) }
func (e ReservationConfirmed) OccurredAt() time.Time { return e.At }

type ReservationRejected struct {
	Reservation ReservationSnapshot `json:"reservation"`
	At          time.Time           `json:"at"`
}

func (e ReservationRejected) EventName() string     { return EventReservationRejected }
func (e ReservationRejected) AggregateID() string   { return string(e.Reservation.ID) }
func (e ReservationRejected) OccurredAt() time.Time { return e.At }
