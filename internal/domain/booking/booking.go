package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehub/internal/domain/listings"
	"warehub/internal/domain/shared/daterange"
	"warehub/internal/domain/shared/events"
	"warehub/internal/domain/user"
)

var (
	ErrInvalidState        = errors.New("booking: reservation is already decided")
	ErrTransitionConflict  = errors.New("booking: reservation changed concurrently")
	ErrNotFound            = errors.New("booking: reservation not found")
	ErrNotReservationOwner = errors.New("booking: only the listing owner may decide this reservation")
	ErrOwnReservation      = errors.New("booking: owners cannot reserve their own listing")
	ErrCustomerRequired    = errors.New("booking: customer identity is required")
	ErrUnknownStatus       = errors.New("booking: unknown status")
)

type ReservationID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

// Active reports whether the status still holds dates on the listing calendar.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownStatus, raw)
	}
}

// Reservation is a customer's date-ranged request against one listing. Owner
// and listing details are copied at creation so later listing edits or
// deletion do not change who may decide it.
type Reservation struct {
	ID            ReservationID
	ListingID     listings.ListingID
	ListingName   string
	CustomerID    user.ID
	CustomerEmail string
	OwnerID       listings.OwnerID
	OwnerEmail    string
	Start         time.Time
	DurationDays  int
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ReservationID) (*Reservation, error)
	Create(ctx context.Context, r *Reservation) error
	// Transition persists r only if the stored status still equals from.
	Transition(ctx context.Context, r *Reservation, from Status) error
	ListByListing(ctx context.Context, listingID listings.ListingID, statuses ...Status) ([]*Reservation, error)
	ListByOwner(ctx context.Context, owner listings.OwnerID, statuses ...Status) ([]*Reservation, error)
	ListByCustomer(ctx context.Context, customer user.ID) ([]*Reservation, error)
	HasStatus(ctx context.Context, listingID listings.ListingID, customer user.ID, status Status) (bool, error)
	// LockListing serializes reservation creation for a listing within the
	// current unit of work.
	LockListing(ctx context.Context, listingID listings.ListingID) error
}

type CreateParams struct {
	ID            ReservationID
	Listing       *listings.Listing
	CustomerID    user.ID
	CustomerEmail string
	Start         time.Time
	DurationDays  int
	CreatedAt     time.Time
}

// NewReservation validates the request against the listing window and the
// listing's active reservations, in that order.
func NewReservation(params CreateParams, existing []*Reservation) (*Reservation, error) {
	if params.Listing == nil {
		return nil, listings.ErrNotFound
	}
	if strings.TrimSpace(string(params.CustomerID)) == "" {
		return nil, ErrCustomerRequired
	}
	if user.ID(params.Listing.OwnerID) == params.CustomerID {
		return nil, ErrOwnReservation
	}
	proposed, err := ValidateRequest(params.Listing, params.Start, params.DurationDays)
	if err != nil {
		return nil, err
	}
	if CheckConflict(proposed, existing) {
		return nil, ErrConflict
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	r := &Reservation{
		ID:            params.ID,
		ListingID:     params.Listing.ID,
		ListingName:   params.Listing.Name,
		CustomerID:    params.CustomerID,
		CustomerEmail: strings.ToLower(strings.TrimSpace(params.CustomerEmail)),
		OwnerID:       params.Listing.OwnerID,
		OwnerEmail:    params.Listing.OwnerEmail,
		Start:         proposed.Start,
		DurationDays:  params.DurationDays,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.Record(ReservationRequested{Reservation: r.Snapshot(), At: now})
	return r, nil
}

func (r *Reservation) Range() daterange.DateRange {
	return daterange.DateRange{Start: r.Start, End: r.End()}
}

func (r *Reservation) End() time.Time {
	return r.Start.AddDate(0, 0, r.DurationDays)
}

func (r *Reservation) DecidableBy(owner listings.OwnerID) bool {
	return owner != "" && r.OwnerID == owner
}

func (r *Reservation) Confirm(now time.Time) error {
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = StatusConfirmed
	r.UpdatedAt = now.UTC()
	r.Record(ReservationConfirmed{Reservation: r.Snapshot(), At: r.UpdatedAt})
	return nil
}

func (r *Reservation) Reject(now time.Time) error {
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = StatusRejected
	r.UpdatedAt = now.UTC()
	r.Record(ReservationRejected{Reservation: r.Snapshot(), At: r.UpdatedAt})
	return nil
}

// Snapshot is the event payload view of a reservation.
func (r *Reservation) Snapshot() ReservationSnapshot {
	return ReservationSnapshot{
		ID:            r.ID,
		ListingID:     r.ListingID,
		ListingName:   r.ListingName,
		CustomerID:    r.CustomerID,
		CustomerEmail: r.CustomerEmail,
		OwnerID:       r.OwnerID,
		Start:         r.Start,
		DurationDays:  r.DurationDays,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
