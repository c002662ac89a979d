package inquiries

import (
	"context"
	"errors"
	"strings"
	"time"

	"warehub/internal/domain/listings"
)

var (
	ErrFieldsRequired = errors.New("inquiries: name, email and message are required")
	ErrListingMissing = errors.New("inquiries: listing is required")
)

type InquiryID string

// Inquiry is a pre-booking contact form entry. The sender is not required to
// be a registered user.
type Inquiry struct {
	ID        InquiryID
	ListingID listings.ListingID
	Name      string
	Email     string
	Message   string
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, inquiry *Inquiry) error
	ListByListings(ctx context.Context, ids []listings.ListingID) ([]*Inquiry, error)
}

type NewParams struct {
	ID        InquiryID
	ListingID listings.ListingID
	Name      string
	Email     string
	Message   string
	CreatedAt time.Time
}

func New(params NewParams) (*Inquiry, error) {
	if strings.TrimSpace(string(params.ListingID)) == "" {
		return nil, ErrListingMissing
	}
	name := strings.TrimSpace(params.Name)
	email := strings.TrimSpace(params.Email)
	message := strings.TrimSpace(params.Message)
	if name == "" || email == "" || message == "" {
		return nil, ErrFieldsRequired
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	return &Inquiry{
		ID:        params.ID,
		ListingID: params.ListingID,
		Name:      name,
		Email:     email,
		Message:   message,
		CreatedAt: now.UTC(),
	}, nil
}

type Received struct {
	InquiryID InquiryID          `json:"inquiry_id"`
	ListingID listings.ListingID `json:"listing_id"`
	OwnerID   listings.OwnerID   `json:"owner_id"`
	At        time.Time          `json:"at"`
}

func (e Received) EventName() string     { return "inquiry.received" }
func (e Received) AggregateID() string   { return string(e.InquiryID) }
func (e Received) OccurredAt() time.Time { return e.At }
