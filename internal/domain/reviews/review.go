package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"warehub/internal/domain/listings"
	"warehub/internal/domain/shared/events"
	"warehub/internal/domain/user"
)

var (
	ErrInvalidRating   = errors.New("reviews: rating must be between 1 and 5")
	ErrBodyRequired    = errors.New("reviews: review text is required")
	ErrNotEligible     = errors.New("reviews: a confirmed reservation on this listing is required to review it")
	ErrAlreadyReviewed = errors.New("reviews: this listing was already reviewed by the customer")
	ErrNotFound        = errors.New("reviews: not found")
)

type ReviewID string

type Review struct {
	ID            ReviewID
	ListingID     listings.ListingID
	CustomerID    user.ID
	CustomerEmail string
	Rating        int
	Body          string
	CreatedAt     time.Time
	events.EventRecorder
}

type Repository interface {
	// Create fails with ErrAlreadyReviewed when a review with the same id exists.
	Create(ctx context.Context, review *Review) error
	ListByListing(ctx context.Context, listingID listings.ListingID) ([]*Review, error)
	ExistsFor(ctx context.Context, listingID listings.ListingID, customer user.ID) (bool, error)
}

// UniqueID is the deterministic id used when one review per customer per
// listing is enforced. Inserting it twice collides in the store.
func UniqueID(listingID listings.ListingID, customer user.ID) ReviewID {
	return ReviewID(string(listingID) + ":" + string(customer))
}

type SubmitParams struct {
	ID            ReviewID
	ListingID     listings.ListingID
	CustomerID    user.ID
	CustomerEmail string
	Rating        int
	Body          string
	CreatedAt     time.Time
}

// Empty reports input that is dropped without an error: no rating or no text.
func (p SubmitParams) Empty() bool {
	return p.Rating == 0 || strings.TrimSpace(p.Body) == ""
}

func Submit(params SubmitParams) (*Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return nil, ErrInvalidRating
	}
	body := strings.TrimSpace(params.Body)
	if body == "" {
		return nil, ErrBodyRequired
	}
	review := &Review{
		ID:            params.ID,
		ListingID:     params.ListingID,
		CustomerID:    params.CustomerID,
		CustomerEmail: strings.ToLower(strings.TrimSpace(params.CustomerEmail)),
		Rating:        params.Rating,
		Body:          body,
		CreatedAt:     params.CreatedAt.UTC(),
	}
	review.Record(ReviewSubmitted{ReviewID: review.ID, ListingID: review.ListingID, CustomerID: review.CustomerID, Rating: review.Rating, At: review.CreatedAt})
	return review, nil
}

// Average is the arithmetic mean of all ratings, nil when there are none.
// The value is not rounded.
func Average(all []*Review) *float64 {
	if len(all) == 0 {
		return nil
	}
	sum := 0
	for _, r := range all {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(all))
	return &avg
}
