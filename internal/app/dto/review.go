package dto

import (
	"time"

	domainreviews "warehub/internal/domain/reviews"
)

type Review struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listing_id"`
	CustomerID    string    `json:"customer_id"`
	CustomerEmail string    `json:"customer_email"`
	Rating        int       `json:"rating"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
}

type ReviewCollection struct {
	Items         []Review `json:"items"`
	Total         int      `json:"total"`
	AverageRating *float64 `json:"average_rating"`
}

// ReviewSubmission reports whether anything was stored. Empty input is
// accepted and ignored.
type ReviewSubmission struct {
	Submitted     bool     `json:"submitted"`
	Review        *Review  `json:"review,omitempty"`
	AverageRating *float64 `json:"average_rating,omitempty"`
}

type ReviewEligibility struct {
	Eligible        bool `json:"eligible"`
	AlreadyReviewed bool `json:"already_reviewed"`
}

func MapReview(review *domainreviews.Review) Review {
	if review == nil {
		return Review{}
	}
	return Review{
		ID:            string(review.ID),
		ListingID:     string(review.ListingID),
		CustomerID:    string(review.CustomerID),
		CustomerEmail: review.CustomerEmail,
		Rating:        review.Rating,
		Body:          review.Body,
		CreatedAt:     review.CreatedAt,
	}
}
