package reviews

import (
	"time"

	"warehub/internal/domain/listings"
	"warehub/internal/domain/user"
)

type ReviewSubmitted struct {
	ReviewID   ReviewID           `json:"review_id"`
	ListingID  listings.ListingID `json:"listing_id"`
	CustomerID user.ID            `json:"customer_id"`
	Rating     int                `json:"rating"`
	At         time.Time          `json:"at"`
}

func (e ReviewSubmitted) EventName() string     { return "review.submitted" }
func (e ReviewSubmitted) AggregateID() string   { return string(e.ReviewID) }
func (e ReviewSubmitted) OccurredAt() time.Time { return e.At }
