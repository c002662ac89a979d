package reviews

import (
	"context"
	"time"

	"warehub/internal/app/uow"
	domainlistings "warehub/internal/domain/listings"
	domainreviews "warehub/internal/domain/reviews"
)

// recalculateListingRating recomputes the mean from every stored review and
// writes only the rating field of the listing.
func recalculateListingRating(ctx context.Context, unit uow.UnitOfWork, listingID domainlistings.ListingID, now time.Time) (*float64, int, error) {
	all, err := unit.Reviews().ListByListing(ctx, listingID)
	if err != nil {
		return nil, 0, err
	}
	average := domainreviews.Average(all)
	if err := unit.Listings().UpdateRating(ctx, listingID, average, now); err != nil {
		return nil, 0, err
	}
	return average, len(all), nil
}
