package reviews

import (
	"context"
	"sort"
	"strings"

	"warehub/internal/app/dto"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/queries"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainbooking "warehub/internal/domain/booking"
	domainlistings "warehub/internal/domain/listings"
	domainreviews "warehub/internal/domain/reviews"
	domainuser "warehub/internal/domain/user"
)

const (
	listReviewsKey       = "reviews.list"
	reviewEligibilityKey = "reviews.eligibility"
)

type ListReviewsQuery struct {
	ListingID string `validate:"notblank"`
}

func (q ListReviewsQuery) Key() string { return listReviewsKey }

type ListReviewsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListReviewsHandler) Handle(ctx context.Context, q ListReviewsQuery) (dto.ReviewCollection, error) {
	listingID := domainlistings.ListingID(strings.TrimSpace(q.ListingID))
	return handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.ReviewCollection, error) {
		if _, err := unit.Listings().ByID(ctx, listingID); err != nil {
			return dto.ReviewCollection{}, err
		}
		items, err := unit.Reviews().ListByListing(ctx, listingID)
		if err != nil {
			return dto.ReviewCollection{}, err
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		})
		out := dto.ReviewCollection{
			Items:         make([]dto.Review, 0, len(items)),
			Total:         len(items),
			AverageRating: domainreviews.Average(items),
		}
		for _, r := range items {
			out.Items = append(out.Items, dto.MapReview(r))
		}
		return out, nil
	})
}

type ReviewEligibilityQuery struct {
	Actor     auth.Actor
	ListingID string `validate:"notblank"`
}

func (q ReviewEligibilityQuery) Key() string              { return reviewEligibilityKey }
func (q ReviewEligibilityQuery) RequestActor() auth.Actor { return q.Actor }

type ReviewEligibilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ReviewEligibilityHandler) Handle(ctx context.Context, q ReviewEligibilityQuery) (dto.ReviewEligibility, error) {
	if q.Actor.Role != domainuser.RoleCustomer {
		return dto.ReviewEligibility{}, nil
	}
	listingID := domainlistings.ListingID(strings.TrimSpace(q.ListingID))
	return handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.ReviewEligibility, error) {
		eligible, err := unit.Reservations().HasStatus(ctx, listingID, q.Actor.UserID, domainbooking.StatusConfirmed)
		if err != nil {
			return dto.ReviewEligibility{}, err
		}
		reviewed, err := unit.Reviews().ExistsFor(ctx, listingID, q.Actor.UserID)
		if err != nil {
			return dto.ReviewEligibility{}, err
		}
		return dto.ReviewEligibility{Eligible: eligible, AlreadyReviewed: reviewed}, nil
	})
}

var (
	_ queries.Handler[ListReviewsQuery, dto.ReviewCollection]        = (*ListReviewsHandler)(nil)
	_ queries.Handler[ReviewEligibilityQuery, dto.ReviewEligibility] = (*ReviewEligibilityHandler)(nil)
)
