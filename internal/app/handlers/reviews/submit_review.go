package reviews

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"warehub/internal/app/commands"
	"warehub/internal/app/dto"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/middleware"
	"warehub/internal/app/outbox"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainbooking "warehub/internal/domain/booking"
	domainlistings "warehub/internal/domain/listings"
	domainreviews "warehub/internal/domain/reviews"
	domainuser "warehub/internal/domain/user"
)

const submitReviewKey = "reviews.submit"

type SubmitReviewCommand struct {
	Actor     auth.Actor
	ListingID string `validate:"notblank"`
	Rating    int
	Body      string
}

func (c SubmitReviewCommand) Key() string              { return submitReviewKey }
func (c SubmitReviewCommand) RequestActor() auth.Actor { return c.Actor }

// SubmitReviewHandler stores a review from a customer with a confirmed
// reservation and refreshes the listing average in the same unit.
type SubmitReviewHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Clock      func() time.Time
	IDs        func() string
	// UniquePerCustomer limits each customer to one review per listing.
	UniquePerCustomer bool
}

func (h *SubmitReviewHandler) Handle(ctx context.Context, cmd SubmitReviewCommand) (dto.ReviewSubmission, error) {
	if !cmd.Actor.Authenticated() {
		return dto.ReviewSubmission{}, auth.ErrUnauthenticated
	}
	listingID := domainlistings.ListingID(strings.TrimSpace(cmd.ListingID))
	now := handlersupport.Now(h.Clock)
	params := domainreviews.SubmitParams{
		ListingID:     listingID,
		CustomerID:    cmd.Actor.UserID,
		CustomerEmail: cmd.Actor.Email,
		Rating:        cmd.Rating,
		Body:          cmd.Body,
		CreatedAt:     now,
	}
	if params.Empty() {
		return dto.ReviewSubmission{Submitted: false}, nil
	}
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return dto.ReviewSubmission{}, domainreviews.ErrInvalidRating
	}
	if cmd.Actor.Role != domainuser.RoleCustomer {
		return dto.ReviewSubmission{}, domainreviews.ErrNotEligible
	}

	return handlersupport.WithinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.ReviewSubmission, error) {
		if _, err := unit.Listings().ByID(ctx, listingID); err != nil {
			return dto.ReviewSubmission{}, err
		}
		eligible, err := unit.Reservations().HasStatus(ctx, listingID, cmd.Actor.UserID, domainbooking.StatusConfirmed)
		if err != nil {
			return dto.ReviewSubmission{}, err
		}
		if !eligible {
			return dto.ReviewSubmission{}, domainreviews.ErrNotEligible
		}

		if h.UniquePerCustomer {
			params.ID = domainreviews.UniqueID(listingID, cmd.Actor.UserID)
		} else {
			params.ID = domainreviews.ReviewID(handlersupport.NewID(h.IDs))
		}
		review, err := domainreviews.Submit(params)
		if err != nil {
			return dto.ReviewSubmission{}, err
		}
		if err := unit.Reviews().Create(ctx, review); err != nil {
			return dto.ReviewSubmission{}, err
		}
		average, count, err := recalculateListingRating(ctx, unit, listingID, now)
		if err != nil {
			return dto.ReviewSubmission{}, err
		}

		evs := review.DrainEvents()
		if average != nil {
			evs = append(evs, domainlistings.RatingRecomputed{ListingID: listingID, AverageRating: *average, ReviewCount: count, At: now})
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, evs); err != nil {
			return dto.ReviewSubmission{}, err
		}

		handlersupport.Logger(h.Logger).Info("review submitted",
			"review_id", review.ID,
			"listing_id", listingID,
			"rating", review.Rating,
			"reviews", count,
		)
		mapped := dto.MapReview(review)
		return dto.ReviewSubmission{Submitted: true, Review: &mapped, AverageRating: average}, nil
	})
}

var (
	_ commands.Handler[SubmitReviewCommand, dto.ReviewSubmission] = (*SubmitReviewHandler)(nil)
	_ middleware.ActorMessage                                     = SubmitReviewCommand{}
)
