package ginserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	bookingapp "warehub/internal/app/handlers/booking"
	"warehub/internal/app/middleware"
	authsvc "warehub/internal/app/services/auth"
	domainauth "warehub/internal/domain/auth"
	domainbooking "warehub/internal/domain/booking"
	domainconversation "warehub/internal/domain/conversation"
	domaininquiries "warehub/internal/domain/inquiries"
	domainlistings "warehub/internal/domain/listings"
	domainreviews "warehub/internal/domain/reviews"
	"warehub/internal/domain/shared/daterange"
	domainuser "warehub/internal/domain/user"
	mongostore "warehub/internal/infra/db/mongo"
	"warehub/internal/infra/validation"
)

var errBadRequest = errors.New("invalid request")

type errorMapping struct {
	status int
	errs   []error
}

var errorStatuses = []errorMapping{
	{http.StatusUnauthorized, []error{
		domainauth.ErrUnauthenticated,
		domainauth.ErrTokenRequired,
		domainauth.ErrInvalidToken,
		authsvc.ErrWrongCredentials,
		authsvc.ErrUnknownUser,
	}},
	{http.StatusForbidden, []error{
		domainauth.ErrForbiddenForRole,
		domainlistings.ErrNotOwner,
		domainbooking.ErrNotReservationOwner,
		domainbooking.ErrOwnReservation,
		domainconversation.ErrNotParticipant,
		domainreviews.ErrNotEligible,
	}},
	{http.StatusNotFound, []error{
		domainlistings.ErrNotFound,
		domainbooking.ErrNotFound,
		domainreviews.ErrNotFound,
	}},
	{http.StatusConflict, []error{
		authsvc.ErrEmailAlreadyRegistered,
		domainbooking.ErrConflict,
		domainbooking.ErrInvalidState,
		domainbooking.ErrTransitionConflict,
		domainlistings.ErrVersionConflict,
		domainreviews.ErrAlreadyReviewed,
		mongostore.ErrConcurrentUpdate,
		middleware.ErrIdempotencyKeyReused,
	}},
	{http.StatusUnprocessableEntity, []error{
		domainbooking.ErrDateRangeInvalid,
		domainlistings.ErrWindowInvalid,
	}},
	{http.StatusBadRequest, []error{
		errBadRequest,
		validation.ErrInvalid,
		authsvc.ErrMalformedEmail,
		authsvc.ErrWeakPassword,
		authsvc.ErrInvalidRole,
		domainuser.ErrNameRequired,
		domainuser.ErrEmailRequired,
		domainbooking.ErrMissingFields,
		domainbooking.ErrUnknownStatus,
		domainconversation.ErrEmptyBody,
		domainconversation.ErrKeyInvalid,
		domainreviews.ErrInvalidRating,
		domainreviews.ErrBodyRequired,
		domaininquiries.ErrFieldsRequired,
		domaininquiries.ErrListingMissing,
		domainlistings.ErrNameRequired,
		domainlistings.ErrLocationRequired,
		domainlistings.ErrIndustryRequired,
		domainlistings.ErrAreaInvalid,
		domainlistings.ErrRentInvalid,
		domainlistings.ErrNotNumeric,
		domainlistings.ErrWindowRequired,
		domainlistings.ErrImageRequired,
		daterange.ErrInvalidDate,
		daterange.ErrInvalidRange,
	}},
}

func statusFor(err error) int {
	for _, m := range errorStatuses {
		for _, target := range m.errs {
			if errors.Is(err, target) {
				return m.status
			}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondWithError writes {"error": ...}. Reservation rejections also carry
// a machine-readable reason, and validation failures list the fields.
func respondWithError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
		}
		msg := "internal error"
		if status == http.StatusServiceUnavailable {
			msg = "service unavailable"
		}
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}
	body := gin.H{"error": err.Error()}
	if code := domainbooking.RejectionCode(err); code != "" {
		body["reason"] = code
		body["error"] = bookingapp.RejectionReason(err)
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		fields := make([]gin.H, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, gin.H{"field": f.Field, "rule": f.Rule})
		}
		body["fields"] = fields
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%v: %v", errBadRequest, err)})
}
