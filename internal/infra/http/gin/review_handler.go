package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"warehub/internal/app/commands"
	"warehub/internal/app/dto"
	reviewapp "warehub/internal/app/handlers/reviews"
	"warehub/internal/app/queries"
)

type ReviewHTTP interface {
	List(c *gin.Context)
	Submit(c *gin.Context)
	Eligibility(c *gin.Context)
}

type ReviewHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type submitReviewRequest struct {
	Rating int    `json:"rating"`
	Body   string `json:"body"`
}

func (h ReviewHandler) List(c *gin.Context) {
	result, err := queries.Ask[reviewapp.ListReviewsQuery, dto.ReviewCollection](c.Request.Context(), h.Queries, reviewapp.ListReviewsQuery{
		ListingID: c.Param("id"),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Submit answers 200 with submitted=false when rating or text is missing;
// nothing is stored in that case.
func (h ReviewHandler) Submit(c *gin.Context) {
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := commands.Dispatch[reviewapp.SubmitReviewCommand, dto.ReviewSubmission](c.Request.Context(), h.Commands, reviewapp.SubmitReviewCommand{
		Actor:     currentActor(c),
		ListingID: c.Param("id"),
		Rating:    req.Rating,
		Body:      req.Body,
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	status := http.StatusOK
	if result.Submitted {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h ReviewHandler) Eligibility(c *gin.Context) {
	result, err := queries.Ask[reviewapp.ReviewEligibilityQuery, dto.ReviewEligibility](c.Request.Context(), h.Queries, reviewapp.ReviewEligibilityQuery{
		Actor:     currentActor(c),
		ListingID: c.Param("id"),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ReviewHTTP = ReviewHandler{}
