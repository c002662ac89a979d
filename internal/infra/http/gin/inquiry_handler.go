package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"warehub/internal/app/commands"
	"warehub/internal/app/dto"
	inquiryapp "warehub/internal/app/handlers/inquiries"
	"warehub/internal/app/queries"
)

type InquiryHTTP interface {
	Submit(c *gin.Context)
	OwnerList(c *gin.Context)
}

type InquiryHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type inquiryRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Submit is open to anonymous visitors.
func (h InquiryHandler) Submit(c *gin.Context) {
	var req inquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := commands.Dispatch[inquiryapp.SubmitInquiryCommand, *dto.Inquiry](c.Request.Context(), h.Commands, inquiryapp.SubmitInquiryCommand{
		ListingID: c.Param("id"),
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h InquiryHandler) OwnerList(c *gin.Context) {
	result, err := queries.Ask[inquiryapp.ListOwnerInquiriesQuery, dto.InquiryGroups](c.Request.Context(), h.Queries, inquiryapp.ListOwnerInquiriesQuery{
		Actor: currentActor(c),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ InquiryHTTP = InquiryHandler{}
