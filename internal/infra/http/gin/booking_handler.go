package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"warehub/internal/app/commands"
	"warehub/internal/app/dto"
	bookingapp "warehub/internal/app/handlers/booking"
	"warehub/internal/app/queries"
)

const idempotencyHeader = "Idempotency-Key"

type BookingHTTP interface {
	Availability(c *gin.Context)
	Request(c *gin.Context)
	CustomerReservations(c *gin.Context)
	OwnerReservations(c *gin.Context)
	Confirm(c *gin.Context)
	Reject(c *gin.Context)
	Stream(c *gin.Context)
}

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type reservationRequest struct {
	Start        string `json:"start"`
	DurationDays int    `json:"duration_days"`
}

// Availability never fails on a rejected request: the answer says why.
func (h BookingHandler) Availability(c *gin.Context) {
	start, err := parseOptionalDay(c.Query("start"))
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	duration, err := parseOptionalInt(c.Query("duration"))
	if err != nil {
		badRequest(c, err)
		return
	}
	result, err := queries.Ask[bookingapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, bookingapp.CheckAvailabilityQuery{
		ListingID:    c.Param("id"),
		Start:        start,
		DurationDays: duration,
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Request(c *gin.Context) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start, err := parseOptionalDay(req.Start)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	result, err := commands.Dispatch[bookingapp.RequestReservationCommand, *dto.Reservation](c.Request.Context(), h.Commands, bookingapp.RequestReservationCommand{
		Actor:           currentActor(c),
		ListingID:       c.Param("id"),
		Start:           start,
		DurationDays:    req.DurationDays,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) CustomerReservations(c *gin.Context) {
	result, err := queries.Ask[bookingapp.ListCustomerReservationsQuery, dto.ReservationCollection](c.Request.Context(), h.Queries, bookingapp.ListCustomerReservationsQuery{
		Actor: currentActor(c),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) OwnerReservations(c *gin.Context) {
	result, err := queries.Ask[bookingapp.ListOwnerReservationsQuery, dto.ReservationCollection](c.Request.Context(), h.Queries, bookingapp.ListOwnerReservationsQuery{
		Actor:  currentActor(c),
		Status: c.Query("status"),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	result, err := commands.Dispatch[bookingapp.ConfirmReservationCommand, *dto.ReservationDecision](c.Request.Context(), h.Commands, bookingapp.ConfirmReservationCommand{
		Actor:         currentActor(c),
		ReservationID: c.Param("id"),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Reject(c *gin.Context) {
	result, err := commands.Dispatch[bookingapp.RejectReservationCommand, *dto.ReservationDecision](c.Request.Context(), h.Commands, bookingapp.RejectReservationCommand{
		Actor:         currentActor(c),
		ReservationID: c.Param("id"),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stream pushes the owner's pending reservations and then every change to
// them over a websocket.
func (h BookingHandler) Stream(c *gin.Context) {
	stream, err := queries.Ask[bookingapp.WatchPendingReservationsQuery, *bookingapp.ReservationStream](c.Request.Context(), h.Queries, bookingapp.WatchPendingReservationsQuery{
		Actor: currentActor(c),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	serveStream(c, h.Logger, stream, nil)
}

func parseOptionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", raw)
	}
	return n, nil
}

var _ BookingHTTP = BookingHandler{}
