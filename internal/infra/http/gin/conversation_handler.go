package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"warehub/internal/app/commands"
	"warehub/internal/app/dto"
	conversationapp "warehub/internal/app/handlers/conversations"
	"warehub/internal/app/queries"
)

type ConversationHTTP interface {
	List(c *gin.Context)
	Messages(c *gin.Context)
	Post(c *gin.Context)
	Stream(c *gin.Context)
}

type ConversationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type postMessageRequest struct {
	Body string `json:"body"`
}

func (h ConversationHandler) List(c *gin.Context) {
	result, err := queries.Ask[conversationapp.ListConversationsQuery, dto.ConversationCollection](c.Request.Context(), h.Queries, conversationapp.ListConversationsQuery{
		Actor: currentActor(c),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ConversationHandler) Messages(c *gin.Context) {
	result, err := queries.Ask[conversationapp.ListMessagesQuery, dto.MessageCollection](c.Request.Context(), h.Queries, conversationapp.ListMessagesQuery{
		Actor:      currentActor(c),
		ListingID:  c.Param("listingId"),
		CustomerID: c.Param("customerId"),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ConversationHandler) Post(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := commands.Dispatch[conversationapp.AppendMessageCommand, *dto.Message](c.Request.Context(), h.Commands, conversationapp.AppendMessageCommand{
		Actor:           currentActor(c),
		ListingID:       c.Param("listingId"),
		CustomerID:      c.Param("customerId"),
		Body:            req.Body,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ConversationHandler) Stream(c *gin.Context) {
	stream, err := queries.Ask[conversationapp.StreamMessagesQuery, *conversationapp.MessageStream](c.Request.Context(), h.Queries, conversationapp.StreamMessagesQuery{
		Actor:      currentActor(c),
		ListingID:  c.Param("listingId"),
		CustomerID: c.Param("customerId"),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	serveStream(c, h.Logger, stream, nil)
}

var _ ConversationHTTP = ConversationHandler{}
