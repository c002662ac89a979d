// Package wiring registers every command and query handler on the buses and
// wraps them in the middleware chain. Storage, the outbox, and the live feed
// are supplied by the caller so the same wiring serves memory and Mongo modes.
package wiring

import (
	"log/slog"
	"time"

	"warehub/internal/app/commands"
	"warehub/internal/app/feed"
	bookingapp "warehub/internal/app/handlers/booking"
	conversationapp "warehub/internal/app/handlers/conversations"
	inquiryapp "warehub/internal/app/handlers/inquiries"
	listingapp "warehub/internal/app/handlers/listings"
	reviewapp "warehub/internal/app/handlers/reviews"
	"warehub/internal/app/middleware"
	"warehub/internal/app/outbox"
	"warehub/internal/app/policies"
	"warehub/internal/app/queries"
	"warehub/internal/app/uow"
	domainuser "warehub/internal/domain/user"
)

type Deps struct {
	UoWFactory    uow.UoWFactory
	Outbox        outbox.Outbox
	Idempotency   middleware.IdempotencyStore
	Validator     middleware.Validator
	Users         domainuser.Repository
	Media         policies.MediaStore
	Hub           *feed.Hub
	Clock         func() time.Time
	IDs           func() string
	Logger        *slog.Logger
	UniqueReviews bool
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Build panics when a required dependency is missing, the same way the
// middleware constructors do.
func Build(d Deps) Buses {
	if d.UoWFactory == nil || d.Outbox == nil || d.Users == nil || d.Hub == nil {
		panic("wiring: uow factory, outbox, users and hub are required")
	}
	encoder := outbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, &listingapp.CreateListingHandler{
		UoWFactory: d.UoWFactory,
		Media:      d.Media,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Logger:     d.Logger,
		Clock:      d.Clock,
		IDs:        d.IDs,
	})
	commands.RegisterHandler(commandBus, &listingapp.UpdateListingHandler{
		UoWFactory: d.UoWFactory,
		Media:      d.Media,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Logger:     d.Logger,
		Clock:      d.Clock,
	})
	commands.RegisterHandler(commandBus, &listingapp.DeleteListingHandler{
		UoWFactory: d.UoWFactory,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Logger:     d.Logger,
		Clock:      d.Clock,
	})
	commands.RegisterHandler(commandBus, &bookingapp.RequestReservationHandler{
		UoWFactory: d.UoWFactory,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Logger:     d.Logger,
		Clock:      d.Clock,
		IDs:        d.IDs,
	})
	decide := &bookingapp.DecideReservationHandler{
		UoWFactory: d.UoWFactory,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Logger:     d.Logger,
		Clock:      d.Clock,
		IDs:        d.IDs,
	}
	commands.RegisterHandler(commandBus, decide.Confirm())
	commands.RegisterHandler(commandBus, decide.Reject())
	commands.RegisterHandler(commandBus, &conversationapp.AppendMessageHandler{
		UoWFactory: d.UoWFactory,
		Users:      d.Users,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Logger:     d.Logger,
		IDs:        d.IDs,
	})
	commands.RegisterHandler(commandBus, &reviewapp.SubmitReviewHandler{
		UoWFactory:        d.UoWFactory,
		Outbox:            d.Outbox,
		Encoder:           encoder,
		Logger:            d.Logger,
		Clock:             d.Clock,
		IDs:               d.IDs,
		UniquePerCustomer: d.UniqueReviews,
	})
	commands.RegisterHandler(commandBus, &inquiryapp.SubmitInquiryHandler{
		UoWFactory: d.UoWFactory,
		Outbox:     d.Outbox,
		Encoder:    encoder,
		Logger:     d.Logger,
		Clock:      d.Clock,
		IDs:        d.IDs,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, &listingapp.SearchCatalogHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, &listingapp.GetListingHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, &listingapp.ListOwnerListingsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, &bookingapp.CheckAvailabilityHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, &bookingapp.ListOwnerReservationsHandler{UoWFactory: d.UoWFactory, Logger: d.Logger})
	queries.RegisterHandler(queryBus, &bookingapp.ListCustomerReservationsHandler{UoWFactory: d.UoWFactory, Logger: d.Logger})
	queries.RegisterHandler(queryBus, &bookingapp.WatchPendingReservationsHandler{UoWFactory: d.UoWFactory, Hub: d.Hub, Logger: d.Logger})
	queries.RegisterHandler(queryBus, &conversationapp.ListConversationsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, &conversationapp.ListMessagesHandler{UoWFactory: d.UoWFactory, Users: d.Users})
	queries.RegisterHandler(queryBus, &conversationapp.StreamMessagesHandler{UoWFactory: d.UoWFactory, Users: d.Users, Hub: d.Hub, Logger: d.Logger})
	queries.RegisterHandler(queryBus, &reviewapp.ListReviewsHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, &reviewapp.ReviewEligibilityHandler{UoWFactory: d.UoWFactory})
	queries.RegisterHandler(queryBus, &inquiryapp.ListOwnerInquiriesHandler{UoWFactory: d.UoWFactory})

	// Outermost first. The flush sits outside the transaction so only
	// committed events reach the feed.
	commandMW := []middleware.CommandMiddleware{middleware.Authorization(middleware.ActorAuthorizer{})}
	queryMW := []middleware.QueryMiddleware{middleware.QueryAuthorization(middleware.ActorAuthorizer{})}
	if d.Validator != nil {
		commandMW = append(commandMW, middleware.Validation(d.Validator))
		queryMW = append(queryMW, middleware.QueryValidation(d.Validator))
	}
	if d.Idempotency != nil {
		commandMW = append(commandMW, middleware.Idempotency(d.Idempotency, nil))
	}
	commandMW = append(commandMW,
		middleware.OutboxFlush(d.Outbox, d.Logger),
		middleware.Transaction(d.UoWFactory, nil),
	)

	return Buses{
		Commands: middleware.ChainCommands(commandBus, commandMW...),
		Queries:  middleware.ChainQueries(queryBus, queryMW...),
	}
}
