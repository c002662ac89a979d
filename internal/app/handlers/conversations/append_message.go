package conversations

import (
	"context"
	"log/slog"
	"strings"

	"warehub/internal/app/commands"
	"warehub/internal/app/dto"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/middleware"
	"warehub/internal/app/outbox"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainconversation "warehub/internal/domain/conversation"
	"warehub/internal/domain/shared/events"
	domainuser "warehub/internal/domain/user"
)

const appendMessageKey = "conversation.message.append"

type AppendMessageCommand struct {
	Actor           auth.Actor
	ListingID       string `validate:"notblank"`
	CustomerID      string `validate:"notblank"`
	Body            string
	IdempotencyKeyV string
}

func (c AppendMessageCommand) Key() string              { return appendMessageKey }
func (c AppendMessageCommand) RequestActor() auth.Actor { return c.Actor }

func (c AppendMessageCommand) IdempotencyKey() string {
	key := strings.TrimSpace(c.IdempotencyKeyV)
	if key == "" {
		return ""
	}
	return appendMessageKey + ":" + string(c.Actor.UserID) + ":" + key
}

func (c AppendMessageCommand) ResultPrototype() any { return &dto.Message{} }

type AppendMessageHandler struct {
	UoWFactory uow.UoWFactory
	Users      domainuser.Repository
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	IDs        func() string
}

func (h *AppendMessageHandler) Handle(ctx context.Context, cmd AppendMessageCommand) (*dto.Message, error) {
	key, err := parseKey(cmd.ListingID, cmd.CustomerID)
	if err != nil {
		return nil, err
	}
	return handlersupport.WithinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (*dto.Message, error) {
		t, err := openThread(ctx, unit, h.Users, cmd.Actor, key)
		if err != nil {
			return nil, err
		}
		msg, err := domainconversation.NewMessage(domainconversation.NewParams{
			ID:            domainconversation.MessageID(handlersupport.NewID(h.IDs)),
			Key:           key,
			CustomerEmail: t.customerEmail,
			OwnerID:       t.ownerID,
			ListingName:   t.listingName,
			SenderRole:    t.role,
			SenderID:      cmd.Actor.UserID,
			Body:          cmd.Body,
		})
		if err != nil {
			return nil, err
		}
		if err := unit.Messages().Append(ctx, msg); err != nil {
			return nil, err
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{domainconversation.Appended(msg)}); err != nil {
			return nil, err
		}
		handlersupport.Logger(h.Logger).Info("message appended",
			"conversation", key.String(),
			"sender_role", msg.SenderRole,
			"seq", msg.Seq,
		)
		out := dto.MapMessage(msg, t.viewer(cmd.Actor))
		return &out, nil
	})
}

var (
	_ commands.Handler[AppendMessageCommand, *dto.Message] = (*AppendMessageHandler)(nil)
	_ middleware.IdempotentCommand                         = AppendMessageCommand{}
)
