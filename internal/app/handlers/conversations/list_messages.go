package conversations

import (
	"context"

	"warehub/internal/app/dto"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/queries"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainuser "warehub/internal/domain/user"
)

const listMessagesKey = "conversation.messages.list"

type ListMessagesQuery struct {
	Actor      auth.Actor
	ListingID  string `validate:"notblank"`
	CustomerID string `validate:"notblank"`
}

func (q ListMessagesQuery) Key() string              { return listMessagesKey }
func (q ListMessagesQuery) RequestActor() auth.Actor { return q.Actor }

type ListMessagesHandler struct {
	UoWFactory uow.UoWFactory
	Users      domainuser.Repository
}

func (h *ListMessagesHandler) Handle(ctx context.Context, q ListMessagesQuery) (dto.MessageCollection, error) {
	key, err := parseKey(q.ListingID, q.CustomerID)
	if err != nil {
		return dto.MessageCollection{}, err
	}
	return handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.MessageCollection, error) {
		t, err := openThread(ctx, unit, h.Users, q.Actor, key)
		if err != nil {
			return dto.MessageCollection{}, err
		}
		viewer := t.viewer(q.Actor)
		out := dto.MessageCollection{ListingName: t.listingName, Items: make([]dto.Message, 0, len(t.history))}
		for _, m := range t.history {
			out.Items = append(out.Items, dto.MapMessage(m, viewer))
		}
		return out, nil
	})
}

var _ queries.Handler[ListMessagesQuery, dto.MessageCollection] = (*ListMessagesHandler)(nil)
