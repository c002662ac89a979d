package conversations

import (
	"context"
	"encoding/json"
	"log/slog"

	"warehub/internal/app/dto"
	"warehub/internal/app/feed"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/queries"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainconversation "warehub/internal/domain/conversation"
	domainuser "warehub/internal/domain/user"
)

const streamMessagesKey = "conversation.messages.stream"

type StreamMessagesQuery struct {
	Actor      auth.Actor
	ListingID  string `validate:"notblank"`
	CustomerID string `validate:"notblank"`
}

func (q StreamMessagesQuery) Key() string              { return streamMessagesKey }
func (q StreamMessagesQuery) RequestActor() auth.Actor { return q.Actor }

// MessageStream holds the ordered history followed by live appends.
type MessageStream = feed.Stream[dto.Message]

type StreamMessagesHandler struct {
	UoWFactory uow.UoWFactory
	Users      domainuser.Repository
	Hub        *feed.Hub
	Logger     *slog.Logger
}

func (h *StreamMessagesHandler) Handle(ctx context.Context, q StreamMessagesQuery) (*MessageStream, error) {
	key, err := parseKey(q.ListingID, q.CustomerID)
	if err != nil {
		return nil, err
	}
	// Subscribe before reading history so an append that commits in
	// between is seen by one or the other.
	sub := h.Hub.Subscribe(feed.ConversationTopic(key))

	t, err := handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (*thread, error) {
		return openThread(ctx, unit, h.Users, q.Actor, key)
	})
	if err != nil {
		sub.Cancel()
		return nil, err
	}

	viewer := t.viewer(q.Actor)
	// Appends can reach the hub out of seq order (outbox retries, commits
	// racing the counter), so duplicates are dropped by ID only.
	seen := make(map[domainconversation.MessageID]struct{}, len(t.history))
	snapshot := make([]dto.Message, 0, len(t.history))
	for _, m := range t.history {
		seen[m.ID] = struct{}{}
		snapshot = append(snapshot, dto.MapMessage(m, viewer))
	}

	handlersupport.Logger(h.Logger).Debug("message stream opened", "conversation", key.String(), "history", len(snapshot))
	return feed.Follow(ctx, sub, snapshot, func(ev feed.Event) (dto.Message, bool, error) {
		var appended domainconversation.MessageAppended
		if err := json.Unmarshal(ev.Payload, &appended); err != nil {
			return dto.Message{}, false, err
		}
		if _, dup := seen[appended.ID]; dup {
			return dto.Message{}, false, nil
		}
		seen[appended.ID] = struct{}{}
		return dto.MapMessage(appended.Message(), viewer), true, nil
	}), nil
}

var _ queries.Handler[StreamMessagesQuery, *MessageStream] = (*StreamMessagesHandler)(nil)
