package conversations

import (
	"context"
	"errors"

	"warehub/internal/app/dto"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/queries"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainconversation "warehub/internal/domain/conversation"
	domainlistings "warehub/internal/domain/listings"
)

const listConversationsKey = "conversation.list"

type ListConversationsQuery struct {
	Actor auth.Actor
}

func (q ListConversationsQuery) Key() string              { return listConversationsKey }
func (q ListConversationsQuery) RequestActor() auth.Actor { return q.Actor }

// ListConversationsHandler builds the inbox of every thread the actor takes
// part in, as customer or as recorded owner.
type ListConversationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListConversationsHandler) Handle(ctx context.Context, q ListConversationsQuery) (dto.ConversationCollection, error) {
	if !q.Actor.Authenticated() {
		return dto.ConversationCollection{}, auth.ErrUnauthenticated
	}
	return handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.ConversationCollection, error) {
		msgs, err := unit.Messages().ListForParticipant(ctx, q.Actor.UserID)
		if err != nil {
			return dto.ConversationCollection{}, err
		}
		summaries := domainconversation.Summarize(msgs)
		listingCache := make(map[domainlistings.ListingID]*domainlistings.Listing)

		out := dto.ConversationCollection{Items: make([]dto.ConversationSummary, 0, len(summaries))}
		for _, s := range summaries {
			if !s.Involves(q.Actor.UserID) {
				continue
			}
			listing, cached := listingCache[s.Key.ListingID]
			if !cached {
				listing, err = unit.Listings().ByID(ctx, s.Key.ListingID)
				if err != nil && !errors.Is(err, domainlistings.ErrNotFound) {
					return dto.ConversationCollection{}, err
				}
				listingCache[s.Key.ListingID] = listing
			}
			item := dto.ConversationSummary{
				ListingID:    string(s.Key.ListingID),
				CustomerID:   string(s.Key.CustomerID),
				ListingName:  unknownListingName,
				LastBody:     s.LastBody,
				LastAt:       s.LastAt,
				MessageCount: s.MessageCount,
			}
			if listing != nil {
				item.ListingName = listing.Name
			}
			if s.Key.CustomerID == q.Actor.UserID {
				if listing != nil {
					item.CounterpartEmail = listing.OwnerEmail
				}
			} else {
				item.CounterpartEmail = s.CustomerEmail
			}
			out.Items = append(out.Items, item)
		}
		return out, nil
	})
}

var _ queries.Handler[ListConversationsQuery, dto.ConversationCollection] = (*ListConversationsHandler)(nil)
