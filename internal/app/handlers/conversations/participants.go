package conversations

import (
	"context"
	"errors"
	"strings"

	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainconversation "warehub/internal/domain/conversation"
	domainlistings "warehub/internal/domain/listings"
	domainuser "warehub/internal/domain/user"
)

const unknownListingName = "Unknown listing"

// thread is what a handler knows about a conversation before touching it.
type thread struct {
	key           domainconversation.Key
	role          domainconversation.SenderRole
	ownerID       domainlistings.OwnerID
	ownerEmail    string
	customerEmail string
	listingName   string
	history       []*domainconversation.Message
}

func parseKey(listingID, customerID string) (domainconversation.Key, error) {
	key := domainconversation.Key{
		ListingID:  domainlistings.ListingID(strings.TrimSpace(listingID)),
		CustomerID: domainuser.ID(strings.TrimSpace(customerID)),
	}
	if !key.Valid() {
		return domainconversation.Key{}, domainconversation.ErrKeyInvalid
	}
	return key, nil
}

// openThread loads the conversation and decides which side actor is on. The
// owner comes from the listing, or from the history when the listing is gone.
func openThread(ctx context.Context, unit uow.UnitOfWork, users domainuser.Repository, actor auth.Actor, key domainconversation.Key) (*thread, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrUnauthenticated
	}
	history, err := unit.Messages().ListByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	t := &thread{key: key, history: history}

	listing, err := unit.Listings().ByID(ctx, key.ListingID)
	switch {
	case err == nil:
		t.ownerID = listing.OwnerID
		t.ownerEmail = listing.OwnerEmail
		t.listingName = listing.Name
	case errors.Is(err, domainlistings.ErrNotFound):
		if len(history) == 0 {
			return nil, err
		}
		last := history[len(history)-1]
		t.ownerID = last.OwnerID
		t.listingName = unknownListingName
	default:
		return nil, err
	}
	for _, m := range history {
		if m.CustomerEmail != "" {
			t.customerEmail = m.CustomerEmail
			break
		}
	}

	switch {
	case actor.UserID == key.CustomerID:
		t.role = domainconversation.SenderCustomer
		t.customerEmail = domainuser.NormalizeEmail(actor.Email)
	case t.ownerID != "" && domainuser.ID(t.ownerID) == actor.UserID:
		t.role = domainconversation.SenderOwner
		if t.customerEmail == "" && users != nil {
			if u, err := users.ByID(ctx, key.CustomerID); err == nil {
				t.customerEmail = u.Email
			}
		}
	default:
		return nil, domainconversation.ErrNotParticipant
	}
	return t, nil
}

// viewer is the side used for the mine flag, derived from emails.
func (t *thread) viewer(actor auth.Actor) domainconversation.SenderRole {
	return domainconversation.ViewerRole(actor.Email, t.customerEmail)
}
