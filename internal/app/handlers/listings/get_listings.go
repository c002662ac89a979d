package listings

import (
	"context"
	"strings"

	"warehub/internal/app/dto"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/queries"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainlistings "warehub/internal/domain/listings"
	domainuser "warehub/internal/domain/user"
)

const (
	getListingKey        = "listings.get"
	listOwnerListingsKey = "listings.owner.list"
)

type GetListingQuery struct {
	ListingID string `validate:"notblank"`
}

func (q GetListingQuery) Key() string { return getListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.Listing, error) {
	return handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.Listing, error) {
		listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(q.ListingID)))
		if err != nil {
			return dto.Listing{}, err
		}
		return dto.MapListing(listing), nil
	})
}

type ListOwnerListingsQuery struct {
	Actor auth.Actor
}

func (q ListOwnerListingsQuery) Key() string              { return listOwnerListingsKey }
func (q ListOwnerListingsQuery) RequestActor() auth.Actor { return q.Actor }

type ListOwnerListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListOwnerListingsHandler) Handle(ctx context.Context, q ListOwnerListingsQuery) (dto.ListingCollection, error) {
	if err := q.Actor.RequireRole(domainuser.RoleOwner); err != nil {
		return dto.ListingCollection{}, err
	}
	return handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.ListingCollection, error) {
		items, err := unit.Listings().ListByOwner(ctx, domainlistings.OwnerID(q.Actor.UserID))
		if err != nil {
			return dto.ListingCollection{}, err
		}
		return dto.MapListings(items), nil
	})
}

var (
	_ queries.Handler[GetListingQuery, dto.Listing]                  = (*GetListingHandler)(nil)
	_ queries.Handler[ListOwnerListingsQuery, dto.ListingCollection] = (*ListOwnerListingsHandler)(nil)
)
