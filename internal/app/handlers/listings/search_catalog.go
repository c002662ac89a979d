package listings

import (
	"context"

	"warehub/internal/app/dto"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/queries"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainlistings "warehub/internal/domain/listings"
)

const searchCatalogKey = "listings.catalog"

// SearchCatalogQuery browses every listing. Viewer is optional; a signed-in
// viewer does not see their own listings.
type SearchCatalogQuery struct {
	Viewer   auth.Actor
	Query    string
	Industry string
	Tag      string
	Limit    int `validate:"gte=0"`
	Offset   int `validate:"gte=0"`
}

func (q SearchCatalogQuery) Key() string { return searchCatalogKey }

type SearchCatalogHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchCatalogHandler) Handle(ctx context.Context, q SearchCatalogQuery) (dto.ListingCatalog, error) {
	params := domainlistings.SearchParams{
		Query:    q.Query,
		Industry: q.Industry,
		Tag:      q.Tag,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Viewer.Authenticated() {
		params.ExcludeOwner = domainlistings.OwnerID(q.Viewer.UserID)
	}
	params = params.Normalized()

	return handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.ListingCatalog, error) {
		result, err := unit.Listings().Search(ctx, params)
		if err != nil {
			return dto.ListingCatalog{}, err
		}
		return dto.MapCatalog(result, params), nil
	})
}

var _ queries.Handler[SearchCatalogQuery, dto.ListingCatalog] = (*SearchCatalogHandler)(nil)
