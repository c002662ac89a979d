package uow

import (
	"context"

	domainbooking "warehub/internal/domain/booking"
	domainconversation "warehub/internal/domain/conversation"
	domaininquiries "warehub/internal/domain/inquiries"
	domainlistings "warehub/internal/domain/listings"
	domainreviews "warehub/internal/domain/reviews"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Listings() domainlistings.Repository
	Reservations() domainbooking.Repository
	Messages() domainconversation.Repository
	Reviews() domainreviews.Repository
	Inquiries() domaininquiries.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
