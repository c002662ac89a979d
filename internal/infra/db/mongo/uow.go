package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"warehub/internal/app/uow"
	domainbooking "warehub/internal/domain/booking"
	domainconversation "warehub/internal/domain/conversation"
	domaininquiries "warehub/internal/domain/inquiries"
	domainlistings "warehub/internal/domain/listings"
	domainreviews "warehub/internal/domain/reviews"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB    *mongo.Database
	Clock func() time.Time
}

// Begin starts a session with a snapshot transaction. Repositories find the
// session through the context the unit injects.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	clock := f.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Unit{
		session:      session,
		readOnly:     opts.ReadOnly,
		listings:     &ListingRepository{col: f.DB.Collection(colListings)},
		reservations: &ReservationRepository{col: f.DB.Collection(colReservations), locks: f.DB.Collection(colLocks), clock: clock},
		messages:     &MessageRepository{col: f.DB.Collection(colMessages), counters: f.DB.Collection(colCounters), clock: clock},
		reviews:      &ReviewRepository{col: f.DB.Collection(colReviews)},
		inquiries:    &InquiryRepository{col: f.DB.Collection(colInquiries)},
	}, nil
}

type Unit struct {
	session  mongo.Session
	readOnly bool
	done     bool

	listings     *ListingRepository
	reservations *ReservationRepository
	messages     *MessageRepository
	reviews      *ReviewRepository
	inquiries    *InquiryRepository
}

func (u *Unit) Listings() domainlistings.Repository     { return u.listings }
func (u *Unit) Reservations() domainbooking.Repository  { return u.reservations }
func (u *Unit) Messages() domainconversation.Repository { return u.messages }
func (u *Unit) Reviews() domainreviews.Repository       { return u.reviews }
func (u *Unit) Inquiries() domaininquiries.Repository   { return u.inquiries }

// Commit is a no-op after the first call. Read-only units abort instead of
// committing.
func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return u.session.AbortTransaction(ctx)
	}
	return translateWriteError(u.session.CommitTransaction(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.UnitOfWork      = (*Unit)(nil)
	_ uow.ContextInjector = (*Unit)(nil)
)
