package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	appoutbox "warehub/internal/app/outbox"
	"warehub/internal/app/uow"
	domainbooking "warehub/internal/domain/booking"
	domainconversation "warehub/internal/domain/conversation"
	domaininquiries "warehub/internal/domain/inquiries"
	domainlistings "warehub/internal/domain/listings"
	domainreviews "warehub/internal/domain/reviews"
)

var (
	ErrReadOnlyUnit = errors.New("memory: write attempted in a read-only unit")
	ErrUnitClosed   = errors.New("memory: unit already committed or rolled back")
)

// Store keeps all marketplace state in process. Units of work hold the store
// lock for their whole lifetime: write units exclusively, read units shared.
type Store struct {
	mu    sync.RWMutex
	live  *state
	clock func() time.Time

	pendingMu sync.Mutex
	pending   []appoutbox.EventRecord

	logger *slog.Logger
}

type Option func(*Store)

// WithClock overrides the clock used to stamp messages.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		live:   newState(),
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.ReadOnly {
		s.mu.RLock()
		return &Unit{store: s, state: s.live, readOnly: true}, nil
	}
	s.mu.Lock()
	return &Unit{store: s, state: s.live.clone()}, nil
}

func (s *Store) now() time.Time {
	return s.clock().UTC()
}

// Unit is one isolated view of the store.
type Unit struct {
	store    *Store
	state    *state
	readOnly bool
	done     bool
	staged   []appoutbox.EventRecord
}

func (u *Unit) Listings() domainlistings.Repository     { return &ListingRepository{unit: u} }
func (u *Unit) Reservations() domainbooking.Repository  { return &ReservationRepository{unit: u} }
func (u *Unit) Messages() domainconversation.Repository { return &MessageRepository{unit: u} }
func (u *Unit) Reviews() domainreviews.Repository       { return &ReviewRepository{unit: u} }
func (u *Unit) Inquiries() domaininquiries.Repository   { return &InquiryRepository{unit: u} }

// Commit publishes the unit's state and staged outbox records. A second
// call is a no-op.
func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if u.readOnly {
		u.store.mu.RUnlock()
		return nil
	}
	u.store.live = u.state
	// Staged records join the queue before the store lock is released so the
	// queue keeps commit order.
	if len(u.staged) > 0 {
		u.store.pendingMu.Lock()
		u.store.pending = append(u.store.pending, u.staged...)
		u.store.pendingMu.Unlock()
	}
	u.staged = nil
	u.store.mu.Unlock()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	u.staged = nil
	if u.readOnly {
		u.store.mu.RUnlock()
		return nil
	}
	u.store.mu.Unlock()
	return nil
}

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	return nil
}

func (u *Unit) readable() error {
	if u.done {
		return ErrUnitClosed
	}
	return nil
}

var (
	_ uow.UoWFactory = (*Store)(nil)
	_ uow.UnitOfWork = (*Unit)(nil)
)
