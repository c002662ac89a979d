package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	domainbooking "warehub/internal/domain/booking"
	domainconversation "warehub/internal/domain/conversation"
	domaininquiries "warehub/internal/domain/inquiries"
	domainlistings "warehub/internal/domain/listings"
	domainreviews "warehub/internal/domain/reviews"
	domainuser "warehub/internal/domain/user"
)

// ListingRepository reads and writes listings through a unit.
type ListingRepository struct {
	unit *Unit
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	if err := r.unit.readable(); err != nil {
		return nil, err
	}
	listing, ok := r.unit.state.listings[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return cloneListing(listing), nil
}

// Save inserts new listings and updates existing ones when the caller holds
// the current version.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	if existing, ok := r.unit.state.listings[listing.ID]; ok {
		if existing.Version != listing.Version {
			return domainlistings.ErrVersionConflict
		}
	} else if listing.Version != 0 {
		return domainlistings.ErrNotFound
	}
	listing.Version++
	r.unit.state.listings[listing.ID] = cloneListing(listing)
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	if _, ok := r.unit.state.listings[id]; !ok {
		return domainlistings.ErrNotFound
	}
	delete(r.unit.state.listings, id)
	return nil
}

func (r *ListingRepository) ListByOwner(ctx context.Context, owner domainlistings.OwnerID) ([]*domainlistings.Listing, error) {
	if err := r.unit.readable(); err != nil {
		return nil, err
	}
	out := make([]*domainlistings.Listing, 0)
	for _, l := range r.unit.state.listings {
		if l.OwnerID == owner {
			out = append(out, cloneListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	if err := r.unit.readable(); err != nil {
		return domainlistings.SearchResult{}, err
	}
	params = params.Normalized()
	hits := make([]*domainlistings.Listing, 0)
	for _, l := range r.unit.state.listings {
		if params.Matches(l) {
			hits = append(hits, l)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].ID < hits[j].ID
	})
	total := len(hits)
	start := min(params.Offset, total)
	end := min(start+params.Limit, total)
	items := make([]*domainlistings.Listing, 0, end-start)
	for _, l := range hits[start:end] {
		items = append(items, cloneListing(l))
	}
	return domainlistings.SearchResult{Items: items, Total: total}, nil
}

// UpdateRating touches only the rating fields and leaves the version alone.
func (r *ListingRepository) UpdateRating(ctx context.Context, id domainlistings.ListingID, avg *float64, at time.Time) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	existing, ok := r.unit.state.listings[id]
	if !ok {
		return domainlistings.ErrNotFound
	}
	updated := cloneListing(existing)
	if err := updated.ApplyRating(avg, at); err != nil {
		return err
	}
	r.unit.state.listings[id] = updated
	return nil
}

type ReservationRepository struct {
	unit *Unit
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainbooking.ReservationID) (*domainbooking.Reservation, error) {
	if err := r.unit.readable(); err != nil {
		return nil, err
	}
	res, ok := r.unit.state.reservations[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneReservation(res), nil
}

func (r *ReservationRepository) Create(ctx context.Context, res *domainbooking.Reservation) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	if _, ok := r.unit.state.reservations[res.ID]; ok {
		return fmt.Errorf("memory: reservation %s already exists", res.ID)
	}
	res.Version = 1
	r.unit.state.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r *ReservationRepository) Transition(ctx context.Context, res *domainbooking.Reservation, from domainbooking.Status) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	stored, ok := r.unit.state.reservations[res.ID]
	if !ok {
		return domainbooking.ErrNotFound
	}
	if stored.Status != from || stored.Version != res.Version {
		return domainbooking.ErrTransitionConflict
	}
	res.Version++
	r.unit.state.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r *ReservationRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID, statuses ...domainbooking.Status) ([]*domainbooking.Reservation, error) {
	return r.filter(func(res *domainbooking.Reservation) bool {
		return res.ListingID == listingID && statusIn(res.Status, statuses)
	})
}

func (r *ReservationRepository) ListByOwner(ctx context.Context, owner domainlistings.OwnerID, statuses ...domainbooking.Status) ([]*domainbooking.Reservation, error) {
	return r.filter(func(res *domainbooking.Reservation) bool {
		return res.OwnerID == owner && statusIn(res.Status, statuses)
	})
}

func (r *ReservationRepository) ListByCustomer(ctx context.Context, customer domainuser.ID) ([]*domainbooking.Reservation, error) {
	return r.filter(func(res *domainbooking.Reservation) bool {
		return res.CustomerID == customer
	})
}

func (r *ReservationRepository) HasStatus(ctx context.Context, listingID domainlistings.ListingID, customer domainuser.ID, status domainbooking.Status) (bool, error) {
	if err := r.unit.readable(); err != nil {
		return false, err
	}
	for _, res := range r.unit.state.reservations {
		if res.ListingID == listingID && res.CustomerID == customer && res.Status == status {
			return true, nil
		}
	}
	return false, nil
}

// LockListing only checks the unit: a write unit already holds the store lock.
func (r *ReservationRepository) LockListing(ctx context.Context, listingID domainlistings.ListingID) error {
	return r.unit.writable()
}

func (r *ReservationRepository) filter(keep func(*domainbooking.Reservation) bool) ([]*domainbooking.Reservation, error) {
	if err := r.unit.readable(); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Reservation, 0)
	for _, res := range r.unit.state.reservations {
		if keep(res) {
			out = append(out, cloneReservation(res))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func statusIn(status domainbooking.Status, statuses []domainbooking.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type MessageRepository struct {
	unit *Unit
}

func (r *MessageRepository) Append(ctx context.Context, msg *domainconversation.Message) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	thread := r.unit.state.messages[msg.Key]
	var (
		seq  int64 = 1
		prev time.Time
	)
	if n := len(thread); n > 0 {
		last := thread[n-1]
		seq = last.Seq + 1
		prev = last.CreatedAt
	}
	msg.Stamp(seq, r.unit.store.now(), prev)
	r.unit.state.messages[msg.Key] = append(thread, cloneMessage(msg))
	return nil
}

func (r *MessageRepository) ListByKey(ctx context.Context, key domainconversation.Key) ([]*domainconversation.Message, error) {
	if err := r.unit.readable(); err != nil {
		return nil, err
	}
	thread := r.unit.state.messages[key]
	out := make([]*domainconversation.Message, 0, len(thread))
	for _, m := range thread {
		out = append(out, cloneMessage(m))
	}
	domainconversation.Sort(out)
	return out, nil
}

func (r *MessageRepository) ListForParticipant(ctx context.Context, id domainuser.ID) ([]*domainconversation.Message, error) {
	if err := r.unit.readable(); err != nil {
		return nil, err
	}
	out := make([]*domainconversation.Message, 0)
	for key, thread := range r.unit.state.messages {
		for _, m := range thread {
			if key.CustomerID == id || domainuser.ID(m.OwnerID) == id {
				out = append(out, cloneMessage(m))
			}
		}
	}
	domainconversation.Sort(out)
	return out, nil
}

type ReviewRepository struct {
	unit *Unit
}

func (r *ReviewRepository) Create(ctx context.Context, review *domainreviews.Review) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	for _, existing := range r.unit.state.reviews {
		if existing.ID == review.ID {
			return domainreviews.ErrAlreadyReviewed
		}
	}
	r.unit.state.reviews = append(r.unit.state.reviews, cloneReview(review))
	return nil
}

func (r *ReviewRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainreviews.Review, error) {
	if err := r.unit.readable(); err != nil {
		return nil, err
	}
	out := make([]*domainreviews.Review, 0)
	for _, review := range r.unit.state.reviews {
		if review.ListingID == listingID {
			out = append(out, cloneReview(review))
		}
	}
	return out, nil
}

func (r *ReviewRepository) ExistsFor(ctx context.Context, listingID domainlistings.ListingID, customer domainuser.ID) (bool, error) {
	if err := r.unit.readable(); err != nil {
		return false, err
	}
	for _, review := range r.unit.state.reviews {
		if review.ListingID == listingID && review.CustomerID == customer {
			return true, nil
		}
	}
	return false, nil
}

type InquiryRepository struct {
	unit *Unit
}

func (r *InquiryRepository) Create(ctx context.Context, inquiry *domaininquiries.Inquiry) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	r.unit.state.inquiries = append(r.unit.state.inquiries, cloneInquiry(inquiry))
	return nil
}

func (r *InquiryRepository) ListByListings(ctx context.Context, ids []domainlistings.ListingID) ([]*domaininquiries.Inquiry, error) {
	if err := r.unit.readable(); err != nil {
		return nil, err
	}
	wanted := make(map[domainlistings.ListingID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := make([]*domaininquiries.Inquiry, 0)
	for _, inquiry := range r.unit.state.inquiries {
		if _, ok := wanted[inquiry.ListingID]; ok {
			out = append(out, cloneInquiry(inquiry))
		}
	}
	return out, nil
}

var (
	_ domainlistings.Repository     = (*ListingRepository)(nil)
	_ domainbooking.Repository      = (*ReservationRepository)(nil)
	_ domainconversation.Repository = (*MessageRepository)(nil)
	_ domainreviews.Repository      = (*ReviewRepository)(nil)
	_ domaininquiries.Repository    = (*InquiryRepository)(nil)
)
