package memory

import (
	domainbooking "warehub/internal/domain/booking"
	domainconversation "warehub/internal/domain/conversation"
	domaininquiries "warehub/internal/domain/inquiries"
	domainlistings "warehub/internal/domain/listings"
	domainreviews "warehub/internal/domain/reviews"
)

// state is the full data set. Records are stored as private copies, so
// cloning the maps is enough to isolate a write unit.
type state struct {
	listings     map[domainlistings.ListingID]*domainlistings.Listing
	reservations map[domainbooking.ReservationID]*domainbooking.Reservation
	messages     map[domainconversation.Key][]*domainconversation.Message
	reviews      []*domainreviews.Review
	inquiries    []*domaininquiries.Inquiry
}

func newState() *state {
	return &state{
		listings:     make(map[domainlistings.ListingID]*domainlistings.Listing),
		reservations: make(map[domainbooking.ReservationID]*domainbooking.Reservation),
		messages:     make(map[domainconversation.Key][]*domainconversation.Message),
	}
}

// clone copies the containers. Stored records are never mutated in place,
// so they can be shared between the copies.
func (s *state) clone() *state {
	out := &state{
		listings:     make(map[domainlistings.ListingID]*domainlistings.Listing, len(s.listings)),
		reservations: make(map[domainbooking.ReservationID]*domainbooking.Reservation, len(s.reservations)),
		messages:     make(map[domainconversation.Key][]*domainconversation.Message, len(s.messages)),
		reviews:      append([]*domainreviews.Review(nil), s.reviews...),
		inquiries:    append([]*domaininquiries.Inquiry(nil), s.inquiries...),
	}
	for k, v := range s.listings {
		out.listings[k] = v
	}
	for k, v := range s.reservations {
		out.reservations[k] = v
	}
	for k, v := range s.messages {
		out.messages[k] = append([]*domainconversation.Message(nil), v...)
	}
	return out
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	if l == nil {
		return nil
	}
	out := &domainlistings.Listing{
		ID:            l.ID,
		OwnerID:       l.OwnerID,
		OwnerEmail:    l.OwnerEmail,
		Name:          l.Name,
		Location:      l.Location,
		AreaSqM:       l.AreaSqM,
		RentPerArea:   l.RentPerArea,
		Industry:      l.Industry,
		AvailableFrom: l.AvailableFrom,
		AvailableTo:   l.AvailableTo,
		Tags:          append([]string(nil), l.Tags...),
		ImageURL:      l.ImageURL,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
		Version:       l.Version,
	}
	if l.AverageRating != nil {
		avg := *l.AverageRating
		out.AverageRating = &avg
	}
	return out
}

func cloneReservation(r *domainbooking.Reservation) *domainbooking.Reservation {
	if r == nil {
		return nil
	}
	return &domainbooking.Reservation{
		ID:            r.ID,
		ListingID:     r.ListingID,
		ListingName:   r.ListingName,
		CustomerID:    r.CustomerID,
		CustomerEmail: r.CustomerEmail,
		OwnerID:       r.OwnerID,
		OwnerEmail:    r.OwnerEmail,
		Start:         r.Start,
		DurationDays:  r.DurationDays,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Version:       r.Version,
	}
}

func cloneMessage(m *domainconversation.Message) *domainconversation.Message {
	if m == nil {
		return nil
	}
	out := *m
	return &out
}

func cloneReview(r *domainreviews.Review) *domainreviews.Review {
	if r == nil {
		return nil
	}
	return &domainreviews.Review{
		ID:            r.ID,
		ListingID:     r.ListingID,
		CustomerID:    r.CustomerID,
		CustomerEmail: r.CustomerEmail,
		Rating:        r.Rating,
		Body:          r.Body,
		CreatedAt:     r.CreatedAt,
	}
}

func cloneInquiry(i *domaininquiries.Inquiry) *domaininquiries.Inquiry {
	if i == nil {
		return nil
	}
	out := *i
	return &out
}
