package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "warehub/internal/domain/booking"
	domainlistings "warehub/internal/domain/listings"
	domainuser "warehub/internal/domain/user"
)

type ReservationRepository struct {
	col   *mongo.Collection
	locks *mongo.Collection
	clock func() time.Time
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainbooking.ReservationID) (*domainbooking.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReservationRepository) Create(ctx context.Context, res *domainbooking.Reservation) error {
	doc := newReservationDocument(res)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return translateWriteError(err)
	}
	res.Version = doc.Version
	return nil
}

// Transition is a compare-and-set on status and version.
func (r *ReservationRepository) Transition(ctx context.Context, res *domainbooking.Reservation, from domainbooking.Status) error {
	filter := bson.M{"_id": string(res.ID), "status": string(from), "version": res.Version}
	update := bson.M{
		"$set": bson.M{
			"status":     string(res.Status),
			"updated_at": res.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}
	out, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		if errors.Is(translateWriteError(err), ErrConcurrentUpdate) {
			return domainbooking.ErrTransitionConflict
		}
		return err
	}
	if out.MatchedCount == 0 {
		n, err := r.col.CountDocuments(ctx, bson.M{"_id": string(res.ID)})
		if err != nil {
			return err
		}
		if n == 0 {
			return domainbooking.ErrNotFound
		}
		return domainbooking.ErrTransitionConflict
	}
	res.Version++
	return nil
}

func (r *ReservationRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID, statuses ...domainbooking.Status) ([]*domainbooking.Reservation, error) {
	return r.find(ctx, withStatuses(bson.M{"listing_id": string(listingID)}, statuses))
}

func (r *ReservationRepository) ListByOwner(ctx context.Context, owner domainlistings.OwnerID, statuses ...domainbooking.Status) ([]*domainbooking.Reservation, error) {
	return r.find(ctx, withStatuses(bson.M{"owner_id": string(owner)}, statuses))
}

func (r *ReservationRepository) ListByCustomer(ctx context.Context, customer domainuser.ID) ([]*domainbooking.Reservation, error) {
	return r.find(ctx, bson.M{"customer_id": string(customer)})
}

func (r *ReservationRepository) HasStatus(ctx context.Context, listingID domainlistings.ListingID, customer domainuser.ID, status domainbooking.Status) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{
		"listing_id":  string(listingID),
		"customer_id": string(customer),
		"status":      string(status),
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LockListing bumps a per-listing lock document inside the transaction. Two
// transactions creating reservations for the same listing write the same
// document, so the later one aborts with a write conflict instead of both
// passing the overlap check.
func (r *ReservationRepository) LockListing(ctx context.Context, listingID domainlistings.ListingID) error {
	_, err := r.locks.UpdateByID(ctx, string(listingID), bson.M{
		"$inc": bson.M{"n": 1},
		"$set": bson.M{"locked_at": r.clock().UTC()},
	}, options.Update().SetUpsert(true))
	return translateWriteError(err)
}

func (r *ReservationRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Reservation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []reservationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func withStatuses(filter bson.M, statuses []domainbooking.Status) bson.M {
	if len(statuses) == 0 {
		return filter
	}
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	filter["status"] = bson.M{"$in": values}
	return filter
}

type reservationDocument struct {
	ID            string    `bson:"_id"`
	ListingID     string    `bson:"listing_id"`
	ListingName   string    `bson:"listing_name"`
	CustomerID    string    `bson:"customer_id"`
	CustomerEmail string    `bson:"customer_email"`
	OwnerID       string    `bson:"owner_id"`
	OwnerEmail    string    `bson:"owner_email"`
	Start         time.Time `bson:"start"`
	DurationDays  int       `bson:"duration_days"`
	Status        string    `bson:"status"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
	Version       int64     `bson:"version"`
}

func newReservationDocument(r *domainbooking.Reservation) reservationDocument {
	return reservationDocument{
		ID:            string(r.ID),
		ListingID:     string(r.ListingID),
		ListingName:   r.ListingName,
		CustomerID:    string(r.CustomerID),
		CustomerEmail: r.CustomerEmail,
		OwnerID:       string(r.OwnerID),
		OwnerEmail:    r.OwnerEmail,
		Start:         r.Start,
		DurationDays:  r.DurationDays,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Version:       r.Version,
	}
}

func (d reservationDocument) toAggregate() *domainbooking.Reservation {
	return &domainbooking.Reservation{
		ID:            domainbooking.ReservationID(d.ID),
		ListingID:     domainlistings.ListingID(d.ListingID),
		ListingName:   d.ListingName,
		CustomerID:    domainuser.ID(d.CustomerID),
		CustomerEmail: d.CustomerEmail,
		OwnerID:       domainlistings.OwnerID(d.OwnerID),
		OwnerEmail:    d.OwnerEmail,
		Start:         d.Start.UTC(),
		DurationDays:  d.DurationDays,
		Status:        domainbooking.Status(d.Status),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		Version:       d.Version,
	}
}

var _ domainbooking.Repository = (*ReservationRepository)(nil)
