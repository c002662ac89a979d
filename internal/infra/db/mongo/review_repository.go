package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "warehub/internal/domain/listings"
	domainreviews "warehub/internal/domain/reviews"
	domainuser "warehub/internal/domain/user"
)

type ReviewRepository struct {
	col *mongo.Collection
}

// Create relies on the unique _id: with the deterministic per-customer id a
// second insert is a duplicate key and maps to ErrAlreadyReviewed.
func (r *ReviewRepository) Create(ctx context.Context, review *domainreviews.Review) error {
	if _, err := r.col.InsertOne(ctx, newReviewDocument(review)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainreviews.ErrAlreadyReviewed
		}
		return translateWriteError(err)
	}
	return nil
}

func (r *ReviewRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainreviews.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"listing_id": string(listingID)}, opts)
	if err != nil {
		return nil, err
	}
	var docs []reviewDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainreviews.Review, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func (r *ReviewRepository) ExistsFor(ctx context.Context, listingID domainlistings.ListingID, customer domainuser.ID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{
		"listing_id":  string(listingID),
		"customer_id": string(customer),
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type reviewDocument struct {
	ID            string    `bson:"_id"`
	ListingID     string    `bson:"listing_id"`
	CustomerID    string    `bson:"customer_id"`
	CustomerEmail string    `bson:"customer_email"`
	Rating        int       `bson:"rating"`
	Body          string    `bson:"body"`
	CreatedAt     time.Time `bson:"created_at"`
}

func newReviewDocument(r *domainreviews.Review) reviewDocument {
	return reviewDocument{
		ID:            string(r.ID),
		ListingID:     string(r.ListingID),
		CustomerID:    string(r.CustomerID),
		CustomerEmail: r.CustomerEmail,
		Rating:        r.Rating,
		Body:          r.Body,
		CreatedAt:     r.CreatedAt,
	}
}

func (d reviewDocument) toAggregate() *domainreviews.Review {
	return &domainreviews.Review{
		ID:            domainreviews.ReviewID(d.ID),
		ListingID:     domainlistings.ListingID(d.ListingID),
		CustomerID:    domainuser.ID(d.CustomerID),
		CustomerEmail: d.CustomerEmail,
		Rating:        d.Rating,
		Body:          d.Body,
		CreatedAt:     d.CreatedAt.UTC(),
	}
}

var _ domainreviews.Repository = (*ReviewRepository)(nil)
