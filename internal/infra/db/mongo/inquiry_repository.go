package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaininquiries "warehub/internal/domain/inquiries"
	domainlistings "warehub/internal/domain/listings"
)

type InquiryRepository struct {
	col *mongo.Collection
}

func (r *InquiryRepository) Create(ctx context.Context, inquiry *domaininquiries.Inquiry) error {
	doc := inquiryDocument{
		ID:        string(inquiry.ID),
		ListingID: string(inquiry.ListingID),
		Name:      inquiry.Name,
		Email:     inquiry.Email,
		Message:   inquiry.Message,
		CreatedAt: inquiry.CreatedAt,
	}
	_, err := r.col.InsertOne(ctx, doc)
	return translateWriteError(err)
}

func (r *InquiryRepository) ListByListings(ctx context.Context, ids []domainlistings.ListingID) ([]*domaininquiries.Inquiry, error) {
	if len(ids) == 0 {
		return []*domaininquiries.Inquiry{}, nil
	}
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, string(id))
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"listing_id": bson.M{"$in": values}}, opts)
	if err != nil {
		return nil, err
	}
	var docs []inquiryDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domaininquiries.Inquiry, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domaininquiries.Inquiry{
			ID:        domaininquiries.InquiryID(d.ID),
			ListingID: domainlistings.ListingID(d.ListingID),
			Name:      d.Name,
			Email:     d.Email,
			Message:   d.Message,
			CreatedAt: d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

type inquiryDocument struct {
	ID        string    `bson:"_id"`
	ListingID string    `bson:"listing_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Message   string    `bson:"message"`
	CreatedAt time.Time `bson:"created_at"`
}

var _ domaininquiries.Repository = (*InquiryRepository)(nil)
