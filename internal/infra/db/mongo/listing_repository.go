package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "warehub/internal/domain/listings"
)

type ListingRepository struct {
	col *mongo.Collection
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save inserts when Version is zero and otherwise replaces the document only
// while the stored version matches.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	doc.Version = listing.Version + 1
	if listing.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domainlistings.ErrVersionConflict
			}
			return translateWriteError(err)
		}
		listing.Version = doc.Version
		return nil
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": listing.Version}, doc)
	if err != nil {
		return translateWriteError(err)
	}
	if res.MatchedCount == 0 {
		n, err := r.col.CountDocuments(ctx, bson.M{"_id": doc.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return domainlistings.ErrNotFound
		}
		return domainlistings.ErrVersionConflict
	}
	listing.Version = doc.Version
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return translateWriteError(err)
	}
	if res.DeletedCount == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

func (r *ListingRepository) ListByOwner(ctx context.Context, owner domainlistings.OwnerID) ([]*domainlistings.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"owner_id": string(owner)}, opts)
	if err != nil {
		return nil, err
	}
	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainlistings.Listing, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	params = params.Normalized()
	filter := searchFilter(params)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(params.Offset)).
		SetLimit(int64(params.Limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return domainlistings.SearchResult{}, err
	}
	items := make([]*domainlistings.Listing, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toAggregate())
	}
	return domainlistings.SearchResult{Items: items, Total: int(total)}, nil
}

// searchFilter mirrors SearchParams.Matches for normalized params.
func searchFilter(p domainlistings.SearchParams) bson.M {
	filter := bson.M{}
	if p.ExcludeOwner != "" {
		filter["owner_id"] = bson.M{"$ne": string(p.ExcludeOwner)}
	}
	if p.Query != "" {
		text := caseless(regexp.QuoteMeta(p.Query))
		filter["$or"] = bson.A{bson.M{"name": text}, bson.M{"location": text}}
	}
	if p.Industry != "" {
		filter["industry"] = caseless("^" + regexp.QuoteMeta(p.Industry) + "$")
	}
	if p.Tag != "" {
		filter["tags"] = caseless(regexp.QuoteMeta(p.Tag))
	}
	return filter
}

func caseless(pattern string) bson.M {
	return bson.M{"$regex": pattern, "$options": "i"}
}

// UpdateRating sets only the rating fields. The version is left alone so an
// owner edit racing a review does not fail.
func (r *ListingRepository) UpdateRating(ctx context.Context, id domainlistings.ListingID, avg *float64, at time.Time) error {
	check := &domainlistings.Listing{}
	if err := check.ApplyRating(avg, at); err != nil {
		return err
	}
	res, err := r.col.UpdateByID(ctx, string(id), bson.M{"$set": bson.M{
		"average_rating": avg,
		"updated_at":     at.UTC(),
	}})
	if err != nil {
		return translateWriteError(err)
	}
	if res.MatchedCount == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

type listingDocument struct {
	ID            string    `bson:"_id"`
	OwnerID       string    `bson:"owner_id"`
	OwnerEmail    string    `bson:"owner_email"`
	Name          string    `bson:"name"`
	Location      string    `bson:"location"`
	AreaSqM       float64   `bson:"area_sqm"`
	RentPerArea   float64   `bson:"rent_per_area"`
	Industry      string    `bson:"industry"`
	AvailableFrom time.Time `bson:"available_from"`
	AvailableTo   time.Time `bson:"available_to"`
	Tags          []string  `bson:"tags"`
	AverageRating *float64  `bson:"average_rating"`
	ImageURL      string    `bson:"image_url"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
	Version       int64     `bson:"version"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:            string(l.ID),
		OwnerID:       string(l.OwnerID),
		OwnerEmail:    l.OwnerEmail,
		Name:          l.Name,
		Location:      l.Location,
		AreaSqM:       l.AreaSqM,
		RentPerArea:   l.RentPerArea,
		Industry:      l.Industry,
		AvailableFrom: l.AvailableFrom,
		AvailableTo:   l.AvailableTo,
		Tags:          append([]string{}, l.Tags...),
		AverageRating: l.AverageRating,
		ImageURL:      l.ImageURL,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
		Version:       l.Version,
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:            domainlistings.ListingID(d.ID),
		OwnerID:       domainlistings.OwnerID(d.OwnerID),
		OwnerEmail:    d.OwnerEmail,
		Name:          d.Name,
		Location:      d.Location,
		AreaSqM:       d.AreaSqM,
		RentPerArea:   d.RentPerArea,
		Industry:      d.Industry,
		AvailableFrom: d.AvailableFrom.UTC(),
		AvailableTo:   d.AvailableTo.UTC(),
		Tags:          append([]string{}, d.Tags...),
		AverageRating: d.AverageRating,
		ImageURL:      d.ImageURL,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		Version:       d.Version,
	}
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
