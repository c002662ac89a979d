package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver"
)

const (
	colListings     = "listings"
	colReservations = "reservations"
	colLocks        = "reservation_locks"
	colMessages     = "messages"
	colCounters     = "conversation_counters"
	colReviews      = "reviews"
	colInquiries    = "inquiries"
	colUsers        = "users"
	colIdempotency  = "app_idempotency"
)

// ErrConcurrentUpdate reports a transaction that lost a write conflict.
var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type Client struct {
	DB *mongo.Database
}

func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes every repository relies on. Collections
// must exist before the first transaction touches them, so this runs at
// startup.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colListings: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "industry", Value: 1}}},
		},
		colReservations: {
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
		},
		colMessages: {
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "customer_id", Value: 1}, {Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
		colReviews: {
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "customer_id", Value: 1}}},
		},
		colInquiries: {
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colLocks:    nil,
		colCounters: nil,
	}
	for name, models := range specs {
		if err := c.ensureCollection(ctx, name); err != nil {
			return err
		}
		if len(models) == 0 {
			continue
		}
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, name string) error {
	err := c.DB.CreateCollection(ctx, name)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
		return nil
	}
	return err
}

// translateWriteError folds transaction write conflicts into ErrConcurrentUpdate.
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	var le mongo.LabeledError
	if errors.As(err, &le) && le.HasErrorLabel(driver.TransientTransactionError) {
		return errors.Join(ErrConcurrentUpdate, err)
	}
	return err
}
