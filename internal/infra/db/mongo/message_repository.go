package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainconversation "warehub/internal/domain/conversation"
	domainlistings "warehub/internal/domain/listings"
	domainuser "warehub/internal/domain/user"
)

const counterTimeout = 5 * time.Second

type MessageRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
	clock    func() time.Time
}

// Append draws the next sequence number and timestamp from the
// conversation's counter document, then inserts the message in the caller's
// transaction. The counter is advanced outside that transaction so
// concurrent appends to one thread never abort each other; a rolled-back
// append leaves a gap in seq, which ordering tolerates.
func (r *MessageRepository) Append(ctx context.Context, msg *domainconversation.Message) error {
	seq, at, err := r.next(ctx, msg.Key)
	if err != nil {
		return err
	}
	msg.Stamp(seq, at, time.Time{})
	if _, err := r.col.InsertOne(ctx, newMessageDocument(msg)); err != nil {
		return translateWriteError(err)
	}
	return nil
}

func (r *MessageRepository) next(ctx context.Context, key domainconversation.Key) (int64, time.Time, error) {
	// no session in this context: the counter must not join the transaction
	detached, cancel := context.WithTimeout(context.Background(), counterTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	now := r.clock().UTC()
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "seq", Value: bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$seq", 0}}}, 1}}}},
			{Key: "last_at", Value: bson.D{{Key: "$max", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$last_at", now}}}, now}}}},
		}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc struct {
		Seq    int64     `bson:"seq"`
		LastAt time.Time `bson:"last_at"`
	}
	if err := r.counters.FindOneAndUpdate(detached, bson.M{"_id": key.String()}, update, opts).Decode(&doc); err != nil {
		return 0, time.Time{}, err
	}
	return doc.Seq, doc.LastAt.UTC(), nil
}

func (r *MessageRepository) ListByKey(ctx context.Context, key domainconversation.Key) ([]*domainconversation.Message, error) {
	return r.find(ctx, bson.M{"listing_id": string(key.ListingID), "customer_id": string(key.CustomerID)})
}

func (r *MessageRepository) ListForParticipant(ctx context.Context, id domainuser.ID) ([]*domainconversation.Message, error) {
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"customer_id": string(id)},
		bson.M{"owner_id": string(id)},
	}})
}

func (r *MessageRepository) find(ctx context.Context, filter bson.M) ([]*domainconversation.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []messageDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainconversation.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toMessage())
	}
	domainconversation.Sort(out)
	return out, nil
}

type messageDocument struct {
	ID            string    `bson:"_id"`
	ListingID     string    `bson:"listing_id"`
	CustomerID    string    `bson:"customer_id"`
	CustomerEmail string    `bson:"customer_email"`
	OwnerID       string    `bson:"owner_id"`
	ListingName   string    `bson:"listing_name"`
	SenderRole    string    `bson:"sender_role"`
	SenderID      string    `bson:"sender_id,omitempty"`
	Body          string    `bson:"body"`
	CreatedAt     time.Time `bson:"created_at"`
	Seq           int64     `bson:"seq"`
}

func newMessageDocument(m *domainconversation.Message) messageDocument {
	return messageDocument{
		ID:            string(m.ID),
		ListingID:     string(m.Key.ListingID),
		CustomerID:    string(m.Key.CustomerID),
		CustomerEmail: m.CustomerEmail,
		OwnerID:       string(m.OwnerID),
		ListingName:   m.ListingName,
		SenderRole:    string(m.SenderRole),
		SenderID:      string(m.SenderID),
		Body:          m.Body,
		CreatedAt:     m.CreatedAt,
		Seq:           m.Seq,
	}
}

func (d messageDocument) toMessage() *domainconversation.Message {
	return &domainconversation.Message{
		ID: domainconversation.MessageID(d.ID),
		Key: domainconversation.Key{
			ListingID:  domainlistings.ListingID(d.ListingID),
			CustomerID: domainuser.ID(d.CustomerID),
		},
		CustomerEmail: d.CustomerEmail,
		OwnerID:       domainlistings.OwnerID(d.OwnerID),
		ListingName:   d.ListingName,
		SenderRole:    domainconversation.SenderRole(d.SenderRole),
		SenderID:      domainuser.ID(d.SenderID),
		Body:          d.Body,
		CreatedAt:     d.CreatedAt.UTC(),
		Seq:           d.Seq,
	}
}

var _ domainconversation.Repository = (*MessageRepository)(nil)
