package conversation

import (
	"time"

	"warehub/internal/domain/listings"
	"warehub/internal/domain/user"
)

const EventMessageAppended = "conversation.message_appended"

// MessageAppended carries the full message so live subscribers can render it
// without a read-back.
type MessageAppended struct {
	ID            MessageID          `json:"id"`
	ListingID     listings.ListingID `json:"listing_id"`
	CustomerID    user.ID            `json:"customer_id"`
	CustomerEmail string             `json:"customer_email"`
	OwnerID       listings.OwnerID   `json:"owner_id"`
	ListingName   string             `json:"listing_name"`
	SenderRole    SenderRole         `json:"sender_role"`
	SenderID      user.ID            `json:"sender_id,omitempty"`
	Body          string             `json:"body"`
	CreatedAt     time.Time          `json:"created_at"`
	Seq           int64              `json:"seq"`
}

func (e MessageAppended) EventName() string     { return EventMessageAppended }
func (e MessageAppended) AggregateID() string   { return Key{ListingID: e.ListingID, CustomerID: e.CustomerID}.String() }
func (e MessageAppended) OccurredAt() time.Time { return e.CreatedAt }

func (e MessageAppended) Message() *Message {
	return &Message{
		ID:            e.ID,
		Key:           Key{ListingID: e.ListingID, CustomerID: e.CustomerID},
		CustomerEmail: e.CustomerEmail,
		OwnerID:       e.OwnerID,
		ListingName:   e.ListingName,
		SenderRole:    e.SenderRole,
		SenderID:      e.SenderID,
		Body:          e.Body,
		CreatedAt:     e.CreatedAt,
		Seq:           e.Seq,
	}
}

// Appended builds the event for a stored message.
func Appended(m *Message) MessageAppended {
	return MessageAppended{
		ID:            m.ID,
		ListingID:     m.Key.ListingID,
		CustomerID:    m.Key.CustomerID,
		CustomerEmail: m.CustomerEmail,
		OwnerID:       m.OwnerID,
		ListingName:   m.ListingName,
		SenderRole:    m.SenderRole,
		SenderID:      m.SenderID,
		Body:          m.Body,
		CreatedAt:     m.CreatedAt,
		Seq:           m.Seq,
	}
}
