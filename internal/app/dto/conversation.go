package dto

import (
	"time"

	domainconversation "warehub/internal/domain/conversation"
)

type Message struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	CustomerID string    `json:"customer_id"`
	SenderRole string    `json:"sender_role"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	Seq        int64     `json:"seq"`
	Mine       bool      `json:"mine"`
}

type MessageCollection struct {
	ListingName string    `json:"listing_name"`
	Items       []Message `json:"items"`
}

type ConversationSummary struct {
	ListingID        string    `json:"listing_id"`
	CustomerID       string    `json:"customer_id"`
	ListingName      string    `json:"listing_name"`
	CounterpartEmail string    `json:"counterpart_email"`
	LastBody         string    `json:"last_body"`
	LastAt           time.Time `json:"last_at"`
	MessageCount     int       `json:"message_count"`
}

type ConversationCollection struct {
	Items []ConversationSummary `json:"items"`
}

// MapMessage renders m for a viewer on the given side of the conversation.
func MapMessage(m *domainconversation.Message, viewer domainconversation.SenderRole) Message {
	if m == nil {
		return Message{}
	}
	return Message{
		ID:         string(m.ID),
		ListingID:  string(m.Key.ListingID),
		CustomerID: string(m.Key.CustomerID),
		SenderRole: string(m.SenderRole),
		Body:       m.Body,
		CreatedAt:  m.CreatedAt,
		Seq:        m.Seq,
		Mine:       m.FromViewer(viewer),
	}
}
