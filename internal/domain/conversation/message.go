package conversation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"warehub/internal/domain/listings"
	"warehub/internal/domain/user"
)

var (
	ErrKeyInvalid     = errors.New("conversation: listing and customer are required")
	ErrEmptyBody      = errors.New("conversation: message body is required")
	ErrSenderInvalid  = errors.New("conversation: sender role is invalid")
	ErrNotParticipant = errors.New("conversation: caller is not a participant")
)

type MessageID string

type SenderRole string

const (
	SenderCustomer SenderRole = "customer"
	SenderOwner    SenderRole = "owner"
	SenderSystem   SenderRole = "system"
)

// Key identifies one chat thread: a customer talking to a listing's owner.
type Key struct {
	ListingID  listings.ListingID
	CustomerID user.ID
}

func (k Key) Valid() bool {
	return strings.TrimSpace(string(k.ListingID)) != "" && strings.TrimSpace(string(k.CustomerID)) != ""
}

func (k Key) String() string {
	return string(k.ListingID) + "_" + string(k.CustomerID)
}

// Message is an immutable conversation entry. Seq and CreatedAt are assigned
// by the repository on append.
type Message struct {
	ID            MessageID
	Key           Key
	CustomerEmail string
	OwnerID       listings.OwnerID
	ListingName   string
	SenderRole    SenderRole
	SenderID      user.ID
	Body          string
	CreatedAt     time.Time
	Seq           int64
}

type Repository interface {
	// Append assigns Seq and CreatedAt and stores the message.
	Append(ctx context.Context, msg *Message) error
	ListByKey(ctx context.Context, key Key) ([]*Message, error)
	ListForParticipant(ctx context.Context, id user.ID) ([]*Message, error)
}

type NewParams struct {
	ID            MessageID
	Key           Key
	CustomerEmail string
	OwnerID       listings.OwnerID
	ListingName   string
	SenderRole    SenderRole
	SenderID      user.ID
	Body          string
}

func NewMessage(params NewParams) (*Message, error) {
	if !params.Key.Valid() {
		return nil, ErrKeyInvalid
	}
	body := strings.TrimSpace(params.Body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	switch params.SenderRole {
	case SenderCustomer, SenderOwner:
		if params.SenderID == "" {
			return nil, ErrSenderInvalid
		}
	case SenderSystem:
		params.SenderID = ""
	default:
		return nil, ErrSenderInvalid
	}
	return &Message{
		ID:            params.ID,
		Key:           params.Key,
		CustomerEmail: strings.ToLower(strings.TrimSpace(params.CustomerEmail)),
		OwnerID:       params.OwnerID,
		ListingName:   params.ListingName,
		SenderRole:    params.SenderRole,
		SenderID:      params.SenderID,
		Body:          body,
	}, nil
}

// Stamp assigns the ordering fields. The timestamp never moves backwards
// relative to prev.
func (m *Message) Stamp(seq int64, now, prev time.Time) {
	now = now.UTC()
	if now.Before(prev) {
		now = prev
	}
	m.Seq = seq
	m.CreatedAt = now
}

// Less orders by timestamp, ties broken by insertion sequence.
func Less(a, b *Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}

func Sort(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return Less(msgs[i], msgs[j]) })
}

// ViewerRole decides which side of a two-party conversation the viewer is on
// by comparing the viewer's email with the conversation's customer email.
func ViewerRole(viewerEmail, customerEmail string) SenderRole {
	if customerEmail != "" && strings.EqualFold(strings.TrimSpace(viewerEmail), strings.TrimSpace(customerEmail)) {
		return SenderCustomer
	}
	return SenderOwner
}

// FromViewer reports whether the viewer wrote the message.
func (m *Message) FromViewer(viewer SenderRole) bool {
	return m.SenderRole == viewer
}
