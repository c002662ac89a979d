package conversation

import (
	"sort"
	"time"

	"warehub/internal/domain/listings"
	"warehub/internal/domain/user"
)

// Summary is one row in a participant's inbox.
type Summary struct {
	Key           Key
	CustomerEmail string
	OwnerID       listings.OwnerID
	ListingName   string
	LastBody      string
	LastSender    SenderRole
	LastAt        time.Time
	MessageCount  int
}

// Summarize collapses messages into one summary per key, most recent first.
func Summarize(msgs []*Message) []Summary {
	byKey := make(map[Key]*Summary)
	last := make(map[Key]*Message)
	for _, m := range msgs {
		if m == nil {
			continue
		}
		s, ok := byKey[m.Key]
		if !ok {
			s = &Summary{Key: m.Key}
			byKey[m.Key] = s
		}
		s.MessageCount++
		if s.CustomerEmail == "" {
			s.CustomerEmail = m.CustomerEmail
		}
		if s.OwnerID == "" {
			s.OwnerID = m.OwnerID
		}
		if prev, ok := last[m.Key]; !ok || Less(prev, m) {
			last[m.Key] = m
		}
	}
	out := make([]Summary, 0, len(byKey))
	for key, s := range byKey {
		m := last[key]
		s.LastBody = m.Body
		s.LastSender = m.SenderRole
		s.LastAt = m.CreatedAt
		s.ListingName = m.ListingName
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastAt.Equal(out[j].LastAt) {
			return out[i].LastAt.After(out[j].LastAt)
		}
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// Involves reports whether id is the customer or the recorded owner of the thread.
func (s Summary) Involves(id user.ID) bool {
	return id != "" && (s.Key.CustomerID == id || user.ID(s.OwnerID) == id)
}
