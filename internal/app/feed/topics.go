package feed

import (
	"encoding/json"
	"strings"

	domainbooking "warehub/internal/domain/booking"
	domainconversation "warehub/internal/domain/conversation"
	domainlistings "warehub/internal/domain/listings"
)

func ConversationTopic(key domainconversation.Key) string {
	return "conversation/" + string(key.ListingID) + "/" + string(key.CustomerID)
}

func OwnerReservationsTopic(owner domainlistings.OwnerID) string {
	return "owner/" + string(owner) + "/reservations"
}

// TopicsFor returns the topics an event named name should reach. Events that
// no live view cares about route nowhere.
func TopicsFor(name string, payload []byte) ([]string, error) {
	switch {
	case name == domainconversation.EventMessageAppended:
		var ev domainconversation.MessageAppended
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, err
		}
		return []string{ConversationTopic(domainconversation.Key{ListingID: ev.ListingID, CustomerID: ev.CustomerID})}, nil
	case strings.HasPrefix(name, "booking.reservation_"):
		var ev struct {
			Reservation domainbooking.ReservationSnapshot `json:"reservation"`
		}
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, err
		}
		if ev.Reservation.OwnerID == "" {
			return nil, nil
		}
		return []string{OwnerReservationsTopic(ev.Reservation.OwnerID)}, nil
	default:
		return nil, nil
	}
}
