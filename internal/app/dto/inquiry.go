package dto

import (
	"time"

	domaininquiries "warehub/internal/domain/inquiries"
)

type Inquiry struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type InquiryGroup struct {
	ListingID   string    `json:"listing_id"`
	ListingName string    `json:"listing_name"`
	Items       []Inquiry `json:"items"`
}

type InquiryGroups struct {
	Groups []InquiryGroup `json:"groups"`
}

func MapInquiry(i *domaininquiries.Inquiry) Inquiry {
	if i == nil {
		return Inquiry{}
	}
	return Inquiry{
		ID:        string(i.ID),
		ListingID: string(i.ListingID),
		Name:      i.Name,
		Email:     i.Email,
		Message:   i.Message,
		CreatedAt: i.CreatedAt,
	}
}
