package dto

import (
	"time"

	domainlistings "warehub/internal/domain/listings"
	"warehub/internal/domain/shared/daterange"
)

type Listing struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	OwnerEmail    string    `json:"owner_email"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	AreaSqM       float64   `json:"area_sqm"`
	RentPerArea   float64   `json:"rent_per_area"`
	Industry      string    `json:"industry"`
	AvailableFrom string    `json:"available_from"`
	AvailableTo   string    `json:"available_to"`
	Tags          []string  `json:"tags"`
	AverageRating *float64  `json:"average_rating"`
	ImageURL      string    `json:"image_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ListingCollection struct {
	Items []Listing `json:"items"`
}

func MapListing(l *domainlistings.Listing) Listing {
	if l == nil {
		return Listing{}
	}
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	return Listing{
		ID:            string(l.ID),
		OwnerID:       string(l.OwnerID),
		OwnerEmail:    l.OwnerEmail,
		Name:          l.Name,
		Location:      l.Location,
		AreaSqM:       l.AreaSqM,
		RentPerArea:   l.RentPerArea,
		Industry:      l.Industry,
		AvailableFrom: daterange.Format(l.AvailableFrom),
		AvailableTo:   daterange.Format(l.AvailableTo),
		Tags:          tags,
		AverageRating: l.AverageRating,
		ImageURL:      l.ImageURL,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func MapListings(items []*domainlistings.Listing) ListingCollection {
	out := ListingCollection{Items: make([]Listing, 0, len(items))}
	for _, l := range items {
		out.Items = append(out.Items, MapListing(l))
	}
	return out
}

// ListingCatalog is one page of the public catalog.
type ListingCatalog struct {
	Items  []Listing `json:"items"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

func MapCatalog(result domainlistings.SearchResult, params domainlistings.SearchParams) ListingCatalog {
	return ListingCatalog{
		Items:  MapListings(result.Items).Items,
		Total:  result.Total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
}
