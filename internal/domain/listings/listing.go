package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"warehub/internal/domain/shared/daterange"
	"warehub/internal/domain/shared/events"
)

var (
	ErrIDRequired       = errors.New("listings: id is required")
	ErrOwnerRequired    = errors.New("listings: owner is required")
	ErrNameRequired     = errors.New("listings: name is required")
	ErrLocationRequired = errors.New("listings: location is required")
	ErrIndustryRequired = errors.New("listings: industry is required")
	ErrAreaInvalid      = errors.New("listings: area must be a positive number")
	ErrRentInvalid      = errors.New("listings: rent per area must be a positive number")
	ErrNotNumeric       = errors.New("listings: area and rent must be numeric")
	ErrWindowRequired   = errors.New("listings: availability window dates are required")
	ErrWindowInvalid    = errors.New("listings: available from must not be after available to")
	ErrImageRequired    = errors.New("listings: image is required")
	ErrRatingInvalid    = errors.New("listings: average rating must be between 1 and 5")
	ErrNotFound         = errors.New("listings: not found")
	ErrNotOwner         = errors.New("listings: listing belongs to another owner")
	ErrVersionConflict  = errors.New("listings: listing was modified concurrently")
)

type ListingID string
type OwnerID string

type Listing struct {
	ID            ListingID
	OwnerID       OwnerID
	OwnerEmail    string
	Name          string
	Location      string
	AreaSqM       float64
	RentPerArea   float64
	Industry      string
	AvailableFrom time.Time
	AvailableTo   time.Time
	Tags          []string
	AverageRating *float64
	ImageURL      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ListingID) error
	ListByOwner(ctx context.Context, owner OwnerID) ([]*Listing, error)
	// Search pages through listings matching params, newest first.
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
	// UpdateRating writes only the average rating field.
	UpdateRating(ctx context.Context, id ListingID, avg *float64, at time.Time) error
}

// Details holds the owner-editable fields.
type Details struct {
	Name          string
	Location      string
	AreaSqM       float64
	RentPerArea   float64
	Industry      string
	AvailableFrom time.Time
	AvailableTo   time.Time
	Tags          []string
	ImageURL      string
}

type CreateParams struct {
	ID         ListingID
	OwnerID    OwnerID
	OwnerEmail string
	Details    Details
	Now        time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.OwnerID)) == "" {
		return nil, ErrOwnerRequired
	}
	details, err := normalizeDetails(params.Details, true)
	if err != nil {
		return nil, err
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	l := &Listing{
		ID:         params.ID,
		OwnerID:    params.OwnerID,
		OwnerEmail: strings.ToLower(strings.TrimSpace(params.OwnerEmail)),
		CreatedAt:  now,
	}
	l.apply(details, now)
	l.Record(ListingCreated{ListingID: l.ID, OwnerID: l.OwnerID, Name: l.Name, At: now})
	return l, nil
}

// Update replaces the editable fields. An empty ImageURL keeps the current image.
func (l *Listing) Update(details Details, now time.Time) error {
	if details.ImageURL == "" {
		details.ImageURL = l.ImageURL
	}
	normalized, err := normalizeDetails(details, true)
	if err != nil {
		return err
	}
	l.apply(normalized, now.UTC())
	l.Record(ListingUpdated{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

// ApplyRating sets the running average. A nil average clears it.
func (l *Listing) ApplyRating(avg *float64, now time.Time) error {
	if avg != nil && (*avg < 1 || *avg > 5) {
		return ErrRatingInvalid
	}
	if avg != nil {
		v := *avg
		avg = &v
	}
	l.AverageRating = avg
	l.UpdatedAt = now.UTC()
	return nil
}

func (l *Listing) OwnedBy(owner OwnerID) bool {
	return owner != "" && l.OwnerID == owner
}

// AvailabilityWindow returns the inclusive [from, to] window as a half-open range.
func (l *Listing) AvailabilityWindow() daterange.DateRange {
	return daterange.DateRange{Start: l.AvailableFrom, End: l.AvailableTo.AddDate(0, 0, 1)}
}

// InWindow reports whether day falls inside [AvailableFrom, AvailableTo].
func (l *Listing) InWindow(day time.Time) bool {
	return l.AvailabilityWindow().ContainsDate(day)
}

func (l *Listing) apply(d Details, now time.Time) {
	l.Name = d.Name
	l.Location = d.Location
	l.AreaSqM = d.AreaSqM
	l.RentPerArea = d.RentPerArea
	l.Industry = d.Industry
	l.AvailableFrom = d.AvailableFrom
	l.AvailableTo = d.AvailableTo
	l.Tags = d.Tags
	l.ImageURL = d.ImageURL
	l.UpdatedAt = now
}

// ValidateDetails checks the owner-editable fields without building a
// listing. The image is skipped so forms can be checked before upload.
func ValidateDetails(d Details) error {
	_, err := normalizeDetails(d, false)
	return err
}

func normalizeDetails(d Details, requireImage bool) (Details, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Location = strings.TrimSpace(d.Location)
	d.Industry = strings.TrimSpace(d.Industry)
	d.ImageURL = strings.TrimSpace(d.ImageURL)
	switch {
	case d.Name == "":
		return Details{}, ErrNameRequired
	case d.Location == "":
		return Details{}, ErrLocationRequired
	case d.Industry == "":
		return Details{}, ErrIndustryRequired
	case d.AreaSqM <= 0:
		return Details{}, ErrAreaInvalid
	case d.RentPerArea <= 0:
		return Details{}, ErrRentInvalid
	case d.AvailableFrom.IsZero() || d.AvailableTo.IsZero():
		return Details{}, ErrWindowRequired
	case requireImage && d.ImageURL == "":
		return Details{}, ErrImageRequired
	}
	d.AvailableFrom = daterange.Day(d.AvailableFrom)
	d.AvailableTo = daterange.Day(d.AvailableTo)
	if d.AvailableFrom.After(d.AvailableTo) {
		return Details{}, ErrWindowInvalid
	}
	d.Tags = NormalizeTags(d.Tags)
	return d, nil
}

// ParseTags splits a comma separated tag list.
func ParseTags(raw string) []string {
	return NormalizeTags(strings.Split(raw, ","))
}

// NormalizeTags trims tags and drops blanks and case-insensitive duplicates,
// keeping the first spelling.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
