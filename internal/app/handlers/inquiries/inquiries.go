package inquiries

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"warehub/internal/app/commands"
	"warehub/internal/app/dto"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/outbox"
	"warehub/internal/app/queries"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domaininquiries "warehub/internal/domain/inquiries"
	domainlistings "warehub/internal/domain/listings"
	"warehub/internal/domain/shared/events"
	domainuser "warehub/internal/domain/user"
)

const (
	submitInquiryKey      = "inquiries.submit"
	listOwnerInquiriesKey = "inquiries.owner.list"
)

// SubmitInquiryCommand is a public contact form entry; no account required.
type SubmitInquiryCommand struct {
	ListingID string `validate:"notblank"`
	Name      string `validate:"notblank"`
	Email     string `validate:"notblank"`
	Message   string `validate:"notblank"`
}

func (c SubmitInquiryCommand) Key() string { return submitInquiryKey }

type SubmitInquiryHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Clock      func() time.Time
	IDs        func() string
}

func (h *SubmitInquiryHandler) Handle(ctx context.Context, cmd SubmitInquiryCommand) (*dto.Inquiry, error) {
	return handlersupport.WithinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (*dto.Inquiry, error) {
		inquiry, err := domaininquiries.New(domaininquiries.NewParams{
			ID:        domaininquiries.InquiryID(handlersupport.NewID(h.IDs)),
			ListingID: domainlistings.ListingID(strings.TrimSpace(cmd.ListingID)),
			Name:      cmd.Name,
			Email:     cmd.Email,
			Message:   cmd.Message,
			CreatedAt: handlersupport.Now(h.Clock),
		})
		if err != nil {
			return nil, err
		}
		listing, err := unit.Listings().ByID(ctx, inquiry.ListingID)
		if err != nil {
			return nil, err
		}
		if err := unit.Inquiries().Create(ctx, inquiry); err != nil {
			return nil, err
		}
		ev := domaininquiries.Received{InquiryID: inquiry.ID, ListingID: listing.ID, OwnerID: listing.OwnerID, At: inquiry.CreatedAt}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{ev}); err != nil {
			return nil, err
		}
		handlersupport.Logger(h.Logger).Info("inquiry received", "inquiry_id", inquiry.ID, "listing_id", listing.ID)
		out := dto.MapInquiry(inquiry)
		return &out, nil
	})
}

type ListOwnerInquiriesQuery struct {
	Actor auth.Actor
}

func (q ListOwnerInquiriesQuery) Key() string              { return listOwnerInquiriesKey }
func (q ListOwnerInquiriesQuery) RequestActor() auth.Actor { return q.Actor }

// ListOwnerInquiriesHandler groups inquiries by the owner's listings. Groups
// with the most recent inquiry come first; listings without inquiries are
// left out.
type ListOwnerInquiriesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListOwnerInquiriesHandler) Handle(ctx context.Context, q ListOwnerInquiriesQuery) (dto.InquiryGroups, error) {
	if err := q.Actor.RequireRole(domainuser.RoleOwner); err != nil {
		return dto.InquiryGroups{}, err
	}
	return handlersupport.WithinReadUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (dto.InquiryGroups, error) {
		owned, err := unit.Listings().ListByOwner(ctx, domainlistings.OwnerID(q.Actor.UserID))
		if err != nil {
			return dto.InquiryGroups{}, err
		}
		if len(owned) == 0 {
			return dto.InquiryGroups{Groups: []dto.InquiryGroup{}}, nil
		}
		ids := make([]domainlistings.ListingID, 0, len(owned))
		names := make(map[domainlistings.ListingID]string, len(owned))
		for _, l := range owned {
			ids = append(ids, l.ID)
			names[l.ID] = l.Name
		}
		items, err := unit.Inquiries().ListByListings(ctx, ids)
		if err != nil {
			return dto.InquiryGroups{}, err
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		})

		// items are newest first, so groups are created in order of their
		// most recent inquiry.
		index := make(map[domainlistings.ListingID]int)
		out := dto.InquiryGroups{Groups: make([]dto.InquiryGroup, 0)}
		for _, inquiry := range items {
			pos, ok := index[inquiry.ListingID]
			if !ok {
				pos = len(out.Groups)
				index[inquiry.ListingID] = pos
				out.Groups = append(out.Groups, dto.InquiryGroup{
					ListingID:   string(inquiry.ListingID),
					ListingName: names[inquiry.ListingID],
					Items:       make([]dto.Inquiry, 0, 1),
				})
			}
			out.Groups[pos].Items = append(out.Groups[pos].Items, dto.MapInquiry(inquiry))
		}
		return out, nil
	})
}

var (
	_ commands.Handler[SubmitInquiryCommand, *dto.Inquiry]        = (*SubmitInquiryHandler)(nil)
	_ queries.Handler[ListOwnerInquiriesQuery, dto.InquiryGroups] = (*ListOwnerInquiriesHandler)(nil)
)
