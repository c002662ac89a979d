package listings

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"warehub/internal/app/commands"
	"warehub/internal/app/dto"
	handlersupport "warehub/internal/app/handlers/support"
	"warehub/internal/app/middleware"
	"warehub/internal/app/outbox"
	"warehub/internal/app/policies"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainlistings "warehub/internal/domain/listings"
	"warehub/internal/domain/shared/events"
	domainuser "warehub/internal/domain/user"
)

const (
	createListingKey = "listings.create"
	updateListingKey = "listings.update"
	deleteListingKey = "listings.delete"
	imageFolder      = "listings"
)

// Image is an upload that arrived with a listing form.
type Image struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type CreateListingCommand struct {
	Actor   auth.Actor
	Details domainlistings.Details
	Image   *Image
}

func (c CreateListingCommand) Key() string              { return createListingKey }
func (c CreateListingCommand) RequestActor() auth.Actor { return c.Actor }

type CreateListingHandler struct {
	UoWFactory uow.UoWFactory
	Media      policies.MediaStore
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Clock      func() time.Time
	IDs        func() string
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*dto.Listing, error) {
	if err := cmd.Actor.RequireRole(domainuser.RoleOwner); err != nil {
		return nil, err
	}
	if cmd.Image == nil || cmd.Image.Body == nil || cmd.Image.Size == 0 {
		return nil, domainlistings.ErrImageRequired
	}
	if err := domainlistings.ValidateDetails(cmd.Details); err != nil {
		return nil, err
	}

	url, err := h.Media.Upload(ctx, policies.MediaUpload{
		Folder:      imageFolder,
		FileName:    cmd.Image.FileName,
		ContentType: cmd.Image.ContentType,
		Size:        cmd.Image.Size,
		Body:        cmd.Image.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("upload listing image: %w", err)
	}
	details := cmd.Details
	details.ImageURL = url

	return handlersupport.WithinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (*dto.Listing, error) {
		listing, err := domainlistings.NewListing(domainlistings.CreateParams{
			ID:         domainlistings.ListingID(handlersupport.NewID(h.IDs)),
			OwnerID:    domainlistings.OwnerID(cmd.Actor.UserID),
			OwnerEmail: cmd.Actor.Email,
			Details:    details,
			Now:        handlersupport.Now(h.Clock),
		})
		if err != nil {
			return nil, err
		}
		if err := unit.Listings().Save(ctx, listing); err != nil {
			return nil, err
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, listing.DrainEvents()); err != nil {
			return nil, err
		}
		handlersupport.Logger(h.Logger).Info("listing created", "listing_id", listing.ID, "owner_id", listing.OwnerID)
		out := dto.MapListing(listing)
		return &out, nil
	})
}

type UpdateListingCommand struct {
	Actor     auth.Actor
	ListingID string `validate:"notblank"`
	Details   domainlistings.Details
	// Image replaces the current image when set.
	Image *Image
}

func (c UpdateListingCommand) Key() string              { return updateListingKey }
func (c UpdateListingCommand) RequestActor() auth.Actor { return c.Actor }

type UpdateListingHandler struct {
	UoWFactory uow.UoWFactory
	Media      policies.MediaStore
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Clock      func() time.Time
}

func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (*dto.Listing, error) {
	if err := cmd.Actor.RequireRole(domainuser.RoleOwner); err != nil {
		return nil, err
	}
	id := domainlistings.ListingID(strings.TrimSpace(cmd.ListingID))
	return handlersupport.WithinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (*dto.Listing, error) {
		listing, err := unit.Listings().ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !listing.OwnedBy(domainlistings.OwnerID(cmd.Actor.UserID)) {
			return nil, domainlistings.ErrNotOwner
		}
		details := cmd.Details
		details.ImageURL = ""
		if cmd.Image != nil && cmd.Image.Body != nil && cmd.Image.Size > 0 {
			if err := domainlistings.ValidateDetails(details); err != nil {
				return nil, err
			}
			url, err := h.Media.Upload(ctx, policies.MediaUpload{
				Folder:      imageFolder,
				FileName:    cmd.Image.FileName,
				ContentType: cmd.Image.ContentType,
				Size:        cmd.Image.Size,
				Body:        cmd.Image.Body,
			})
			if err != nil {
				return nil, fmt.Errorf("upload listing image: %w", err)
			}
			details.ImageURL = url
		}
		if err := listing.Update(details, handlersupport.Now(h.Clock)); err != nil {
			return nil, err
		}
		if err := unit.Listings().Save(ctx, listing); err != nil {
			return nil, err
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, listing.DrainEvents()); err != nil {
			return nil, err
		}
		handlersupport.Logger(h.Logger).Info("listing updated", "listing_id", listing.ID, "version", listing.Version)
		out := dto.MapListing(listing)
		return &out, nil
	})
}

type DeleteListingCommand struct {
	Actor     auth.Actor
	ListingID string `validate:"notblank"`
}

func (c DeleteListingCommand) Key() string              { return deleteListingKey }
func (c DeleteListingCommand) RequestActor() auth.Actor { return c.Actor }

// DeleteListingHandler removes only the listing. Reservations, messages,
// reviews, and inquiries keep their copied details and stay readable.
type DeleteListingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Clock      func() time.Time
}

func (h *DeleteListingHandler) Handle(ctx context.Context, cmd DeleteListingCommand) (struct{}, error) {
	if err := cmd.Actor.RequireRole(domainuser.RoleOwner); err != nil {
		return struct{}{}, err
	}
	id := domainlistings.ListingID(strings.TrimSpace(cmd.ListingID))
	return handlersupport.WithinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) (struct{}, error) {
		listing, err := unit.Listings().ByID(ctx, id)
		if err != nil {
			return struct{}{}, err
		}
		if !listing.OwnedBy(domainlistings.OwnerID(cmd.Actor.UserID)) {
			return struct{}{}, domainlistings.ErrNotOwner
		}
		if err := unit.Listings().Delete(ctx, id); err != nil {
			return struct{}{}, err
		}
		ev := domainlistings.ListingDeleted{ListingID: id, OwnerID: listing.OwnerID, At: handlersupport.Now(h.Clock)}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{ev}); err != nil {
			return struct{}{}, err
		}
		handlersupport.Logger(h.Logger).Info("listing deleted", "listing_id", id, "owner_id", listing.OwnerID)
		return struct{}{}, nil
	})
}

var (
	_ commands.Handler[CreateListingCommand, *dto.Listing] = (*CreateListingHandler)(nil)
	_ commands.Handler[UpdateListingCommand, *dto.Listing] = (*UpdateListingHandler)(nil)
	_ commands.Handler[DeleteListingCommand, struct{}]     = (*DeleteListingHandler)(nil)
	_ middleware.ActorMessage                              = CreateListingCommand{}
)
