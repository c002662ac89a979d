package ginserver

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"warehub/internal/app/commands"
	"warehub/internal/app/dto"
	listingapp "warehub/internal/app/handlers/listings"
	"warehub/internal/app/queries"
	domainlistings "warehub/internal/domain/listings"
	"warehub/internal/domain/shared/daterange"
)

const defaultMaxUploadBytes int64 = 10 << 20

type ListingHTTP interface {
	Search(c *gin.Context)
	Get(c *gin.Context)
	OwnerList(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

type ListingHandler struct {
	Commands       commands.Bus
	Queries        queries.Bus
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Search serves the public catalog: ?q= matches name or location, ?industry=
// and ?tag= narrow it, and ?limit=/?offset= page through it.
func (h ListingHandler) Search(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		badRequest(c, err)
		return
	}
	offset, err := parseOptionalInt(c.Query("offset"))
	if err != nil {
		badRequest(c, err)
		return
	}
	result, err := queries.Ask[listingapp.SearchCatalogQuery, dto.ListingCatalog](c.Request.Context(), h.Queries, listingapp.SearchCatalogQuery{
		Viewer:   currentActor(c),
		Query:    c.Query("q"),
		Industry: c.Query("industry"),
		Tag:      c.Query("tag"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	result, err := queries.Ask[listingapp.GetListingQuery, dto.Listing](c.Request.Context(), h.Queries, listingapp.GetListingQuery{
		ListingID: c.Param("id"),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) OwnerList(c *gin.Context) {
	result, err := queries.Ask[listingapp.ListOwnerListingsQuery, dto.ListingCollection](c.Request.Context(), h.Queries, listingapp.ListOwnerListingsQuery{
		Actor: currentActor(c),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Create(c *gin.Context) {
	details, image, cleanup, err := h.parseListingForm(c)
	defer cleanup()
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	if image == nil {
		respondWithError(c, h.Logger, domainlistings.ErrImageRequired)
		return
	}
	result, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, listingapp.CreateListingCommand{
		Actor:   currentActor(c),
		Details: details,
		Image:   image,
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ListingHandler) Update(c *gin.Context) {
	details, image, cleanup, err := h.parseListingForm(c)
	defer cleanup()
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	result, err := commands.Dispatch[listingapp.UpdateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, listingapp.UpdateListingCommand{
		Actor:     currentActor(c),
		ListingID: c.Param("id"),
		Details:   details,
		Image:     image,
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Delete(c *gin.Context) {
	_, err := commands.Dispatch[listingapp.DeleteListingCommand, struct{}](c.Request.Context(), h.Commands, listingapp.DeleteListingCommand{
		Actor:     currentActor(c),
		ListingID: c.Param("id"),
	})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseListingForm reads the multipart listing form. The returned cleanup
// closes the uploaded file and must always be called.
func (h ListingHandler) parseListingForm(c *gin.Context) (domainlistings.Details, *listingapp.Image, func(), error) {
	noop := func() {}
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)
	if err := c.Request.ParseMultipartForm(limit); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return domainlistings.Details{}, nil, noop, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	area, err := parseNumber(c.PostForm("area_sqm"))
	if err != nil {
		return domainlistings.Details{}, nil, noop, err
	}
	rent, err := parseNumber(c.PostForm("rent_per_area"))
	if err != nil {
		return domainlistings.Details{}, nil, noop, err
	}
	from, err := parseOptionalDay(c.PostForm("available_from"))
	if err != nil {
		return domainlistings.Details{}, nil, noop, err
	}
	to, err := parseOptionalDay(c.PostForm("available_to"))
	if err != nil {
		return domainlistings.Details{}, nil, noop, err
	}
	details := domainlistings.Details{
		Name:          c.PostForm("name"),
		Location:      c.PostForm("location"),
		AreaSqM:       area,
		RentPerArea:   rent,
		Industry:      c.PostForm("industry"),
		AvailableFrom: from,
		AvailableTo:   to,
		Tags:          domainlistings.ParseTags(c.PostForm("tags")),
	}

	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return details, nil, noop, nil
		}
		return domainlistings.Details{}, nil, noop, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if header.Size == 0 {
		return domainlistings.Details{}, nil, noop, domainlistings.ErrImageRequired
	}
	if header.Size > limit {
		return domainlistings.Details{}, nil, noop, fmt.Errorf("%w: image exceeds %d bytes", errBadRequest, limit)
	}
	file, err := header.Open()
	if err != nil {
		return domainlistings.Details{}, nil, noop, err
	}
	return details, imageFrom(header, file), func() { _ = file.Close() }, nil
}

func imageFrom(header *multipart.FileHeader, file multipart.File) *listingapp.Image {
	return &listingapp.Image{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
}

// parseNumber treats a blank field as zero so the domain reports it as a
// missing value rather than a malformed one.
func parseNumber(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, domainlistings.ErrNotNumeric
	}
	return v, nil
}

func parseOptionalDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return daterange.ParseDay(raw)
}

var _ ListingHTTP = ListingHandler{}
