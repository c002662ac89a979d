// Package fixtures seeds demo accounts and listings from a YAML file at
// startup. Seeding is safe to repeat: users are matched by email and
// listings by id, and existing records are left alone.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	authsvc "warehub/internal/app/services/auth"
	"warehub/internal/app/uow"
	domainlistings "warehub/internal/domain/listings"
	"warehub/internal/domain/shared/daterange"
	domainuser "warehub/internal/domain/user"
)

type File struct {
	Users    []UserFixture    `yaml:"users"`
	Listings []ListingFixture `yaml:"listings"`
}

type UserFixture struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type ListingFixture struct {
	ID            string   `yaml:"id"`
	OwnerEmail    string   `yaml:"owner_email"`
	Name          string   `yaml:"name"`
	Location      string   `yaml:"location"`
	AreaSqM       float64  `yaml:"area_sqm"`
	RentPerArea   float64  `yaml:"rent_per_area"`
	Industry      string   `yaml:"industry"`
	AvailableFrom string   `yaml:"available_from"`
	AvailableTo   string   `yaml:"available_to"`
	Tags          []string `yaml:"tags"`
	ImageURL      string   `yaml:"image_url"`
}

// Load reads path. A missing file yields an empty fixture set.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return f, nil
}

type Seeder struct {
	Users      domainuser.Repository
	Passwords  authsvc.PasswordHasher
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
	Logger     *slog.Logger
}

// Result counts what a Seed call actually wrote.
type Result struct {
	Users    int
	Listings int
}

// Seed writes missing users and listings. Invalid entries are logged and
// skipped; storage failures abort.
func (s Seeder) Seed(ctx context.Context, f File) (Result, error) {
	var res Result
	owners := make(map[string]*domainuser.User, len(f.Users))
	for _, fx := range f.Users {
		user, created, err := s.ensureUser(ctx, fx)
		if err != nil {
			if isInvalid(err) {
				s.logger().Warn("user fixture skipped", "email", fx.Email, "error", err)
				continue
			}
			return res, err
		}
		if created {
			res.Users++
		}
		owners[user.Email] = user
	}

	for _, fx := range f.Listings {
		created, err := s.ensureListing(ctx, fx, owners)
		if err != nil {
			if isInvalid(err) {
				s.logger().Warn("listing fixture skipped", "listing_id", fx.ID, "error", err)
				continue
			}
			return res, err
		}
		if created {
			res.Listings++
			s.logger().Info("listing fixture imported", "listing_id", fx.ID)
		}
	}
	return res, nil
}

var errInvalidFixture = errors.New("fixtures: invalid entry")

func isInvalid(err error) bool {
	return errors.Is(err, errInvalidFixture) ||
		errors.Is(err, domainuser.ErrInvalidRole) ||
		errors.Is(err, daterange.ErrInvalidDate) ||
		errors.Is(err, authsvc.ErrWeakPassword)
}

func (s Seeder) ensureUser(ctx context.Context, fx UserFixture) (*domainuser.User, bool, error) {
	email := domainuser.NormalizeEmail(fx.Email)
	existing, err := s.Users.ByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, false, err
	}
	role, err := domainuser.ParseRole(fx.Role)
	if err != nil {
		return nil, false, err
	}
	if err := authsvc.ValidatePassword(fx.Password); err != nil {
		return nil, false, err
	}
	hash, err := s.Passwords.Hash(fx.Password)
	if err != nil {
		return nil, false, err
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         fx.Name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", errInvalidFixture, err)
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s Seeder) ensureListing(ctx context.Context, fx ListingFixture, owners map[string]*domainuser.User) (bool, error) {
	owner, ok := owners[domainuser.NormalizeEmail(fx.OwnerEmail)]
	if !ok || owner.Role != domainuser.RoleOwner {
		return false, fmt.Errorf("%w: %s is not a seeded owner", errInvalidFixture, fx.OwnerEmail)
	}
	from, err := daterange.ParseDay(fx.AvailableFrom)
	if err != nil {
		return false, err
	}
	to, err := daterange.ParseDay(fx.AvailableTo)
	if err != nil {
		return false, err
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:         domainlistings.ListingID(fx.ID),
		OwnerID:    domainlistings.OwnerID(owner.ID),
		OwnerEmail: owner.Email,
		Details: domainlistings.Details{
			Name:          fx.Name,
			Location:      fx.Location,
			AreaSqM:       fx.AreaSqM,
			RentPerArea:   fx.RentPerArea,
			Industry:      fx.Industry,
			AvailableFrom: from,
			AvailableTo:   to,
			Tags:          fx.Tags,
			ImageURL:      fx.ImageURL,
		},
		Now: s.now(),
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", errInvalidFixture, err)
	}

	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return false, err
	}
	ctx = uow.Bind(ctx, unit)
	defer func() { _ = unit.Rollback(ctx) }()

	repo := unit.Listings()
	if _, err := repo.ByID(ctx, listing.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, domainlistings.ErrNotFound) {
		return false, err
	}
	if err := repo.Save(ctx, listing); err != nil {
		return false, err
	}
	if err := unit.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s Seeder) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s Seeder) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
