package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserNormalizesEmailAndRole(t *testing.T) {
	u, err := NewUser(CreateParams{
		ID:           "u-1",
		Email:        "  Owner@Example.COM ",
		Name:         "Olga",
		PasswordHash: "hash",
		Role:         "OWNER",
		CreatedAt:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "owner@example.com", u.Email)
	assert.Equal(t, RoleOwner, u.Role)
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)
}

func TestNewUserRejectsUnknownRole(t *testing.T) {
	_, err := NewUser(CreateParams{ID: "u-1", Email: "a@b.c", Name: "A", PasswordHash: "h", Role: "admin"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestNewUserRequiresFields(t *testing.T) {
	_, err := NewUser(CreateParams{Email: "a@b.c", Name: "A", PasswordHash: "h", Role: RoleCustomer})
	assert.ErrorIs(t, err, ErrIDRequired)

	_, err = NewUser(CreateParams{ID: "u", Name: "A", PasswordHash: "h", Role: RoleCustomer})
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = NewUser(CreateParams{ID: "u", Email: "a@b.c", PasswordHash: "h", Role: RoleCustomer})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = NewUser(CreateParams{ID: "u", Email: "a@b.c", Name: "A", Role: RoleCustomer})
	assert.ErrorIs(t, err, ErrPasswordHashMissing)
}
