package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "warehub/internal/domain/auth"
	domainuser "warehub/internal/domain/user"
	"warehub/internal/infra/security"
	"warehub/internal/infra/storage/memory"
)

func newService(t *testing.T) *Service {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	clock := func() time.Time { return now }
	codec, err := security.NewJWTCodec("test-secret", clock)
	require.NoError(t, err)
	return &Service{
		Users:      memory.NewUserRepository(),
		Passwords:  security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:     codec,
		SessionTTL: time.Hour,
		Clock:      clock,
	}
}

func TestRegisterLoginResolve(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	reg, err := svc.Register(ctx, RegisterParams{
		Email:    "Owner@Example.com",
		Name:     "Olga",
		Password: "warehouse1",
		Role:     "owner",
	})
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", reg.User.Email)
	assert.Equal(t, domainuser.RoleOwner, reg.User.Role)
	assert.NotEmpty(t, reg.Token)

	login, err := svc.Login(ctx, LoginParams{Email: "owner@example.com", Password: "warehouse1"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	actor, err := svc.Resolve(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, domainauth.Actor{UserID: reg.User.ID, Email: "owner@example.com", Role: domainuser.RoleOwner}, actor)

	profile, err := svc.Profile(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, "Olga", profile.Name)
}

func TestRegisterFailures(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.Register(ctx, RegisterParams{Email: "c@x.io", Name: "C", Password: "cust0mer!", Role: "customer"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		params RegisterParams
		want   error
	}{
		{"malformed email", RegisterParams{Email: "not-an-email", Name: "A", Password: "abcd1234", Role: "customer"}, ErrMalformedEmail},
		{"short password", RegisterParams{Email: "a@x.io", Name: "A", Password: "ab12", Role: "customer"}, ErrWeakPassword},
		{"letters only", RegisterParams{Email: "a@x.io", Name: "A", Password: "abcdefghij", Role: "customer"}, ErrWeakPassword},
		{"digits only", RegisterParams{Email: "a@x.io", Name: "A", Password: "1234567890", Role: "customer"}, ErrWeakPassword},
		{"bad role", RegisterParams{Email: "a@x.io", Name: "A", Password: "abcd1234", Role: "admin"}, ErrInvalidRole},
		{"taken", RegisterParams{Email: "C@X.io", Name: "C2", Password: "abcd1234", Role: "owner"}, ErrEmailAlreadyRegistered},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.params)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.Register(ctx, RegisterParams{Email: "c@x.io", Name: "C", Password: "cust0mer!", Role: "customer"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginParams{Email: "nobody@x.io", Password: "cust0mer!"})
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = svc.Login(ctx, LoginParams{Email: "c@x.io", Password: "wrong-pass1"})
	assert.ErrorIs(t, err, ErrWrongCredentials)

	_, err = svc.Login(ctx, LoginParams{Email: "@@", Password: "cust0mer!"})
	assert.ErrorIs(t, err, ErrMalformedEmail)
}

func TestResolveRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, domainauth.ErrTokenRequired)

	_, err = svc.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, domainauth.ErrInvalidToken)

	session, err := domainauth.NewSession(domainauth.Actor{UserID: "ghost", Email: "g@x.io", Role: domainuser.RoleCustomer}, time.Hour, svc.Clock())
	require.NoError(t, err)
	token, err := svc.Tokens.Encode(session)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, domainauth.ErrInvalidToken)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("abcd1234"))
	assert.NoError(t, ValidatePassword("only-letters-and-dash"))
	assert.ErrorIs(t, ValidatePassword("ab1"), ErrWeakPassword)
}
