package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "warehub/internal/domain/auth"
	domainuser "warehub/internal/domain/user"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)

	assert.NoError(t, h.Compare(hash, "s3cret-pass"))
	assert.ErrorIs(t, h.Compare(hash, "other-pass"), ErrPasswordMismatch)
}

func TestJWTCodec(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	clock := func() time.Time { return now }
	codec, err := NewJWTCodec("test-secret", clock)
	require.NoError(t, err)

	actor := domainauth.Actor{UserID: "u-1", Email: "c@x.io", Role: domainuser.RoleCustomer}
	session, err := domainauth.NewSession(actor, time.Hour, now)
	require.NoError(t, err)

	token, err := codec.Encode(session)
	require.NoError(t, err)

	decoded, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, actor, decoded.Actor)
	assert.True(t, session.ExpiresAt.Equal(decoded.ExpiresAt))

	t.Run("expired", func(t *testing.T) {
		later, err := NewJWTCodec("test-secret", func() time.Time { return now.Add(2 * time.Hour) })
		require.NoError(t, err)
		_, err = later.Decode(token)
		assert.ErrorIs(t, err, domainauth.ErrInvalidToken)
	})

	t.Run("foreign secret", func(t *testing.T) {
		other, err := NewJWTCodec("another-secret", clock)
		require.NoError(t, err)
		_, err = other.Decode(token)
		assert.ErrorIs(t, err, domainauth.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := codec.Decode("not-a-token")
		assert.ErrorIs(t, err, domainauth.ErrInvalidToken)
	})
}

func TestJWTCodecRequiresSecret(t *testing.T) {
	_, err := NewJWTCodec("  ", nil)
	assert.ErrorIs(t, err, ErrSecretRequired)

	secret, err := RandomSecret(0)
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
}
