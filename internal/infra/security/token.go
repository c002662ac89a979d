package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "warehub/internal/domain/auth"
	domainuser "warehub/internal/domain/user"
)

var ErrSecretRequired = errors.New("token: signing secret is required")

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTCodec signs sessions as HS256 tokens carrying the user id in sub plus
// email and role.
type JWTCodec struct {
	secret []byte
	clock  func() time.Time
}

func NewJWTCodec(secret string, clock func() time.Time) (*JWTCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretRequired
	}
	if clock == nil {
		clock = time.Now
	}
	return &JWTCodec{secret: []byte(secret), clock: clock}, nil
}

func (c *JWTCodec) Encode(session *domainauth.Session) (string, error) {
	if session == nil || !session.Actor.Authenticated() {
		return "", domainauth.ErrUserRequired
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: session.Actor.Email,
		Role:  string(session.Actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(session.Actor.UserID),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})
	return token.SignedString(c.secret)
}

func (c *JWTCodec) Decode(raw string) (*domainauth.Session, error) {
	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.clock), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainauth.ErrInvalidToken, err)
	}
	cl, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || cl.Subject == "" {
		return nil, domainauth.ErrInvalidToken
	}
	role, err := domainuser.ParseRole(cl.Role)
	if err != nil {
		return nil, domainauth.ErrInvalidToken
	}
	session := &domainauth.Session{
		Actor: domainauth.Actor{
			UserID: domainuser.ID(cl.Subject),
			Email:  cl.Email,
			Role:   role,
		},
	}
	if cl.IssuedAt != nil {
		session.IssuedAt = cl.IssuedAt.Time.UTC()
	}
	if cl.ExpiresAt != nil {
		session.ExpiresAt = cl.ExpiresAt.Time.UTC()
	}
	return session, nil
}

// RandomSecret produces a throwaway signing key for local runs.
func RandomSecret(size int) (string, error) {
	if size <= 0 {
		size = 32
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: entropy read failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

var _ domainauth.TokenCodec = (*JWTCodec)(nil)
